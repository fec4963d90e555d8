package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-lending/internal/repository"
)

// FineHandler exposes the read side of fines; payment goes through the
// lending engine.
type FineHandler struct {
	Store *repository.LibraryStore
}

func NewFineHandler(store *repository.LibraryStore) *FineHandler {
	if store == nil {
		panic("nil store passed to NewFineHandler")
	}
	return &FineHandler{Store: store}
}

// List handles GET /v1/fines?member_id=.  Unpaid fines sort first so
// desk staff see what blocks a member right away.
func (h *FineHandler) List(c echo.Context) error {
	memberID, err := strconv.ParseUint(c.QueryParam("member_id"), 10, 64)
	if err != nil || memberID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "member_id query parameter is required"})
	}
	fines, err := h.Store.ListFinesByMember(c.Request().Context(), memberID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list fines failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": fines})
}
