package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-lending/internal/model"
	"github.com/iliyamo/library-lending/internal/repository"
)

// MemberHandler exposes member registry endpoints.  Member status is
// owned by the lending engine and not editable here.
type MemberHandler struct {
	Store *repository.LibraryStore
}

// NewMemberHandler constructs a MemberHandler.  The store must be non-nil.
func NewMemberHandler(store *repository.LibraryStore) *MemberHandler {
	if store == nil {
		panic("nil store passed to NewMemberHandler")
	}
	return &MemberHandler{Store: store}
}

// Create handles POST /v1/members.  When membership_number is omitted a
// unique one is generated.
func (h *MemberHandler) Create(c echo.Context) error {
	var body struct {
		MembershipNumber string `json:"membership_number"`
		Name             string `json:"name"`
		Email            string `json:"email"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Name == "" || body.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and email are required"})
	}
	member := model.Member{
		MembershipNumber: body.MembershipNumber,
		Name:             body.Name,
		Email:            body.Email,
		Status:           model.MemberActive,
	}
	if err := h.Store.CreateMember(c.Request().Context(), &member); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create member failed"})
	}
	return c.JSON(http.StatusCreated, member)
}

// List handles GET /v1/members.
func (h *MemberHandler) List(c echo.Context) error {
	members, err := h.Store.ListMembers(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list members failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": members})
}

// Get handles GET /v1/members/:id.
func (h *MemberHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid member id"})
	}
	member, err := h.Store.GetMember(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "member not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "fetch member failed"})
	}
	return c.JSON(http.StatusOK, member)
}

// Update handles PUT/PATCH /v1/members/:id.
func (h *MemberHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid member id"})
	}
	var body struct {
		Name   *string `json:"name"`
		Email  *string `json:"email"`
		Status *string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Status != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status is derived from loans and fines; it cannot be set"})
	}
	member, err := h.Store.UpdateMember(c.Request().Context(), id, repository.MemberPatch{
		Name:  body.Name,
		Email: body.Email,
	})
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "member not found"})
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update member failed"})
	}
	return c.JSON(http.StatusOK, member)
}

// Delete handles DELETE /v1/members/:id.  Members with open loans or
// unpaid fines cannot be removed.
func (h *MemberHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid member id"})
	}
	err := h.Store.DeleteMember(c.Request().Context(), id)
	switch {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, sql.ErrNoRows):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "member not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "member has open loans or unpaid fines"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete member failed"})
	}
}

// Loans handles GET /v1/members/:id/loans, the member's borrowing history.
func (h *MemberHandler) Loans(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid member id"})
	}
	if _, err := h.Store.GetMember(c.Request().Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "member not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "fetch member failed"})
	}
	loans, err := h.Store.ListLoansByMember(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list loans failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": loans})
}

// Fines handles GET /v1/members/:id/fines.  Unpaid fines sort first.
func (h *MemberHandler) Fines(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid member id"})
	}
	if _, err := h.Store.GetMember(c.Request().Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "member not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "fetch member failed"})
	}
	fines, err := h.Store.ListFinesByMember(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list fines failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": fines})
}
