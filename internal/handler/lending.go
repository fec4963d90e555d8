package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-lending/internal/queue"
	"github.com/iliyamo/library-lending/internal/service"
)

// LendingHandler exposes the state-changing lending operations.  Every
// operation is executed atomically by the lending engine; the handler
// only parses the request, maps the error taxonomy onto HTTP status
// codes and publishes the after-commit event.
type LendingHandler struct {
	Engine *service.LendingService
}

// NewLendingHandler constructs a LendingHandler.  The engine must be
// non-nil.
func NewLendingHandler(engine *service.LendingService) *LendingHandler {
	if engine == nil {
		panic("nil engine passed to NewLendingHandler")
	}
	return &LendingHandler{Engine: engine}
}

// lendingError maps engine errors onto HTTP responses: NotFound to 404,
// InvalidState and LimitExceeded to 400 with the violated rule in the
// message, anything else to 500.
func lendingError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidState), errors.Is(err, service.ErrLimitExceeded):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
}

// publish fires a lending event after a successful commit.  Best effort:
// the request already succeeded, so a broker failure is only logged by
// the publisher.
func publish(ev queue.LendingEvent) {
	ev.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queue.PublishLendingEvent(ctx, ev)
	}()
}

// Borrow handles POST /v1/loans.  The JSON body carries member_id and
// book_id.  On success it returns 201 with the created loan.
func (h *LendingHandler) Borrow(c echo.Context) error {
	var body struct {
		MemberID uint64 `json:"member_id"`
		BookID   uint64 `json:"book_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.MemberID == 0 || body.BookID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "member_id and book_id are required"})
	}
	loan, err := h.Engine.Borrow(c.Request().Context(), body.MemberID, body.BookID)
	if err != nil {
		return lendingError(c, err)
	}
	publish(queue.LendingEvent{
		Type:     queue.EventLoanCreated,
		LoanID:   loan.ID,
		BookID:   loan.BookID,
		MemberID: loan.MemberID,
		DueDate:  loan.DueDate.Format(time.RFC3339),
	})
	return c.JSON(http.StatusCreated, loan)
}

// Return handles POST /v1/loans/:id/return.  It closes the loan and
// returns the loan id together with the fine assessed for a late
// return, or null when the return was on time.
func (h *LendingHandler) Return(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid loan id"})
	}
	result, err := h.Engine.Return(c.Request().Context(), id)
	if err != nil {
		return lendingError(c, err)
	}
	ev := queue.LendingEvent{Type: queue.EventLoanReturned, LoanID: result.LoanID}
	if result.Fine != nil {
		ev.FineID = result.Fine.ID
		ev.FineAmount = result.Fine.Amount
		ev.MemberID = result.Fine.MemberID
	}
	publish(ev)
	return c.JSON(http.StatusOK, result)
}

// Reserve handles POST /v1/reservations.  The JSON body carries
// member_id and book_id.  On success it returns 201 with the created
// reservation.
func (h *LendingHandler) Reserve(c echo.Context) error {
	var body struct {
		MemberID uint64 `json:"member_id"`
		BookID   uint64 `json:"book_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.MemberID == 0 || body.BookID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "member_id and book_id are required"})
	}
	res, err := h.Engine.Reserve(c.Request().Context(), body.MemberID, body.BookID)
	if err != nil {
		return lendingError(c, err)
	}
	publish(queue.LendingEvent{
		Type:          queue.EventBookReserved,
		ReservationID: res.ID,
		BookID:        res.BookID,
		MemberID:      res.MemberID,
	})
	return c.JSON(http.StatusCreated, res)
}

// ListOverdue handles GET /v1/loans/overdue.  It sweeps due loans first
// so the response never shows stale overdue status.
func (h *LendingHandler) ListOverdue(c echo.Context) error {
	loans, err := h.Engine.ListOverdue(c.Request().Context())
	if err != nil {
		return lendingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": loans})
}

// PayFine handles POST /v1/fines/:id/pay.  Paying the last unpaid fine
// may lift the member's suspension; the updated fine record is returned.
func (h *LendingHandler) PayFine(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid fine id"})
	}
	result, err := h.Engine.PayFine(c.Request().Context(), id)
	if err != nil {
		return lendingError(c, err)
	}
	publish(queue.LendingEvent{Type: queue.EventFinePaid, FineID: result.ID})
	return c.JSON(http.StatusOK, result)
}

// SetMaintenance handles PUT /v1/books/:id/maintenance.  The JSON body
// carries {"maintenance": bool}.
func (h *LendingHandler) SetMaintenance(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid book id"})
	}
	var body struct {
		Maintenance bool `json:"maintenance"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	book, err := h.Engine.SetMaintenance(c.Request().Context(), id, body.Maintenance)
	if err != nil {
		return lendingError(c, err)
	}
	return c.JSON(http.StatusOK, book)
}
