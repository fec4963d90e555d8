package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-lending/internal/model"
	"github.com/iliyamo/library-lending/internal/repository"
)

// BookHandler exposes the catalog pass-through endpoints.  These do not
// change lending state: book status and available copies are owned by
// the lending engine and cannot be set here.
type BookHandler struct {
	Store *repository.LibraryStore
}

// NewBookHandler constructs a BookHandler.  The store must be non-nil.
func NewBookHandler(store *repository.LibraryStore) *BookHandler {
	if store == nil {
		panic("nil store passed to NewBookHandler")
	}
	return &BookHandler{Store: store}
}

// Create handles POST /v1/books.
func (h *BookHandler) Create(c echo.Context) error {
	var body struct {
		ISBN            string  `json:"isbn"`
		Title           string  `json:"title"`
		Author          string  `json:"author"`
		Category        *string `json:"category"`
		TotalCopies     int     `json:"total_copies"`
		AvailableCopies *int    `json:"available_copies"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ISBN == "" || body.Title == "" || body.Author == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "isbn, title and author are required"})
	}
	if body.TotalCopies < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "total_copies must be at least 1"})
	}
	book := model.Book{
		ISBN:            body.ISBN,
		Title:           body.Title,
		Author:          body.Author,
		Category:        body.Category,
		Status:          model.BookAvailable,
		TotalCopies:     body.TotalCopies,
		AvailableCopies: -1, // default to total_copies
	}
	if body.AvailableCopies != nil {
		if *body.AvailableCopies < 0 || *body.AvailableCopies > body.TotalCopies {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "available_copies must be between 0 and total_copies"})
		}
		book.AvailableCopies = *body.AvailableCopies
	}
	if err := h.Store.CreateBook(c.Request().Context(), &book); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create book failed"})
	}
	return c.JSON(http.StatusCreated, book)
}

// List handles GET /v1/books with an optional ?q= catalog filter.
func (h *BookHandler) List(c echo.Context) error {
	books, err := h.Store.ListBooks(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list books failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": books})
}

// Get handles GET /v1/books/:id.
func (h *BookHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid book id"})
	}
	book, err := h.Store.GetBook(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "book not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "fetch book failed"})
	}
	return c.JSON(http.StatusOK, book)
}

// Update handles PUT/PATCH /v1/books/:id.  Status and available_copies
// are deliberately rejected here; the lending operations own them.
func (h *BookHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid book id"})
	}
	var body struct {
		ISBN        *string `json:"isbn"`
		Title       *string `json:"title"`
		Author      *string `json:"author"`
		Category    *string `json:"category"`
		TotalCopies *int    `json:"total_copies"`
		Status      *string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Status != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status cannot be updated here; use the lending endpoints"})
	}
	if body.TotalCopies != nil && *body.TotalCopies < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "total_copies must be at least 1"})
	}
	book, err := h.Store.UpdateBook(c.Request().Context(), id, repository.BookPatch{
		ISBN:        body.ISBN,
		Title:       body.Title,
		Author:      body.Author,
		Category:    body.Category,
		TotalCopies: body.TotalCopies,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "book not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update book failed"})
	}
	return c.JSON(http.StatusOK, book)
}

// Delete handles DELETE /v1/books/:id.  Books with open loans or active
// reservations cannot be removed.
func (h *BookHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid book id"})
	}
	err := h.Store.DeleteBook(c.Request().Context(), id)
	switch {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, sql.ErrNoRows):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "book not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "book has open loans or active reservations"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete book failed"})
	}
}

// Reservations handles GET /v1/books/:id/reservations, the desk view of
// a book's reservation order.
func (h *BookHandler) Reservations(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid book id"})
	}
	if _, err := h.Store.GetBook(c.Request().Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "book not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "fetch book failed"})
	}
	items, err := h.Store.ListReservationsByBook(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list reservations failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
