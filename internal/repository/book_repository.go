package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/library-lending/internal/model"
)

// Locking reads and conditional updates used inside lending
// transactions.

// LockBook reads a book row with an exclusive lock held until the
// transaction ends.  Returns sql.ErrNoRows when the book does not exist.
func (t *storeTx) LockBook(ctx context.Context, id uint64) (*model.Book, error) {
	const q = `SELECT id, isbn, title, author, category, status, total_copies, available_copies, created_at, updated_at
	           FROM books WHERE id = ? FOR UPDATE`
	return scanBook(t.tx.QueryRowContext(ctx, q, id))
}

// SetBookAvailability writes the available-copy count and the projected
// status for a locked book row.
func (t *storeTx) SetBookAvailability(ctx context.Context, id uint64, available int, status model.BookStatus) error {
	const q = `UPDATE books SET available_copies = ?, status = ? WHERE id = ?`
	_, err := t.tx.ExecContext(ctx, q, available, status, id)
	return err
}

// Plain catalog access for the pass-through endpoints.  These carry no
// lending invariants and run outside lending transactions.

// CreateBook inserts a catalog row and populates the generated ID and
// timestamps on b.  AvailableCopies defaults to TotalCopies when the
// caller left it at -1.
func (s *LibraryStore) CreateBook(ctx context.Context, b *model.Book) error {
	if b.AvailableCopies < 0 {
		b.AvailableCopies = b.TotalCopies
	}
	const q = `INSERT INTO books (isbn, title, author, category, status, total_copies, available_copies)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := s.db.ExecContext(ctx, q, b.ISBN, b.Title, b.Author, b.Category, b.Status, b.TotalCopies, b.AvailableCopies)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	got, err := s.GetBook(ctx, b.ID)
	if err != nil {
		return err
	}
	*b = *got
	return nil
}

// GetBook returns a single book or sql.ErrNoRows.
func (s *LibraryStore) GetBook(ctx context.Context, id uint64) (*model.Book, error) {
	const q = `SELECT id, isbn, title, author, category, status, total_copies, available_copies, created_at, updated_at
	           FROM books WHERE id = ?`
	return scanBook(s.db.QueryRowContext(ctx, q, id))
}

// ListBooks returns the catalog ordered by id.  When query is non-empty
// it filters on title, author and category with a case-insensitive
// substring match.
func (s *LibraryStore) ListBooks(ctx context.Context, query string) ([]model.Book, error) {
	q := `SELECT id, isbn, title, author, category, status, total_copies, available_copies, created_at, updated_at
	      FROM books`
	var args []interface{}
	if strings.TrimSpace(query) != "" {
		q += ` WHERE title LIKE ? OR author LIKE ? OR category LIKE ?`
		like := "%" + strings.TrimSpace(query) + "%"
		args = append(args, like, like, like)
	}
	q += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	books := make([]model.Book, 0)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, *b)
	}
	return books, rows.Err()
}

// UpdateBook applies the non-nil fields of patch to a book.  Status and
// available_copies are deliberately not updatable here: they belong to
// the lending state transitions.
type BookPatch struct {
	ISBN        *string
	Title       *string
	Author      *string
	Category    *string
	TotalCopies *int
}

func (s *LibraryStore) UpdateBook(ctx context.Context, id uint64, patch BookPatch) (*model.Book, error) {
	const q = `UPDATE books
	           SET isbn = COALESCE(?, isbn),
	               title = COALESCE(?, title),
	               author = COALESCE(?, author),
	               category = COALESCE(?, category),
	               total_copies = COALESCE(?, total_copies)
	           WHERE id = ?`
	result, err := s.db.ExecContext(ctx, q, patch.ISBN, patch.Title, patch.Author, patch.Category, patch.TotalCopies, id)
	if err != nil {
		return nil, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// MySQL reports zero affected rows for no-op updates too, so
		// distinguish a missing row explicitly.
		if _, err := s.GetBook(ctx, id); err != nil {
			return nil, err
		}
	}
	return s.GetBook(ctx, id)
}

// DeleteBook removes a catalog row.  Returns sql.ErrNoRows when the book
// does not exist and ErrConflict when loans or reservations still
// reference it.
func (s *LibraryStore) DeleteBook(ctx context.Context, id uint64) error {
	var open int
	const check = `SELECT (SELECT COUNT(*) FROM loans WHERE book_id = ? AND returned_at IS NULL) +
	                      (SELECT COUNT(*) FROM reservations WHERE book_id = ? AND status = 'active')`
	if err := s.db.QueryRowContext(ctx, check, id, id).Scan(&open); err != nil {
		return err
	}
	if open > 0 {
		return ErrConflict
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBook(row rowScanner) (*model.Book, error) {
	var b model.Book
	var category sql.NullString
	err := row.Scan(&b.ID, &b.ISBN, &b.Title, &b.Author, &category, &b.Status,
		&b.TotalCopies, &b.AvailableCopies, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if category.Valid {
		c := category.String
		b.Category = &c
	}
	return &b, nil
}
