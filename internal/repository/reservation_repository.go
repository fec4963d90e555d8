package repository

import (
	"context"

	"github.com/iliyamo/library-lending/internal/model"
)

const reservationColumns = `id, book_id, member_id, reserved_at, status`

// LockEarliestActiveReservation locks and returns the oldest active
// reservation for a book, or nil when none exists.  ReservedAt ordering
// (id as tiebreaker) realizes reservation precedence: the returned
// holder has first right to the next available copy.
func (t *storeTx) LockEarliestActiveReservation(ctx context.Context, bookID uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations
	           WHERE book_id = ? AND status = 'active'
	           ORDER BY reserved_at, id LIMIT 1 FOR UPDATE`
	rows, err := t.tx.QueryContext(ctx, q, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	var r model.Reservation
	if err := rows.Scan(&r.ID, &r.BookID, &r.MemberID, &r.ReservedAt, &r.Status); err != nil {
		return nil, err
	}
	return &r, nil
}

// CountActiveReservations counts outstanding claims on a book; the book
// status projection depends on it.
func (t *storeTx) CountActiveReservations(ctx context.Context, bookID uint64) (int, error) {
	const q = `SELECT COUNT(*) FROM reservations WHERE book_id = ? AND status = 'active'`
	var n int
	err := t.tx.QueryRowContext(ctx, q, bookID).Scan(&n)
	return n, err
}

// HasActiveReservation reports whether the member already holds an
// active claim on the book.  At most one is allowed per (member, book).
func (t *storeTx) HasActiveReservation(ctx context.Context, memberID, bookID uint64) (bool, error) {
	const q = `SELECT COUNT(*) FROM reservations WHERE member_id = ? AND book_id = ? AND status = 'active'`
	var n int
	if err := t.tx.QueryRowContext(ctx, q, memberID, bookID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertReservation creates a reservation row and populates the
// generated ID.
func (t *storeTx) InsertReservation(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations (book_id, member_id, reserved_at, status) VALUES (?, ?, ?, ?)`
	result, err := t.tx.ExecContext(ctx, q, res.BookID, res.MemberID, res.ReservedAt.UTC(), res.Status)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// MarkReservationFulfilled moves a reservation to its terminal state;
// called when its holder borrows the reserved book.
func (t *storeTx) MarkReservationFulfilled(ctx context.Context, id uint64) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE reservations SET status = 'fulfilled' WHERE id = ?`, id)
	return err
}

// ListReservationsByBook returns every reservation on a book, oldest
// active claim first.  Read-only view for the desk.
func (s *LibraryStore) ListReservationsByBook(ctx context.Context, bookID uint64) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations
	           WHERE book_id = ? ORDER BY status, reserved_at, id`
	rows, err := s.db.QueryContext(ctx, q, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		var r model.Reservation
		if err := rows.Scan(&r.ID, &r.BookID, &r.MemberID, &r.ReservedAt, &r.Status); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
