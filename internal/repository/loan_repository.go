package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/library-lending/internal/model"
)

const loanColumns = `id, book_id, member_id, borrowed_at, due_date, returned_at, status`

// LockDueLoans locks every unreturned active loan whose due date has
// passed and returns them.  The rows stay locked until the transaction
// ends so the subsequent overdue flip cannot race a concurrent sweep.
func (t *storeTx) LockDueLoans(ctx context.Context, now time.Time) ([]model.Loan, error) {
	const q = `SELECT ` + loanColumns + ` FROM loans
	           WHERE status = 'active' AND returned_at IS NULL AND due_date < ?
	           ORDER BY id FOR UPDATE`
	rows, err := t.tx.QueryContext(ctx, q, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLoans(rows)
}

// MarkLoansOverdue flips the given loans to the overdue state.  Passing
// an empty slice has no effect and returns nil.
func (t *storeTx) MarkLoansOverdue(ctx context.Context, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	q := `UPDATE loans SET status = 'overdue' WHERE id IN (` + strings.Join(placeholders, ",") + `)`
	_, err := t.tx.ExecContext(ctx, q, args...)
	return err
}

// ListOverdueLoans returns all currently overdue, unreturned loans.
func (t *storeTx) ListOverdueLoans(ctx context.Context) ([]model.Loan, error) {
	const q = `SELECT ` + loanColumns + ` FROM loans
	           WHERE status = 'overdue' AND returned_at IS NULL ORDER BY due_date`
	rows, err := t.tx.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLoans(rows)
}

// InsertLoan creates a loan row and populates the generated ID.
func (t *storeTx) InsertLoan(ctx context.Context, loan *model.Loan) error {
	const q = `INSERT INTO loans (book_id, member_id, borrowed_at, due_date, status) VALUES (?, ?, ?, ?, ?)`
	result, err := t.tx.ExecContext(ctx, q,
		loan.BookID, loan.MemberID, loan.BorrowedAt.UTC(), loan.DueDate.UTC(), loan.Status)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	loan.ID = uint64(id)
	return nil
}

// LockLoan reads a loan row with an exclusive lock held until the
// transaction ends.  Returns sql.ErrNoRows when the loan does not exist.
func (t *storeTx) LockLoan(ctx context.Context, id uint64) (*model.Loan, error) {
	const q = `SELECT ` + loanColumns + ` FROM loans WHERE id = ? FOR UPDATE`
	return scanLoan(t.tx.QueryRowContext(ctx, q, id))
}

// MarkLoanReturned stamps the return timestamp and moves the loan to its
// terminal state.
func (t *storeTx) MarkLoanReturned(ctx context.Context, id uint64, at time.Time) error {
	const q = `UPDATE loans SET returned_at = ?, status = 'returned' WHERE id = ?`
	_, err := t.tx.ExecContext(ctx, q, at.UTC(), id)
	return err
}

// ListLoansByMember returns a member's full lending history, newest
// first.  Used by the read-only history endpoint.
func (s *LibraryStore) ListLoansByMember(ctx context.Context, memberID uint64) ([]model.Loan, error) {
	const q = `SELECT ` + loanColumns + ` FROM loans WHERE member_id = ? ORDER BY borrowed_at DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, q, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLoans(rows)
}

func scanLoan(row rowScanner) (*model.Loan, error) {
	var l model.Loan
	var returnedAt sql.NullTime
	err := row.Scan(&l.ID, &l.BookID, &l.MemberID, &l.BorrowedAt, &l.DueDate, &returnedAt, &l.Status)
	if err != nil {
		return nil, err
	}
	if returnedAt.Valid {
		at := returnedAt.Time
		l.ReturnedAt = &at
	}
	return &l, nil
}

func collectLoans(rows *sql.Rows) ([]model.Loan, error) {
	loans := make([]model.Loan, 0)
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, *l)
	}
	return loans, rows.Err()
}
