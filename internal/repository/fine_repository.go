package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/library-lending/internal/model"
)

// InsertFine creates a fine row and populates the generated ID.
func (t *storeTx) InsertFine(ctx context.Context, fine *model.Fine) error {
	const q = `INSERT INTO fines (member_id, loan_id, amount) VALUES (?, ?, ?)`
	result, err := t.tx.ExecContext(ctx, q, fine.MemberID, fine.LoanID, fine.Amount)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	fine.ID = uint64(id)
	return nil
}

// LockFine reads a fine row with an exclusive lock held until the
// transaction ends.  Returns sql.ErrNoRows when the fine does not exist.
func (t *storeTx) LockFine(ctx context.Context, id uint64) (*model.Fine, error) {
	const q = `SELECT id, member_id, loan_id, amount, paid_at FROM fines WHERE id = ? FOR UPDATE`
	return scanFine(t.tx.QueryRowContext(ctx, q, id))
}

// MarkFinePaid stamps the payment timestamp.  Payment is irreversible;
// the service rejects already-paid fines before calling this.
func (t *storeTx) MarkFinePaid(ctx context.Context, id uint64, at time.Time) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE fines SET paid_at = ? WHERE id = ?`, at.UTC(), id)
	return err
}

// ListFinesByMember returns a member's fines, unpaid first, newest
// within each group.
func (s *LibraryStore) ListFinesByMember(ctx context.Context, memberID uint64) ([]model.Fine, error) {
	const q = `SELECT id, member_id, loan_id, amount, paid_at FROM fines
	           WHERE member_id = ? ORDER BY paid_at IS NOT NULL, id DESC`
	rows, err := s.db.QueryContext(ctx, q, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	fines := make([]model.Fine, 0)
	for rows.Next() {
		f, err := scanFine(rows)
		if err != nil {
			return nil, err
		}
		fines = append(fines, *f)
	}
	return fines, rows.Err()
}

func scanFine(row rowScanner) (*model.Fine, error) {
	var f model.Fine
	var paidAt sql.NullTime
	if err := row.Scan(&f.ID, &f.MemberID, &f.LoanID, &f.Amount, &paidAt); err != nil {
		return nil, err
	}
	if paidAt.Valid {
		at := paidAt.Time
		f.PaidAt = &at
	}
	return &f, nil
}
