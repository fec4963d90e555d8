package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/library-lending/internal/model"
)

// LockMember reads a member row with an exclusive lock held until the
// transaction ends.  Returns sql.ErrNoRows when the member does not
// exist.
func (t *storeTx) LockMember(ctx context.Context, id uint64) (*model.Member, error) {
	const q = `SELECT id, name, email, membership_number, status, created_at, updated_at
	           FROM members WHERE id = ? FOR UPDATE`
	return scanMember(t.tx.QueryRowContext(ctx, q, id))
}

// SetMemberStatus writes a recomputed eligibility status.
func (t *storeTx) SetMemberStatus(ctx context.Context, id uint64, status model.MemberStatus) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE members SET status = ? WHERE id = ?`, status, id)
	return err
}

// CountOverdueLoans counts the member's unreturned overdue loans.
func (t *storeTx) CountOverdueLoans(ctx context.Context, memberID uint64) (int, error) {
	const q = `SELECT COUNT(*) FROM loans WHERE member_id = ? AND status = 'overdue' AND returned_at IS NULL`
	var n int
	err := t.tx.QueryRowContext(ctx, q, memberID).Scan(&n)
	return n, err
}

// CountOpenLoans counts the member's unreturned loans in either the
// active or overdue state; the borrowing cap is checked against this.
func (t *storeTx) CountOpenLoans(ctx context.Context, memberID uint64) (int, error) {
	const q = `SELECT COUNT(*) FROM loans
	           WHERE member_id = ? AND returned_at IS NULL AND status IN ('active', 'overdue')`
	var n int
	err := t.tx.QueryRowContext(ctx, q, memberID).Scan(&n)
	return n, err
}

// CountUnpaidFines counts the member's fines with no paid timestamp.
func (t *storeTx) CountUnpaidFines(ctx context.Context, memberID uint64) (int, error) {
	const q = `SELECT COUNT(*) FROM fines WHERE member_id = ? AND paid_at IS NULL`
	var n int
	err := t.tx.QueryRowContext(ctx, q, memberID).Scan(&n)
	return n, err
}

// Plain member access for the pass-through endpoints.

// CreateMember inserts a member and populates the generated ID,
// membership number and timestamps on m.  A fresh membership number is
// issued when the caller did not supply one.
func (s *LibraryStore) CreateMember(ctx context.Context, m *model.Member) error {
	if strings.TrimSpace(m.MembershipNumber) == "" {
		m.MembershipNumber = "LIB-" + strings.ToUpper(uuid.NewString()[:8])
	}
	if m.Status == "" {
		m.Status = model.MemberActive
	}
	const q = `INSERT INTO members (name, email, membership_number, status) VALUES (?, ?, ?, ?)`
	result, err := s.db.ExecContext(ctx, q, m.Name, m.Email, m.MembershipNumber, m.Status)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrEmailExists
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	got, err := s.GetMember(ctx, m.ID)
	if err != nil {
		return err
	}
	*m = *got
	return nil
}

// GetMember returns a single member or sql.ErrNoRows.
func (s *LibraryStore) GetMember(ctx context.Context, id uint64) (*model.Member, error) {
	const q = `SELECT id, name, email, membership_number, status, created_at, updated_at
	           FROM members WHERE id = ?`
	return scanMember(s.db.QueryRowContext(ctx, q, id))
}

// ListMembers returns all members ordered by id.
func (s *LibraryStore) ListMembers(ctx context.Context) ([]model.Member, error) {
	const q = `SELECT id, name, email, membership_number, status, created_at, updated_at
	           FROM members ORDER BY id`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	members := make([]model.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// MemberPatch carries the updatable member fields; nil means keep.
// Status is excluded: it is owned by the status calculator.
type MemberPatch struct {
	Name             *string
	Email            *string
	MembershipNumber *string
}

// UpdateMember applies patch and returns the updated row.
func (s *LibraryStore) UpdateMember(ctx context.Context, id uint64, patch MemberPatch) (*model.Member, error) {
	const q = `UPDATE members
	           SET name = COALESCE(?, name),
	               email = COALESCE(?, email),
	               membership_number = COALESCE(?, membership_number)
	           WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, q, patch.Name, patch.Email, patch.MembershipNumber, id); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	return s.GetMember(ctx, id)
}

// DeleteMember removes a member.  Returns sql.ErrNoRows when absent and
// ErrConflict when open loans or unpaid fines remain.
func (s *LibraryStore) DeleteMember(ctx context.Context, id uint64) error {
	var open int
	const check = `SELECT (SELECT COUNT(*) FROM loans WHERE member_id = ? AND returned_at IS NULL) +
	                      (SELECT COUNT(*) FROM fines WHERE member_id = ? AND paid_at IS NULL)`
	if err := s.db.QueryRowContext(ctx, check, id, id).Scan(&open); err != nil {
		return err
	}
	if open > 0 {
		return ErrConflict
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM members WHERE id = ?`, id)
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

func scanMember(row rowScanner) (*model.Member, error) {
	var m model.Member
	err := row.Scan(&m.ID, &m.Name, &m.Email, &m.MembershipNumber, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
