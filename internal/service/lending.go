package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/iliyamo/library-lending/internal/model"
	"github.com/iliyamo/library-lending/internal/repository"
	"github.com/iliyamo/library-lending/internal/utils"
)

const (
	// maxOpenLoans is the borrowing cap: a member may hold at most this
	// many unreturned loans (active or overdue).
	maxOpenLoans = 3
	// suspensionOverdueThreshold is the unreturned-overdue count at
	// which a member is suspended.
	suspensionOverdueThreshold = 3
)

// Config carries the externally supplied lending knobs.
type Config struct {
	DailyFineRate  float64 // currency units per whole overdue day
	LoanPeriodDays int     // calendar days between borrow and due date
}

// LendingService is the transactional lending engine.  Each operation
// opens one transaction on the store, first sweeps overdue loans where
// due-date-sensitive state is read, then locks rows in a fixed order
// (sweep rows, member, book, dependent rows), validates, mutates,
// recomputes derived statuses and commits.  Nothing is cached between
// operations; every call re-reads fresh state under locks.
type LendingService struct {
	store repository.Store
	cfg   Config
	now   func() time.Time
}

// NewLendingService constructs the engine.  Zero config fields fall back
// to the defaults (0.5 per day, 14 days).
func NewLendingService(store repository.Store, cfg Config) *LendingService {
	if cfg.DailyFineRate <= 0 {
		cfg.DailyFineRate = 0.5
	}
	if cfg.LoanPeriodDays <= 0 {
		cfg.LoanPeriodDays = 14
	}
	return &LendingService{
		store: store,
		cfg:   cfg,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// ReturnResult is the outcome of a return: the closed loan and the fine
// assessed for it, if the return was late.
type ReturnResult struct {
	LoanID uint64      `json:"transaction_id"`
	Fine   *model.Fine `json:"fine"`
}

// PaymentResult is the outcome of paying a fine.
type PaymentResult struct {
	ID     uint64    `json:"id"`
	PaidAt time.Time `json:"paid_at"`
}

// Borrow lends a copy of the book to the member.  Validation follows a
// fixed order and the first failure aborts the whole transaction:
// member exists and is not suspended, has no unpaid fine, is under the
// borrowing cap; book exists and is not under maintenance; reservation
// precedence (the earliest active reservation must belong to this
// member, and is then fulfilled); a copy is actually available.
func (s *LendingService) Borrow(ctx context.Context, memberID, bookID uint64) (*model.Loan, error) {
	var loan *model.Loan
	err := s.withTx(ctx, func(tx repository.Tx) error {
		if err := s.refreshOverdue(ctx, tx); err != nil {
			return err
		}
		member, err := tx.LockMember(ctx, memberID)
		if err != nil {
			return mapNoRows(err, "member")
		}
		if member.Status == model.MemberSuspended {
			return invalidState("member is suspended and cannot borrow books")
		}
		unpaid, err := tx.CountUnpaidFines(ctx, memberID)
		if err != nil {
			return err
		}
		if unpaid > 0 {
			return invalidState("member has unpaid fines and cannot borrow books")
		}
		open, err := tx.CountOpenLoans(ctx, memberID)
		if err != nil {
			return err
		}
		if open >= maxOpenLoans {
			return limitExceeded(fmt.Sprintf("member has reached the borrowing limit of %d books", maxOpenLoans))
		}
		book, err := tx.LockBook(ctx, bookID)
		if err != nil {
			return mapNoRows(err, "book")
		}
		if book.Status == model.BookMaintenance {
			return invalidState("book is under maintenance and cannot be borrowed")
		}
		head, err := tx.LockEarliestActiveReservation(ctx, bookID)
		if err != nil {
			return err
		}
		if head != nil {
			if head.MemberID != memberID {
				return invalidState("book is reserved for another member")
			}
			if err := tx.MarkReservationFulfilled(ctx, head.ID); err != nil {
				return err
			}
		}
		if book.AvailableCopies <= 0 {
			return invalidState("no available copies to borrow")
		}

		now := s.now()
		loan = &model.Loan{
			BookID:     bookID,
			MemberID:   memberID,
			BorrowedAt: now,
			DueDate:    utils.AddDays(now, s.cfg.LoanPeriodDays),
			Status:     model.LoanActive,
		}
		if err := tx.InsertLoan(ctx, loan); err != nil {
			return err
		}
		return s.updateBookProjection(ctx, tx, book, book.AvailableCopies-1)
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// Return closes a loan, assesses a fine when the return is late (whole
// overdue days, day-boundary truncated, times the daily rate — at most
// one fine per loan, never adjusted afterwards), restores the copy and
// recomputes the member's status, since a return can clear the overdue
// count that was driving a suspension.
func (s *LendingService) Return(ctx context.Context, loanID uint64) (*ReturnResult, error) {
	var result *ReturnResult
	err := s.withTx(ctx, func(tx repository.Tx) error {
		if err := s.refreshOverdue(ctx, tx); err != nil {
			return err
		}
		loan, err := tx.LockLoan(ctx, loanID)
		if err != nil {
			return mapNoRows(err, "loan")
		}
		if loan.ReturnedAt != nil {
			return invalidState("loan is already returned")
		}
		member, err := tx.LockMember(ctx, loan.MemberID)
		if err != nil {
			return err
		}
		book, err := tx.LockBook(ctx, loan.BookID)
		if err != nil {
			return err
		}

		now := s.now()
		var fine *model.Fine
		if now.After(loan.DueDate) {
			if days := utils.DaysBetween(now, loan.DueDate); days > 0 {
				fine = &model.Fine{
					MemberID: member.ID,
					LoanID:   loan.ID,
					Amount:   float64(days) * s.cfg.DailyFineRate,
				}
				if err := tx.InsertFine(ctx, fine); err != nil {
					return err
				}
			}
		}
		if err := tx.MarkLoanReturned(ctx, loan.ID, now); err != nil {
			return err
		}
		if err := s.updateBookProjection(ctx, tx, book, book.AvailableCopies+1); err != nil {
			return err
		}
		if _, err := s.recomputeMemberStatus(ctx, tx, member.ID); err != nil {
			return err
		}
		result = &ReturnResult{LoanID: loan.ID, Fine: fine}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Reserve places a claim on the next available copy of a book for the
// member.  At most one active reservation per (member, book) pair.
func (s *LendingService) Reserve(ctx context.Context, memberID, bookID uint64) (*model.Reservation, error) {
	var res *model.Reservation
	err := s.withTx(ctx, func(tx repository.Tx) error {
		member, err := tx.LockMember(ctx, memberID)
		if err != nil {
			return mapNoRows(err, "member")
		}
		if member.Status == model.MemberSuspended {
			return invalidState("member is suspended and cannot reserve books")
		}
		book, err := tx.LockBook(ctx, bookID)
		if err != nil {
			return mapNoRows(err, "book")
		}
		if book.Status == model.BookMaintenance {
			return invalidState("book is under maintenance and cannot be reserved")
		}
		dup, err := tx.HasActiveReservation(ctx, memberID, bookID)
		if err != nil {
			return err
		}
		if dup {
			return invalidState("member already has an active reservation for this book")
		}
		res = &model.Reservation{
			BookID:     bookID,
			MemberID:   memberID,
			ReservedAt: s.now(),
			Status:     model.ReservationActive,
		}
		if err := tx.InsertReservation(ctx, res); err != nil {
			return err
		}
		return s.updateBookProjection(ctx, tx, book, book.AvailableCopies)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// PayFine settles an unpaid fine and recomputes the member's status,
// since clearing the last unpaid fine may lift a suspension.  Payment is
// irreversible.
func (s *LendingService) PayFine(ctx context.Context, fineID uint64) (*PaymentResult, error) {
	var result *PaymentResult
	err := s.withTx(ctx, func(tx repository.Tx) error {
		fine, err := tx.LockFine(ctx, fineID)
		if err != nil {
			return mapNoRows(err, "fine")
		}
		if fine.PaidAt != nil {
			return invalidState("fine is already paid")
		}
		paidAt := s.now()
		if err := tx.MarkFinePaid(ctx, fine.ID, paidAt); err != nil {
			return err
		}
		if _, err := s.recomputeMemberStatus(ctx, tx, fine.MemberID); err != nil {
			return err
		}
		result = &PaymentResult{ID: fine.ID, PaidAt: paidAt}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListOverdue sweeps due loans first, then returns every currently
// overdue, unreturned loan.
func (s *LendingService) ListOverdue(ctx context.Context) ([]model.Loan, error) {
	var loans []model.Loan
	err := s.withTx(ctx, func(tx repository.Tx) error {
		if err := s.refreshOverdue(ctx, tx); err != nil {
			return err
		}
		var err error
		loans, err = tx.ListOverdueLoans(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return loans, nil
}

// SetMaintenance moves a book into or out of the maintenance state.
// While in maintenance a book can be neither borrowed nor reserved; on
// exit its status is reprojected from copies and reservations.
func (s *LendingService) SetMaintenance(ctx context.Context, bookID uint64, on bool) (*model.Book, error) {
	var updated *model.Book
	err := s.withTx(ctx, func(tx repository.Tx) error {
		book, err := tx.LockBook(ctx, bookID)
		if err != nil {
			return mapNoRows(err, "book")
		}
		status := model.BookMaintenance
		if !on {
			active, err := tx.CountActiveReservations(ctx, bookID)
			if err != nil {
				return err
			}
			status = projectBookStatus(model.BookAvailable, book.AvailableCopies, active)
		}
		if err := tx.SetBookAvailability(ctx, bookID, book.AvailableCopies, status); err != nil {
			return err
		}
		book.Status = status
		updated = book
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// refreshOverdue locks every unreturned active loan past due, flips it
// to overdue and recomputes the status of each affected member.
// Idempotent: a second run with no newly passed due dates sees no rows
// and is a no-op.  Runs at the start of every operation that reads
// due-date-sensitive state, so decisions never use stale overdue status.
func (s *LendingService) refreshOverdue(ctx context.Context, tx repository.Tx) error {
	due, err := tx.LockDueLoans(ctx, s.now())
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}
	ids := make([]uint64, 0, len(due))
	memberSet := make(map[uint64]struct{})
	for _, loan := range due {
		ids = append(ids, loan.ID)
		memberSet[loan.MemberID] = struct{}{}
	}
	if err := tx.MarkLoansOverdue(ctx, ids); err != nil {
		return err
	}
	// Deterministic member order keeps lock acquisition stable across
	// concurrent sweeps.
	members := make([]uint64, 0, len(memberSet))
	for id := range memberSet {
		members = append(members, id)
	}
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
	for _, id := range members {
		if _, err := s.recomputeMemberStatus(ctx, tx, id); err != nil {
			return err
		}
	}
	return nil
}

// recomputeMemberStatus derives a member's eligibility from current
// counts: suspended when unreturned overdue loans reach the threshold or
// any fine is unpaid, active otherwise.  Pure projection — it never
// creates or deletes loans or fines, and redundant calls are safe.
func (s *LendingService) recomputeMemberStatus(ctx context.Context, tx repository.Tx, memberID uint64) (model.MemberStatus, error) {
	overdue, err := tx.CountOverdueLoans(ctx, memberID)
	if err != nil {
		return "", err
	}
	unpaid, err := tx.CountUnpaidFines(ctx, memberID)
	if err != nil {
		return "", err
	}
	status := model.MemberActive
	if overdue >= suspensionOverdueThreshold || unpaid > 0 {
		status = model.MemberSuspended
	}
	if err := tx.SetMemberStatus(ctx, memberID, status); err != nil {
		return "", err
	}
	return status, nil
}

// projectBookStatus is the single projection rule for book status,
// applied identically by borrow, return, reserve and maintenance exit.
// Any outstanding reservation marks the book reserved, because
// reservation precedence blocks every non-holder from borrowing it.
func projectBookStatus(current model.BookStatus, available, activeReservations int) model.BookStatus {
	switch {
	case current == model.BookMaintenance:
		return model.BookMaintenance
	case activeReservations > 0:
		return model.BookReserved
	case available == 0:
		return model.BookBorrowed
	default:
		return model.BookAvailable
	}
}

// updateBookProjection writes a new available count together with the
// status projected from it and the current reservation count.
func (s *LendingService) updateBookProjection(ctx context.Context, tx repository.Tx, book *model.Book, available int) error {
	active, err := tx.CountActiveReservations(ctx, book.ID)
	if err != nil {
		return err
	}
	return tx.SetBookAvailability(ctx, book.ID, available, projectBookStatus(book.Status, available, active))
}

// withTx runs fn inside one store transaction, committing on success and
// rolling back on any error so no mutation is ever partially visible.
func (s *LendingService) withTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// mapNoRows turns a row-absence report into the taxonomy's NotFound;
// other store failures pass through untouched.
func mapNoRows(err error, entity string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(entity)
	}
	return err
}
