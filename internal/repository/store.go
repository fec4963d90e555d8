// Package repository implements data access for the lending service on
// top of database/sql.  The lending engine consumes the Store and Tx
// interfaces defined here; LibraryStore is the MySQL implementation.
// Locking reads use SELECT ... FOR UPDATE, so a locked row stays
// exclusively held until the surrounding transaction commits or rolls
// back.  Absent rows are reported as sql.ErrNoRows.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/library-lending/internal/model"
)

// Store opens transactions against the persistent store.  Every lending
// operation runs inside exactly one Tx.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is an open transaction exposing the row operations the lending
// engine needs: locking reads held to transaction end, inserts returning
// generated IDs, conditional updates and filtered counts.  Callers must
// finish with Commit or Rollback; all mutations become visible atomically
// on Commit.
type Tx interface {
	Commit() error
	Rollback() error

	// Overdue sweep.
	LockDueLoans(ctx context.Context, now time.Time) ([]model.Loan, error)
	MarkLoansOverdue(ctx context.Context, ids []uint64) error
	ListOverdueLoans(ctx context.Context) ([]model.Loan, error)

	// Members.
	LockMember(ctx context.Context, id uint64) (*model.Member, error)
	SetMemberStatus(ctx context.Context, id uint64, status model.MemberStatus) error
	CountOverdueLoans(ctx context.Context, memberID uint64) (int, error)
	CountOpenLoans(ctx context.Context, memberID uint64) (int, error)
	CountUnpaidFines(ctx context.Context, memberID uint64) (int, error)

	// Books.
	LockBook(ctx context.Context, id uint64) (*model.Book, error)
	SetBookAvailability(ctx context.Context, id uint64, available int, status model.BookStatus) error

	// Loans.
	InsertLoan(ctx context.Context, loan *model.Loan) error
	LockLoan(ctx context.Context, id uint64) (*model.Loan, error)
	MarkLoanReturned(ctx context.Context, id uint64, at time.Time) error

	// Fines.
	InsertFine(ctx context.Context, fine *model.Fine) error
	LockFine(ctx context.Context, id uint64) (*model.Fine, error)
	MarkFinePaid(ctx context.Context, id uint64, at time.Time) error

	// Reservations.
	LockEarliestActiveReservation(ctx context.Context, bookID uint64) (*model.Reservation, error)
	CountActiveReservations(ctx context.Context, bookID uint64) (int, error)
	HasActiveReservation(ctx context.Context, memberID, bookID uint64) (bool, error)
	InsertReservation(ctx context.Context, res *model.Reservation) error
	MarkReservationFulfilled(ctx context.Context, id uint64) error
}

// LibraryStore provides transactional and plain data access backed by
// MySQL.  The non-transactional CRUD methods used by the catalog
// pass-through endpoints live in the per-entity files of this package.
type LibraryStore struct {
	db *sql.DB
}

// NewLibraryStore returns a LibraryStore bound to the given database.
func NewLibraryStore(db *sql.DB) *LibraryStore { return &LibraryStore{db: db} }

// DB exposes the underlying handle for callers that manage their own
// statements (auth repositories share the pool).
func (s *LibraryStore) DB() *sql.DB { return s.db }

// Begin opens a transaction.  The default isolation level (REPEATABLE
// READ with InnoDB row locks on FOR UPDATE reads) provides the exclusive
// per-row holds the engine relies on.
func (s *LibraryStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &storeTx{tx: tx}, nil
}

// storeTx wraps *sql.Tx with the domain operations of the Tx interface.
// Methods are spread across the per-entity files in this package.
type storeTx struct {
	tx *sql.Tx
}

func (t *storeTx) Commit() error   { return t.tx.Commit() }
func (t *storeTx) Rollback() error { return t.tx.Rollback() }
