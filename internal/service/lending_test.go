package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/library-lending/internal/model"
	"github.com/iliyamo/library-lending/internal/repository"
)

var _ repository.Tx = (*memTx)(nil)

type clock struct{ t time.Time }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newEngine(t *testing.T) (*LendingService, *memStore, *clock) {
	t.Helper()
	store := newMemStore()
	ck := &clock{t: time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewLendingService(store, Config{})
	svc.now = func() time.Time { return ck.t }
	return svc, store, ck
}

func seedBook(store *memStore, copies int) uint64 {
	return store.addBook(model.Book{
		ISBN: "978-0-0000", Title: "The Go Programming Language", Author: "Donovan",
		Status: model.BookAvailable, TotalCopies: copies, AvailableCopies: copies,
	})
}

func seedMember(store *memStore) uint64 {
	return store.addMember(model.Member{
		Name: "Ada", Email: "ada@example.com", MembershipNumber: "LIB-0001",
		Status: model.MemberActive,
	})
}

func TestBorrowCreatesActiveLoan(t *testing.T) {
	svc, store, ck := newEngine(t)
	bookID := seedBook(store, 2)
	memberID := seedMember(store)

	loan, err := svc.Borrow(context.Background(), memberID, bookID)
	require.NoError(t, err)

	assert.Equal(t, model.LoanActive, loan.Status)
	assert.Equal(t, ck.t, loan.BorrowedAt)
	assert.Equal(t, ck.t.AddDate(0, 0, 14), loan.DueDate)
	assert.Equal(t, 1, store.book(bookID).AvailableCopies)
	assert.Equal(t, model.BookAvailable, store.book(bookID).Status)

	// last copy out flips the projection to borrowed
	other := seedMember(store)
	_, err = svc.Borrow(context.Background(), other, bookID)
	require.NoError(t, err)
	assert.Equal(t, 0, store.book(bookID).AvailableCopies)
	assert.Equal(t, model.BookBorrowed, store.book(bookID).Status)
}

func TestBorrowValidationFailures(t *testing.T) {
	svc, store, _ := newEngine(t)
	bookID := seedBook(store, 1)
	memberID := seedMember(store)

	t.Run("unknown member", func(t *testing.T) {
		_, err := svc.Borrow(context.Background(), 999, bookID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
	t.Run("unknown book", func(t *testing.T) {
		_, err := svc.Borrow(context.Background(), memberID, 999)
		assert.ErrorIs(t, err, ErrNotFound)
	})
	t.Run("suspended member", func(t *testing.T) {
		suspended := store.addMember(model.Member{Status: model.MemberSuspended})
		_, err := svc.Borrow(context.Background(), suspended, bookID)
		assert.ErrorIs(t, err, ErrInvalidState)
	})
	t.Run("unpaid fine blocks borrowing", func(t *testing.T) {
		fined := seedMember(store)
		store.addFine(model.Fine{MemberID: fined, LoanID: 1, Amount: 0.5})
		_, err := svc.Borrow(context.Background(), fined, bookID)
		assert.ErrorIs(t, err, ErrInvalidState)
	})
	t.Run("maintenance book", func(t *testing.T) {
		closed := store.addBook(model.Book{Status: model.BookMaintenance, TotalCopies: 1, AvailableCopies: 1})
		_, err := svc.Borrow(context.Background(), memberID, closed)
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestBorrowingLimit(t *testing.T) {
	svc, store, _ := newEngine(t)
	memberID := seedMember(store)

	// two open loans: the third borrow succeeds
	for i := 0; i < 2; i++ {
		b := seedBook(store, 1)
		_, err := svc.Borrow(context.Background(), memberID, b)
		require.NoError(t, err)
	}
	third := seedBook(store, 1)
	_, err := svc.Borrow(context.Background(), memberID, third)
	require.NoError(t, err)

	// three open loans: the fourth is rejected
	fourth := seedBook(store, 1)
	_, err = svc.Borrow(context.Background(), memberID, fourth)
	assert.ErrorIs(t, err, ErrLimitExceeded)
	assert.Equal(t, 1, store.book(fourth).AvailableCopies)
}

func TestReturnOnTime(t *testing.T) {
	svc, store, ck := newEngine(t)
	bookID := seedBook(store, 1)
	memberID := seedMember(store)

	loan, err := svc.Borrow(context.Background(), memberID, bookID)
	require.NoError(t, err)
	assert.Equal(t, 0, store.book(bookID).AvailableCopies)

	ck.advance(5 * 24 * time.Hour)
	result, err := svc.Return(context.Background(), loan.ID)
	require.NoError(t, err)

	assert.Nil(t, result.Fine)
	assert.Equal(t, 1, store.book(bookID).AvailableCopies)
	assert.Equal(t, model.BookAvailable, store.book(bookID).Status)
	got := store.loan(loan.ID)
	assert.Equal(t, model.LoanReturned, got.Status)
	require.NotNil(t, got.ReturnedAt)
	assert.Equal(t, ck.t, *got.ReturnedAt)
}

func TestReturnLateCreatesFine(t *testing.T) {
	svc, store, ck := newEngine(t)
	bookID := seedBook(store, 1)
	memberID := seedMember(store)

	// borrowed 2023-01-01, due 2023-01-15, returned 2023-01-18
	loan, err := svc.Borrow(context.Background(), memberID, bookID)
	require.NoError(t, err)
	require.Equal(t, time.Date(2023, 1, 15, 12, 0, 0, 0, time.UTC), loan.DueDate)

	ck.t = time.Date(2023, 1, 18, 9, 30, 0, 0, time.UTC)
	result, err := svc.Return(context.Background(), loan.ID)
	require.NoError(t, err)

	require.NotNil(t, result.Fine)
	assert.Equal(t, 3.0*0.5, result.Fine.Amount)
	assert.Equal(t, loan.ID, result.Fine.LoanID)
	assert.Nil(t, result.Fine.PaidAt)
	// an unpaid fine suspends the member immediately
	assert.Equal(t, model.MemberSuspended, store.member(memberID).Status)
}

func TestReturnSameDayAfterDueHasNoFine(t *testing.T) {
	svc, store, ck := newEngine(t)
	bookID := seedBook(store, 1)
	memberID := seedMember(store)

	loan, err := svc.Borrow(context.Background(), memberID, bookID)
	require.NoError(t, err)

	// past the due timestamp but still the same calendar day
	ck.t = loan.DueDate.Add(3 * time.Hour)
	result, err := svc.Return(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.Nil(t, result.Fine)
}

func TestReturnAlreadyReturned(t *testing.T) {
	svc, store, _ := newEngine(t)
	bookID := seedBook(store, 1)
	memberID := seedMember(store)

	loan, err := svc.Borrow(context.Background(), memberID, bookID)
	require.NoError(t, err)
	_, err = svc.Return(context.Background(), loan.ID)
	require.NoError(t, err)

	_, err = svc.Return(context.Background(), loan.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 1, store.book(bookID).AvailableCopies)
}

func TestOverdueRefreshIsIdempotent(t *testing.T) {
	svc, store, ck := newEngine(t)
	bookID := seedBook(store, 1)
	memberID := seedMember(store)

	loan, err := svc.Borrow(context.Background(), memberID, bookID)
	require.NoError(t, err)

	ck.advance(20 * 24 * time.Hour)
	first, err := svc.ListOverdue(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, loan.ID, first[0].ID)
	assert.Equal(t, model.LoanOverdue, first[0].Status)
	statusAfterFirst := store.member(memberID).Status

	second, err := svc.ListOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, statusAfterFirst, store.member(memberID).Status)
}

func TestSuspensionFromOverdueCount(t *testing.T) {
	svc, store, ck := newEngine(t)
	memberID := seedMember(store)

	loans := make([]uint64, 0, 3)
	for i := 0; i < 3; i++ {
		b := seedBook(store, 1)
		l, err := svc.Borrow(context.Background(), memberID, b)
		require.NoError(t, err)
		loans = append(loans, l.ID)
	}

	// all three pass their due dates: the sweep suspends the member
	ck.advance(30 * 24 * time.Hour)
	_, err := svc.ListOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.MemberSuspended, store.member(memberID).Status)

	b := seedBook(store, 1)
	_, err = svc.Borrow(context.Background(), memberID, b)
	assert.ErrorIs(t, err, ErrInvalidState)

	// returning one loan drops the overdue count below the threshold,
	// but the late-return fines keep the member suspended until paid
	result, err := svc.Return(context.Background(), loans[0])
	require.NoError(t, err)
	require.NotNil(t, result.Fine)
	assert.Equal(t, model.MemberSuspended, store.member(memberID).Status)

	payment, err := svc.PayFine(context.Background(), result.Fine.ID)
	require.NoError(t, err)
	assert.Equal(t, ck.t, payment.PaidAt)
	// two overdue loans remain and no unpaid fine: active again
	assert.Equal(t, model.MemberActive, store.member(memberID).Status)
}

func TestPayFine(t *testing.T) {
	svc, store, _ := newEngine(t)
	memberID := seedMember(store)
	fineID := store.addFine(model.Fine{MemberID: memberID, LoanID: 1, Amount: 1.5})
	store.state.members[memberID].Status = model.MemberSuspended

	payment, err := svc.PayFine(context.Background(), fineID)
	require.NoError(t, err)
	assert.Equal(t, fineID, payment.ID)
	require.NotNil(t, store.fine(fineID).PaidAt)
	assert.Equal(t, model.MemberActive, store.member(memberID).Status)

	t.Run("already paid", func(t *testing.T) {
		_, err := svc.PayFine(context.Background(), fineID)
		assert.ErrorIs(t, err, ErrInvalidState)
	})
	t.Run("unknown fine", func(t *testing.T) {
		_, err := svc.PayFine(context.Background(), 999)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

// The single-copy reservation walkthrough: borrow, blocked borrow,
// reserve, return restoring the claim, then the holder collects.
func TestReservationPrecedence(t *testing.T) {
	svc, store, _ := newEngine(t)
	bookID := seedBook(store, 1)
	memberA := seedMember(store)
	memberC := store.addMember(model.Member{
		Name: "Grace", Email: "grace@example.com", MembershipNumber: "LIB-0002",
		Status: model.MemberActive,
	})

	loan, err := svc.Borrow(context.Background(), memberA, bookID)
	require.NoError(t, err)
	assert.Equal(t, model.BookBorrowed, store.book(bookID).Status)

	_, err = svc.Borrow(context.Background(), memberC, bookID)
	assert.ErrorIs(t, err, ErrInvalidState)

	res, err := svc.Reserve(context.Background(), memberC, bookID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationActive, res.Status)
	assert.Equal(t, model.BookReserved, store.book(bookID).Status)

	t.Run("duplicate reservation rejected", func(t *testing.T) {
		_, err := svc.Reserve(context.Background(), memberC, bookID)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	_, err = svc.Return(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, store.book(bookID).AvailableCopies)
	assert.Equal(t, model.BookReserved, store.book(bookID).Status)

	// A cannot take the copy back: it is spoken for
	_, err = svc.Borrow(context.Background(), memberA, bookID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.Borrow(context.Background(), memberC, bookID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationFulfilled, store.reservation(res.ID).Status)
	assert.Equal(t, 0, store.book(bookID).AvailableCopies)
	assert.Equal(t, model.BookBorrowed, store.book(bookID).Status)
}

// A failure after mid-transaction mutations must leave no trace: the
// holder's reservation would have been fulfilled, but the copy check
// fails and everything rolls back.
func TestFailedBorrowRollsBackFulfillment(t *testing.T) {
	svc, store, _ := newEngine(t)
	bookID := seedBook(store, 1)
	memberA := seedMember(store)
	memberC := seedMember(store)

	_, err := svc.Borrow(context.Background(), memberA, bookID)
	require.NoError(t, err)
	res, err := svc.Reserve(context.Background(), memberC, bookID)
	require.NoError(t, err)

	// no copies on the shelf: the holder's borrow fails after the
	// reservation was marked fulfilled inside the transaction
	_, err = svc.Borrow(context.Background(), memberC, bookID)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, model.ReservationActive, store.reservation(res.ID).Status)
	assert.Equal(t, 0, store.book(bookID).AvailableCopies)
}

func TestSetMaintenance(t *testing.T) {
	svc, store, _ := newEngine(t)
	bookID := seedBook(store, 2)
	memberID := seedMember(store)

	book, err := svc.SetMaintenance(context.Background(), bookID, true)
	require.NoError(t, err)
	assert.Equal(t, model.BookMaintenance, book.Status)

	_, err = svc.Reserve(context.Background(), memberID, bookID)
	assert.ErrorIs(t, err, ErrInvalidState)

	book, err = svc.SetMaintenance(context.Background(), bookID, false)
	require.NoError(t, err)
	assert.Equal(t, model.BookAvailable, book.Status)
}

func TestProjectBookStatus(t *testing.T) {
	testCases := []struct {
		name         string
		current      model.BookStatus
		available    int
		reservations int
		want         model.BookStatus
	}{
		{"maintenance is sticky", model.BookMaintenance, 3, 2, model.BookMaintenance},
		{"any reservation wins", model.BookAvailable, 2, 1, model.BookReserved},
		{"no copies", model.BookAvailable, 0, 0, model.BookBorrowed},
		{"copies and no claims", model.BookBorrowed, 1, 0, model.BookAvailable},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, projectBookStatus(tt.current, tt.available, tt.reservations))
		})
	}
}
