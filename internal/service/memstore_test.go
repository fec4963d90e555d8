package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/library-lending/internal/model"
	"github.com/iliyamo/library-lending/internal/repository"
)

// memStore is a deterministic in-memory implementation of the store
// interfaces.  Begin snapshots the whole state; mutations act on the
// snapshot and only Commit publishes it back, so rollback semantics are
// exact.  A mutex held for the lifetime of each transaction serializes
// concurrent callers the way row locks do.
type memStore struct {
	mu    sync.Mutex
	state *memState
}

type memState struct {
	books        map[uint64]*model.Book
	members      map[uint64]*model.Member
	loans        map[uint64]*model.Loan
	fines        map[uint64]*model.Fine
	reservations map[uint64]*model.Reservation
	nextID       uint64
}

func newMemStore() *memStore {
	return &memStore{state: &memState{
		books:        map[uint64]*model.Book{},
		members:      map[uint64]*model.Member{},
		loans:        map[uint64]*model.Loan{},
		fines:        map[uint64]*model.Fine{},
		reservations: map[uint64]*model.Reservation{},
		nextID:       1,
	}}
}

func (st *memState) clone() *memState {
	c := &memState{
		books:        make(map[uint64]*model.Book, len(st.books)),
		members:      make(map[uint64]*model.Member, len(st.members)),
		loans:        make(map[uint64]*model.Loan, len(st.loans)),
		fines:        make(map[uint64]*model.Fine, len(st.fines)),
		reservations: make(map[uint64]*model.Reservation, len(st.reservations)),
		nextID:       st.nextID,
	}
	for id, b := range st.books {
		v := *b
		c.books[id] = &v
	}
	for id, m := range st.members {
		v := *m
		c.members[id] = &v
	}
	for id, l := range st.loans {
		v := *l
		c.loans[id] = &v
	}
	for id, f := range st.fines {
		v := *f
		c.fines[id] = &v
	}
	for id, r := range st.reservations {
		v := *r
		c.reservations[id] = &v
	}
	return c
}

func (s *memStore) Begin(ctx context.Context) (repository.Tx, error) {
	s.mu.Lock()
	return &memTx{store: s, state: s.state.clone()}, nil
}

// Seeding helpers used by the tests.

func (s *memStore) addBook(b model.Book) uint64 {
	b.ID = s.state.nextID
	s.state.nextID++
	s.state.books[b.ID] = &b
	return b.ID
}

func (s *memStore) addMember(m model.Member) uint64 {
	m.ID = s.state.nextID
	s.state.nextID++
	s.state.members[m.ID] = &m
	return m.ID
}

func (s *memStore) addLoan(l model.Loan) uint64 {
	l.ID = s.state.nextID
	s.state.nextID++
	s.state.loans[l.ID] = &l
	return l.ID
}

func (s *memStore) addFine(f model.Fine) uint64 {
	f.ID = s.state.nextID
	s.state.nextID++
	s.state.fines[f.ID] = &f
	return f.ID
}

func (s *memStore) book(id uint64) model.Book          { return *s.state.books[id] }
func (s *memStore) member(id uint64) model.Member      { return *s.state.members[id] }
func (s *memStore) loan(id uint64) model.Loan          { return *s.state.loans[id] }
func (s *memStore) fine(id uint64) model.Fine          { return *s.state.fines[id] }
func (s *memStore) reservation(id uint64) model.Reservation {
	return *s.state.reservations[id]
}

type memTx struct {
	store *memStore
	state *memState
	done  bool
}

func (t *memTx) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	t.store.state = t.state
	t.store.mu.Unlock()
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	t.store.mu.Unlock()
	return nil
}

func (t *memTx) LockDueLoans(ctx context.Context, now time.Time) ([]model.Loan, error) {
	var due []model.Loan
	for _, l := range t.state.loans {
		if l.Status == model.LoanActive && l.ReturnedAt == nil && l.DueDate.Before(now) {
			due = append(due, *l)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	return due, nil
}

func (t *memTx) MarkLoansOverdue(ctx context.Context, ids []uint64) error {
	for _, id := range ids {
		if l, ok := t.state.loans[id]; ok {
			l.Status = model.LoanOverdue
		}
	}
	return nil
}

func (t *memTx) ListOverdueLoans(ctx context.Context) ([]model.Loan, error) {
	var out []model.Loan
	for _, l := range t.state.loans {
		if l.Status == model.LoanOverdue && l.ReturnedAt == nil {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) LockMember(ctx context.Context, id uint64) (*model.Member, error) {
	m, ok := t.state.members[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	v := *m
	return &v, nil
}

func (t *memTx) SetMemberStatus(ctx context.Context, id uint64, status model.MemberStatus) error {
	if m, ok := t.state.members[id]; ok {
		m.Status = status
	}
	return nil
}

func (t *memTx) CountOverdueLoans(ctx context.Context, memberID uint64) (int, error) {
	n := 0
	for _, l := range t.state.loans {
		if l.MemberID == memberID && l.Status == model.LoanOverdue && l.ReturnedAt == nil {
			n++
		}
	}
	return n, nil
}

func (t *memTx) CountOpenLoans(ctx context.Context, memberID uint64) (int, error) {
	n := 0
	for _, l := range t.state.loans {
		if l.MemberID == memberID && l.ReturnedAt == nil &&
			(l.Status == model.LoanActive || l.Status == model.LoanOverdue) {
			n++
		}
	}
	return n, nil
}

func (t *memTx) CountUnpaidFines(ctx context.Context, memberID uint64) (int, error) {
	n := 0
	for _, f := range t.state.fines {
		if f.MemberID == memberID && f.PaidAt == nil {
			n++
		}
	}
	return n, nil
}

func (t *memTx) LockBook(ctx context.Context, id uint64) (*model.Book, error) {
	b, ok := t.state.books[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	v := *b
	return &v, nil
}

func (t *memTx) SetBookAvailability(ctx context.Context, id uint64, available int, status model.BookStatus) error {
	if b, ok := t.state.books[id]; ok {
		b.AvailableCopies = available
		b.Status = status
	}
	return nil
}

func (t *memTx) InsertLoan(ctx context.Context, loan *model.Loan) error {
	loan.ID = t.state.nextID
	t.state.nextID++
	v := *loan
	t.state.loans[loan.ID] = &v
	return nil
}

func (t *memTx) LockLoan(ctx context.Context, id uint64) (*model.Loan, error) {
	l, ok := t.state.loans[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	v := *l
	return &v, nil
}

func (t *memTx) MarkLoanReturned(ctx context.Context, id uint64, at time.Time) error {
	if l, ok := t.state.loans[id]; ok {
		stamped := at
		l.ReturnedAt = &stamped
		l.Status = model.LoanReturned
	}
	return nil
}

func (t *memTx) InsertFine(ctx context.Context, fine *model.Fine) error {
	fine.ID = t.state.nextID
	t.state.nextID++
	v := *fine
	t.state.fines[fine.ID] = &v
	return nil
}

func (t *memTx) LockFine(ctx context.Context, id uint64) (*model.Fine, error) {
	f, ok := t.state.fines[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	v := *f
	return &v, nil
}

func (t *memTx) MarkFinePaid(ctx context.Context, id uint64, at time.Time) error {
	if f, ok := t.state.fines[id]; ok {
		stamped := at
		f.PaidAt = &stamped
	}
	return nil
}

func (t *memTx) LockEarliestActiveReservation(ctx context.Context, bookID uint64) (*model.Reservation, error) {
	var head *model.Reservation
	for _, r := range t.state.reservations {
		if r.BookID != bookID || r.Status != model.ReservationActive {
			continue
		}
		if head == nil || r.ReservedAt.Before(head.ReservedAt) ||
			(r.ReservedAt.Equal(head.ReservedAt) && r.ID < head.ID) {
			head = r
		}
	}
	if head == nil {
		return nil, nil
	}
	v := *head
	return &v, nil
}

func (t *memTx) CountActiveReservations(ctx context.Context, bookID uint64) (int, error) {
	n := 0
	for _, r := range t.state.reservations {
		if r.BookID == bookID && r.Status == model.ReservationActive {
			n++
		}
	}
	return n, nil
}

func (t *memTx) HasActiveReservation(ctx context.Context, memberID, bookID uint64) (bool, error) {
	for _, r := range t.state.reservations {
		if r.MemberID == memberID && r.BookID == bookID && r.Status == model.ReservationActive {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) InsertReservation(ctx context.Context, res *model.Reservation) error {
	res.ID = t.state.nextID
	t.state.nextID++
	v := *res
	t.state.reservations[res.ID] = &v
	return nil
}

func (t *memTx) MarkReservationFulfilled(ctx context.Context, id uint64) error {
	if r, ok := t.state.reservations[id]; ok {
		r.Status = model.ReservationFulfilled
	}
	return nil
}
