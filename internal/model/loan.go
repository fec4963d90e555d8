package model

import "time"

// LoanStatus enumerates the lifecycle of a loan.  A loan is created
// active, flips to overdue only through the overdue refresher once its
// due date has passed, and becomes returned (terminal) only through the
// return operation.
type LoanStatus string

const (
	LoanActive   LoanStatus = "active"
	LoanOverdue  LoanStatus = "overdue"
	LoanReturned LoanStatus = "returned"
)

// Loan records a single lending of a book copy to a member, stored in the
// `loans` table.  DueDate is BorrowedAt plus the configured loan period.
//
// Fields:
//  ID         – primary key identifier.
//  BookID     – borrowed book.
//  MemberID   – borrowing member.
//  BorrowedAt – when the copy left the shelf.
//  DueDate    – latest return date before fines accrue.
//  ReturnedAt – when the copy came back (nil while out).
//  Status     – lifecycle state (see LoanStatus).
type Loan struct {
	ID         uint64     `json:"id"`
	BookID     uint64     `json:"book_id"`
	MemberID   uint64     `json:"member_id"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	DueDate    time.Time  `json:"due_date"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
	Status     LoanStatus `json:"status"`
}
