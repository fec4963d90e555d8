// Package queue defines message payloads exchanged over the message broker.
package queue

// Event types published on the lending events queue.
const (
	EventLoanCreated  = "loan.created"
	EventLoanReturned = "loan.returned"
	EventBookReserved = "book.reserved"
	EventFinePaid     = "fine.paid"
)

// LendingEvent is published after a lending operation commits.  It
// carries enough information for downstream consumers to audit or
// trigger analytics without querying the primary database.  Fields that
// do not apply to an event type are zero.
type LendingEvent struct {
	Type          string  `json:"type"`
	LoanID        uint64  `json:"loan_id,omitempty"`
	BookID        uint64  `json:"book_id,omitempty"`
	MemberID      uint64  `json:"member_id,omitempty"`
	ReservationID uint64  `json:"reservation_id,omitempty"`
	FineID        uint64  `json:"fine_id,omitempty"`
	FineAmount    float64 `json:"fine_amount,omitempty"`
	DueDate       string  `json:"due_date,omitempty"`
	OccurredAt    string  `json:"occurred_at"`
}
