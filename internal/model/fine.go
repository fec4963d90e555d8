package model

import "time"

// Fine is the monetary penalty for a late return, stored in the `fines`
// table.  At most one fine exists per loan; it is created at return time
// from whole overdue days and is terminal once PaidAt is set.
//
// Fields:
//  ID       – primary key identifier.
//  MemberID – member who owes the fine.
//  LoanID   – loan the fine was assessed for.
//  Amount   – whole overdue days times the daily rate.
//  PaidAt   – when the fine was settled (nil while unpaid).
type Fine struct {
	ID       uint64     `json:"id"`
	MemberID uint64     `json:"member_id"`
	LoanID   uint64     `json:"transaction_id"`
	Amount   float64    `json:"amount"`
	PaidAt   *time.Time `json:"paid_at,omitempty"`
}
