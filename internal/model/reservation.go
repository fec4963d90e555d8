package model

import "time"

// ReservationStatus enumerates the lifecycle of a reservation.  A
// reservation is created active and becomes fulfilled (terminal) when its
// holder borrows the reserved book.
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationFulfilled ReservationStatus = "fulfilled"
)

// Reservation records a member's claim on the next available copy of a
// book, stored in the `reservations` table.  The earliest active
// reservation (by ReservedAt) has first right to borrow; at most one
// active reservation exists per (member, book) pair.
//
// Fields:
//  ID         – primary key identifier.
//  BookID     – reserved book.
//  MemberID   – member holding the claim.
//  ReservedAt – when the claim was placed; orders precedence.
//  Status     – lifecycle state (see ReservationStatus).
type Reservation struct {
	ID         uint64            `json:"id"`
	BookID     uint64            `json:"book_id"`
	MemberID   uint64            `json:"member_id"`
	ReservedAt time.Time         `json:"reserved_at"`
	Status     ReservationStatus `json:"status"`
}
