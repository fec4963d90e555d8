package model

import "time"

// MemberStatus enumerates a member's eligibility to borrow.  The value is
// always the output of the member status recomputation: suspended when the
// member has three or more unreturned overdue loans or any unpaid fine,
// active otherwise.
type MemberStatus string

const (
	MemberActive    MemberStatus = "active"
	MemberSuspended MemberStatus = "suspended"
)

// Member represents a registered borrower as stored in the `members` table.
//
// Fields:
//  ID               – primary key identifier.
//  Name             – member's display name.
//  Email            – unique email address.
//  MembershipNumber – unique card number issued on registration.
//  Status           – derived eligibility state (see MemberStatus).
//  CreatedAt        – timestamp of creation.
//  UpdatedAt        – timestamp of last update.
type Member struct {
	ID               uint64       `json:"id"`
	Name             string       `json:"name"`
	Email            string       `json:"email"`
	MembershipNumber string       `json:"membership_number"`
	Status           MemberStatus `json:"status"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}
