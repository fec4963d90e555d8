package model

import "time"

// BookStatus enumerates the derived availability state of a book.  It is
// a projection of available copies and outstanding reservations and is
// never written directly by callers; the lending service recomputes it
// at defined points.
type BookStatus string

const (
	BookAvailable   BookStatus = "available"
	BookBorrowed    BookStatus = "borrowed"
	BookReserved    BookStatus = "reserved"
	BookMaintenance BookStatus = "maintenance"
)

// Book represents a title in the catalog as stored in the `books` table.
// AvailableCopies always stays within [0, TotalCopies].
//
// Fields:
//  ID              – primary key identifier.
//  ISBN            – unique ISBN of the title.
//  Title           – book title.
//  Author          – book author.
//  Category        – optional category label.
//  Status          – derived availability state (see BookStatus).
//  TotalCopies     – number of physical copies owned.
//  AvailableCopies – copies currently on the shelf.
//  CreatedAt       – timestamp of creation.
//  UpdatedAt       – timestamp of last update.
type Book struct {
	ID              uint64     `json:"id"`
	ISBN            string     `json:"isbn"`
	Title           string     `json:"title"`
	Author          string     `json:"author"`
	Category        *string    `json:"category,omitempty"`
	Status          BookStatus `json:"status"`
	TotalCopies     int        `json:"total_copies"`
	AvailableCopies int        `json:"available_copies"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
