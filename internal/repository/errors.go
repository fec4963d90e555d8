// Sentinel errors shared across the repositories.  Higher layers use
// errors.Is to translate them into HTTP responses.  Row absence is
// reported as sql.ErrNoRows throughout the package.
package repository

import "errors"

// ErrConflict is returned when a delete cannot be performed because of
// dependent records, such as removing a book with open loans.  Handlers
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned when staff registration collides with an
// existing email address.
var ErrEmailExists = errors.New("email already exists")
