package model

import "time"

// StaffUser represents a staff account as stored in the `staff_users`
// table.  Staff operate the lending desk and manage the catalog; they are
// distinct from library members, who never log in.
//
// Fields:
//  ID           – primary key identifier of the account.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – role name (LIBRARIAN or ADMIN).
//  IsActive     – whether the account may log in.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type StaffUser struct {
	ID           uint64    // staff_users.id
	Email        string    // staff_users.email
	PasswordHash string    // staff_users.password_hash
	Role         string    // staff_users.role
	IsActive     bool      // staff_users.is_active
	CreatedAt    time.Time // staff_users.created_at
	UpdatedAt    time.Time // staff_users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a staff user; only the SHA-256 hash of the
// plain token is stored.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
