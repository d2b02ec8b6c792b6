// Package models defines the persistent entities of the taskhub backend.
package models

import "time"

// Role is the platform-wide privilege level, unrelated to project
// membership.
type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// User is the account record. Credential material, single-use action tokens
// and the digest of the current refresh token all live inline on this row.
//
// A user with IsActive=false may not authenticate; a user with
// IsVerified=false may not sign in even if active. Users are never
// hard-deleted except as the compensating action when the verification
// email cannot be dispatched right after signup.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	Username     *string
	PhoneNumber  *string
	PasswordHash string
	Role         Role
	IsActive     bool
	IsVerified   bool

	// RefreshTokenHash is the SHA-256 digest of the currently valid refresh
	// token. Nil means no live session.
	RefreshTokenHash *string

	// Single-use action tokens.
	VerificationCode         *string
	ResetPasswordToken       *string
	ResetTokenExpires        *time.Time
	ReactivationToken        *string
	ReactivationTokenExpires *time.Time

	// PendingEmail stages a two-phase email change.
	PendingEmail *string

	AvatarImageURL *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
