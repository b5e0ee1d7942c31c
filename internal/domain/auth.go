package domain

import (
	"errors"
	"time"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailTaken       = errors.New("email already registered")
	ErrTokenInvalid     = errors.New("token is invalid or expired")
	ErrSecretMissing    = errors.New("signing secret is not configured")
	ErrBadCredentials   = errors.New("invalid email or password")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrStoreUnavailable = errors.New("user store unavailable")
	ErrHash             = errors.New("password hashing failed")
)

type User struct {
	ID             string
	Name           string
	Email          string
	PasswordHash   string
	Verified       bool
	ResetTokenHash string
	ResetExpiresAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UserPatch lists the mutable user fields. Nil fields are left untouched;
// ClearReset wipes both reset columns and wins over ResetTokenHash.
// When IfResetTokenHash is set the update only applies while the stored
// reset hash still equals it; otherwise the store returns ErrTokenInvalid.
type UserPatch struct {
	Name           *string
	PasswordHash   *string
	Verified       *bool
	ResetTokenHash *string
	ResetExpiresAt *time.Time
	ClearReset     bool

	IfResetTokenHash *string
}

func (p UserPatch) Empty() bool {
	return p.Name == nil && p.PasswordHash == nil && p.Verified == nil &&
		p.ResetTokenHash == nil && p.ResetExpiresAt == nil && !p.ClearReset
}

// ActivationPayload travels inside the signed activation token until the
// account is persisted. PasswordHash is already bcrypt'd.
type ActivationPayload struct {
	Name         string
	Email        string
	PasswordHash string
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

type ActivationResult string

const (
	ActivationTimeout   ActivationResult = "timeout"
	ActivationExists    ActivationResult = "exists"
	ActivationActivated ActivationResult = "activated"
)

// Session is the authenticated subject produced by a successful login.
type Session struct {
	UserID    string
	Email     string
	Token     string
	ExpiresAt time.Time
}
