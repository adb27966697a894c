package entity

import (
	"time"
)

// User is the aggregate root for the credential domain.
// PasswordHash holds a bcrypt digest; OTP and ResetToken hold sha256 digests
// of single-use secrets, never the secrets themselves.
type User struct {
	ID               string
	Username         string
	Email            string
	PasswordHash     string
	OTP              *PendingSecret
	ResetToken       *PendingSecret
	IsLifetimeMentor bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PendingSecret is a hashed one-time secret and the instant it stops being
// accepted. A nil *PendingSecret means neither hash nor expiry is stored.
type PendingSecret struct {
	Hash      string
	ExpiresAt time.Time
}

// Valid reports whether the secret is still usable at now.
func (p *PendingSecret) Valid(now time.Time) bool {
	return p != nil && p.Hash != "" && now.Before(p.ExpiresAt)
}
