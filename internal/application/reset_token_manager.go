package application

import (
	"context"
	"errors"
	"time"

	"github.com/oksasatya/wellness-auth/internal/domain/entity"
	repo "github.com/oksasatya/wellness-auth/internal/domain/repository"
	"github.com/oksasatya/wellness-auth/pkg/helpers"
)

// ResetTokenManager owns the exchange token that bridges a verified OTP to
// the actual password change.
type ResetTokenManager struct {
	Repo    repo.UserRepository
	Hasher  PasswordHasher
	Clock   Clock
	TTL     time.Duration
	Timeout time.Duration
}

func NewResetTokenManager(r repo.UserRepository, hasher PasswordHasher, clock Clock, ttl, timeout time.Duration) *ResetTokenManager {
	return &ResetTokenManager{Repo: r, Hasher: hasher, Clock: clock, TTL: ttl, Timeout: timeout}
}

// Issue stores a new 256-bit token for u and returns its plaintext.
func (m *ResetTokenManager) Issue(ctx context.Context, u *entity.User) (string, error) {
	token, err := helpers.GenToken(helpers.ResetTokenBytes)
	if err != nil {
		return "", internalErr("generate reset token", err)
	}
	grant := entity.PendingSecret{Hash: helpers.HashSecret(token), ExpiresAt: m.Clock.Now().Add(m.TTL)}

	c, cancel := withTimeout(ctx, m.Timeout)
	defer cancel()
	if err := m.Repo.UpdateResetToken(c, u.ID, grant); err != nil {
		return "", internalErr("store reset token", err)
	}
	u.ResetToken = &grant
	return token, nil
}

// Revoke drops an unredeemed token, e.g. when a new recovery request starts over.
func (m *ResetTokenManager) Revoke(ctx context.Context, u *entity.User) error {
	c, cancel := withTimeout(ctx, m.Timeout)
	defer cancel()
	if err := m.Repo.ClearResetToken(c, u.ID); err != nil {
		return internalErr("clear reset token", err)
	}
	u.ResetToken = nil
	return nil
}

// Redeem sets a new password when candidate is the current, unexpired token.
// A confirmation mismatch returns ErrPasswordMismatch and keeps the token
// valid for another attempt; only a successful change consumes it.
func (m *ResetTokenManager) Redeem(ctx context.Context, candidate, newPassword, confirmPassword string) (*entity.User, error) {
	if candidate == "" {
		return nil, ErrInvalidOrExpired
	}
	hash := helpers.HashSecret(candidate)

	c, cancel := withTimeout(ctx, m.Timeout)
	u, err := m.Repo.GetByResetTokenHash(c, hash)
	cancel()
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidOrExpired
		}
		return nil, internalErr("lookup reset token", err)
	}
	if !u.ResetToken.Valid(m.Clock.Now()) || !helpers.SecretEquals(hash, u.ResetToken.Hash) {
		return nil, ErrInvalidOrExpired
	}

	if newPassword != confirmPassword {
		return nil, ErrPasswordMismatch
	}
	if len(newPassword) > helpers.MaxPasswordBytes {
		return nil, ErrValidation
	}

	digest, err := m.Hasher.Hash(ctx, newPassword)
	if err != nil {
		return nil, internalErr("hash password", err)
	}

	c, cancel = withTimeout(ctx, m.Timeout)
	defer cancel()
	ok, err := m.Repo.ConsumeResetToken(c, u.ID, hash, digest, m.Clock.Now())
	if err != nil {
		return nil, internalErr("consume reset token", err)
	}
	if !ok {
		return nil, ErrInvalidOrExpired
	}
	u.PasswordHash = digest
	u.ResetToken = nil
	return u, nil
}
