package application

import (
	"context"
	"time"

	"github.com/oksasatya/wellness-auth/internal/domain/entity"
	repo "github.com/oksasatya/wellness-auth/internal/domain/repository"
	"github.com/oksasatya/wellness-auth/pkg/helpers"
)

// OTPManager owns the one-time recovery code: a 6-digit value stored only as
// a sha256 digest with a short expiry, usable once.
type OTPManager struct {
	Repo    repo.UserRepository
	Clock   Clock
	TTL     time.Duration
	Timeout time.Duration
}

func NewOTPManager(r repo.UserRepository, clock Clock, ttl, timeout time.Duration) *OTPManager {
	return &OTPManager{Repo: r, Clock: clock, TTL: ttl, Timeout: timeout}
}

// RequestCode stores a fresh code for u, replacing any pending one, and
// returns the plaintext for out-of-band delivery.
func (m *OTPManager) RequestCode(ctx context.Context, u *entity.User) (string, error) {
	code, err := helpers.GenOTPCode()
	if err != nil {
		return "", internalErr("generate otp", err)
	}
	otp := entity.PendingSecret{Hash: helpers.HashSecret(code), ExpiresAt: m.Clock.Now().Add(m.TTL)}

	c, cancel := withTimeout(ctx, m.Timeout)
	defer cancel()
	if err := m.Repo.UpdateOTP(c, u.ID, otp); err != nil {
		return "", internalErr("store otp", err)
	}
	u.OTP = &otp
	return code, nil
}

// Discard clears a pending code. It outlives the caller's cancellation so a
// compensating clear still runs when the request is already failing.
func (m *OTPManager) Discard(ctx context.Context, u *entity.User) error {
	c, cancel := withTimeout(context.WithoutCancel(ctx), m.Timeout)
	defer cancel()
	if err := m.Repo.ClearOTP(c, u.ID); err != nil {
		return internalErr("clear otp", err)
	}
	u.OTP = nil
	return nil
}

// Verify consumes the pending code if candidate matches and it has not
// expired. A failed check leaves the stored code untouched.
func (m *OTPManager) Verify(ctx context.Context, u *entity.User, candidate string) error {
	now := m.Clock.Now()
	if !u.OTP.Valid(now) || !helpers.SecretEquals(helpers.HashSecret(candidate), u.OTP.Hash) {
		return ErrInvalidOrExpired
	}

	c, cancel := withTimeout(ctx, m.Timeout)
	defer cancel()
	ok, err := m.Repo.ConsumeOTP(c, u.ID, u.OTP.Hash, now)
	if err != nil {
		return internalErr("consume otp", err)
	}
	if !ok {
		// consumed or replaced concurrently
		return ErrInvalidOrExpired
	}
	u.OTP = nil
	return nil
}
