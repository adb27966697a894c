package repository

import (
	"context"
	"errors"
	"time"

	"github.com/oksasatya/wellness-auth/internal/domain/entity"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate identity")
)

// UserRepository defines the credential store operations.
//
// ConsumeOTP and ConsumeResetToken are compare-and-set: they only apply when
// the stored hash still equals expectedHash and has not expired at now, and
// report false otherwise. All other writes are last-writer-wins.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByResetTokenHash(ctx context.Context, hash string) (*entity.User, error)

	UpdateOTP(ctx context.Context, userID string, otp entity.PendingSecret) error
	ClearOTP(ctx context.Context, userID string) error
	ConsumeOTP(ctx context.Context, userID, expectedHash string, now time.Time) (bool, error)

	UpdateResetToken(ctx context.Context, userID string, token entity.PendingSecret) error
	ClearResetToken(ctx context.Context, userID string) error
	// ConsumeResetToken sets the new password hash and clears the reset token in one step.
	ConsumeResetToken(ctx context.Context, userID, expectedHash, newPasswordHash string, now time.Time) (bool, error)
}
