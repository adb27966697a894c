// Package memory is a process-local credential store for development and tests.
package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/wellness-auth/internal/domain/entity"
	"github.com/oksasatya/wellness-auth/internal/domain/repository"
)

type UserRepository struct {
	mu    sync.Mutex
	users map[string]*entity.User
	now   func() time.Time
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*entity.User), now: time.Now}
}

func clone(u *entity.User) *entity.User {
	c := *u
	if u.OTP != nil {
		otp := *u.OTP
		c.OTP = &otp
	}
	if u.ResetToken != nil {
		rt := *u.ResetToken
		c.ResetToken = &rt
	}
	return &c
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Username == u.Username || strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicate
		}
	}
	now := r.now().UTC()
	u.ID = uuid.NewString()
	u.CreatedAt = now
	u.UpdatedAt = now
	r.users[u.ID] = clone(u)
	return nil
}

func (r *UserRepository) find(match func(*entity.User) bool) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			return clone(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.find(func(u *entity.User) bool { return u.ID == id })
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.find(func(u *entity.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *UserRepository) GetByResetTokenHash(ctx context.Context, hash string) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.find(func(u *entity.User) bool { return u.ResetToken != nil && u.ResetToken.Hash == hash })
}

// update applies fn to the stored user under the lock.
func (r *UserRepository) update(ctx context.Context, userID string, fn func(u *entity.User) bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return false, repository.ErrNotFound
	}
	if !fn(u) {
		return false, nil
	}
	u.UpdatedAt = r.now().UTC()
	return true, nil
}

func (r *UserRepository) UpdateOTP(ctx context.Context, userID string, otp entity.PendingSecret) error {
	_, err := r.update(ctx, userID, func(u *entity.User) bool { u.OTP = &otp; return true })
	return err
}

func (r *UserRepository) ClearOTP(ctx context.Context, userID string) error {
	_, err := r.update(ctx, userID, func(u *entity.User) bool { u.OTP = nil; return true })
	return err
}

func (r *UserRepository) ConsumeOTP(ctx context.Context, userID, expectedHash string, now time.Time) (bool, error) {
	ok, err := r.update(ctx, userID, func(u *entity.User) bool {
		if !u.OTP.Valid(now) || u.OTP.Hash != expectedHash {
			return false
		}
		u.OTP = nil
		return true
	})
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return ok, err
}

func (r *UserRepository) UpdateResetToken(ctx context.Context, userID string, token entity.PendingSecret) error {
	_, err := r.update(ctx, userID, func(u *entity.User) bool { u.ResetToken = &token; return true })
	return err
}

func (r *UserRepository) ClearResetToken(ctx context.Context, userID string) error {
	_, err := r.update(ctx, userID, func(u *entity.User) bool { u.ResetToken = nil; return true })
	return err
}

func (r *UserRepository) ConsumeResetToken(ctx context.Context, userID, expectedHash, newPasswordHash string, now time.Time) (bool, error) {
	ok, err := r.update(ctx, userID, func(u *entity.User) bool {
		if !u.ResetToken.Valid(now) || u.ResetToken.Hash != expectedHash {
			return false
		}
		u.PasswordHash = newPasswordHash
		u.ResetToken = nil
		return true
	})
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return ok, err
}

var _ repository.UserRepository = (*UserRepository)(nil)
