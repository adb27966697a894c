package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oksasatya/wellness-auth/internal/domain/entity"
	"github.com/oksasatya/wellness-auth/internal/domain/repository"
)

const pgUniqueViolation = "23505"

// DBTX is the part of *pgxpool.Pool the repository uses.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, email, password_hash,
	otp_hash, otp_expires_at, reset_token_hash, reset_token_expires_at,
	is_lifetime_mentor, created_at, updated_at`

// parseID returns the canonical form of a user id. Anything that is not a
// uuid cannot match a row.
func parseID(id string) (string, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	var otpHash, resetHash *string
	var otpExp, resetExp *time.Time
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&otpHash, &otpExp, &resetHash, &resetExp,
		&u.IsLifetimeMentor, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	u.OTP = pending(otpHash, otpExp)
	u.ResetToken = pending(resetHash, resetExp)
	return u, nil
}

func pending(hash *string, exp *time.Time) *entity.PendingSecret {
	if hash == nil || exp == nil {
		return nil
	}
	return &entity.PendingSecret{Hash: *hash, ExpiresAt: exp.UTC()}
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, is_lifetime_mentor, created_at, updated_at
	`, u.Username, u.Email, u.PasswordHash)

	if err := row.Scan(&u.ID, &u.IsLifetimeMentor, &u.CreatedAt, &u.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	uid, ok := parseID(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, uid))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

func (r *UserRepository) GetByResetTokenHash(ctx context.Context, hash string) (*entity.User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE reset_token_hash = $1`, hash))
}

// exec runs a single-row update keyed by user id ($1) and maps zero affected
// rows to ErrNotFound.
func (r *UserRepository) exec(ctx context.Context, userID, sql string, args ...any) error {
	uid, ok := parseID(userID)
	if !ok {
		return repository.ErrNotFound
	}
	res, err := r.db.Exec(ctx, sql, append([]any{uid}, args...)...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// swap runs a compare-and-set update keyed by user id ($1) and reports
// whether it won.
func (r *UserRepository) swap(ctx context.Context, userID, sql string, args ...any) (bool, error) {
	uid, ok := parseID(userID)
	if !ok {
		return false, nil
	}
	res, err := r.db.Exec(ctx, sql, append([]any{uid}, args...)...)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected() == 1, nil
}

func (r *UserRepository) UpdateOTP(ctx context.Context, userID string, otp entity.PendingSecret) error {
	return r.exec(ctx, userID, `
		UPDATE users SET otp_hash = $2, otp_expires_at = $3, updated_at = now()
		WHERE id = $1
	`, otp.Hash, otp.ExpiresAt)
}

func (r *UserRepository) ClearOTP(ctx context.Context, userID string) error {
	return r.exec(ctx, userID, `
		UPDATE users SET otp_hash = NULL, otp_expires_at = NULL, updated_at = now()
		WHERE id = $1
	`)
}

// ConsumeOTP clears the code only while it still matches and is unexpired,
// so concurrent verifications of one code succeed at most once.
func (r *UserRepository) ConsumeOTP(ctx context.Context, userID, expectedHash string, now time.Time) (bool, error) {
	return r.swap(ctx, userID, `
		UPDATE users SET otp_hash = NULL, otp_expires_at = NULL, updated_at = now()
		WHERE id = $1 AND otp_hash = $2 AND otp_expires_at > $3
	`, expectedHash, now)
}

func (r *UserRepository) UpdateResetToken(ctx context.Context, userID string, token entity.PendingSecret) error {
	return r.exec(ctx, userID, `
		UPDATE users SET reset_token_hash = $2, reset_token_expires_at = $3, updated_at = now()
		WHERE id = $1
	`, token.Hash, token.ExpiresAt)
}

func (r *UserRepository) ClearResetToken(ctx context.Context, userID string) error {
	return r.exec(ctx, userID, `
		UPDATE users SET reset_token_hash = NULL, reset_token_expires_at = NULL, updated_at = now()
		WHERE id = $1
	`)
}

func (r *UserRepository) ConsumeResetToken(ctx context.Context, userID, expectedHash, newPasswordHash string, now time.Time) (bool, error) {
	return r.swap(ctx, userID, `
		UPDATE users
		SET password_hash = $4, reset_token_hash = NULL, reset_token_expires_at = NULL, updated_at = now()
		WHERE id = $1 AND reset_token_hash = $2 AND reset_token_expires_at > $3
	`, expectedHash, now, newPasswordHash)
}

var _ repository.UserRepository = (*UserRepository)(nil)
