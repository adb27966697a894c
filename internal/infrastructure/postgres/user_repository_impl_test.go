package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/wellness-auth/internal/domain/entity"
	"github.com/oksasatya/wellness-auth/internal/domain/repository"
)

const testUID = "5f0c7a8e-2b7d-4c1e-9a53-0f6d2a1b3c4d"

func newMockRepo(t *testing.T) (*UserRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return NewUserRepository(mock), mock
}

var userColumnNames = []string{"id", "username", "email", "password_hash",
	"otp_hash", "otp_expires_at", "reset_token_hash", "reset_token_expires_at",
	"is_lifetime_mentor", "created_at", "updated_at"}

func userRow(otpHash *string, otpExp *time.Time) *pgxmock.Rows {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return pgxmock.NewRows(userColumnNames).
		AddRow(testUID, "alice", "alice@x.com", "$2a$10$hash",
			otpHash, otpExp, (*string)(nil), (*time.Time)(nil),
			false, now, now)
}

func TestCreate_UniqueViolationIsDuplicate(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("alice", "alice@x.com", "hash").
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "users_email_lower_key"})

	err := r.Create(context.Background(), &entity.User{Username: "alice", Email: "alice@x.com", PasswordHash: "hash"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestCreate_FillsGeneratedColumns(t *testing.T) {
	r, mock := newMockRepo(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("alice", "alice@x.com", "hash").
		WillReturnRows(pgxmock.NewRows([]string{"id", "is_lifetime_mentor", "created_at", "updated_at"}).
			AddRow(testUID, false, now, now))

	u := &entity.User{Username: "alice", Email: "alice@x.com", PasswordHash: "hash"}
	require.NoError(t, r.Create(context.Background(), u))
	assert.Equal(t, testUID, u.ID)
	assert.Equal(t, now, u.CreatedAt)
}

func TestCreate_OtherErrorsAreWrapped(t *testing.T) {
	r, mock := newMockRepo(t)
	boom := errors.New("conn reset")
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("alice", "alice@x.com", "hash").
		WillReturnError(boom)

	err := r.Create(context.Background(), &entity.User{Username: "alice", Email: "alice@x.com", PasswordHash: "hash"})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, repository.ErrDuplicate)
}

func TestGetByID_NoRowsIsNotFound(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(testUID).
		WillReturnRows(pgxmock.NewRows(userColumnNames))

	_, err := r.GetByID(context.Background(), testUID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetByID_CanonicalizesID(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(testUID).
		WillReturnRows(userRow(nil, nil))

	u, err := r.GetByID(context.Background(), "5F0C7A8E-2B7D-4C1E-9A53-0F6D2A1B3C4D")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Nil(t, u.OTP)
	assert.Nil(t, u.ResetToken)
}

func TestMalformedIDNeverReachesTheDatabase(t *testing.T) {
	r, _ := newMockRepo(t)
	ctx := context.Background()

	_, err := r.GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, r.ClearOTP(ctx, "1 OR 1=1"), repository.ErrNotFound)

	ok, err := r.ConsumeOTP(ctx, "nope", "h", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = r.ConsumeResetToken(ctx, "nope", "h", "p", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetByEmail_ScansPendingCode(t *testing.T) {
	r, mock := newMockRepo(t)
	hash := "otpdigest"
	exp := time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE lower(email) = lower($1)")).
		WithArgs("alice@x.com").
		WillReturnRows(userRow(&hash, &exp))

	u, err := r.GetByEmail(context.Background(), "alice@x.com")
	require.NoError(t, err)
	require.NotNil(t, u.OTP)
	assert.Equal(t, entity.PendingSecret{Hash: hash, ExpiresAt: exp}, *u.OTP)
}

func TestUpdateOTP_ZeroRowsIsNotFound(t *testing.T) {
	r, mock := newMockRepo(t)
	exp := time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET otp_hash = $2, otp_expires_at = $3")).
		WithArgs(testUID, "digest", exp).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := r.UpdateOTP(context.Background(), testUID, entity.PendingSecret{Hash: "digest", ExpiresAt: exp})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestConsumeOTP_ReportsWhetherItWon(t *testing.T) {
	r, mock := newMockRepo(t)
	now := time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC)
	q := regexp.QuoteMeta("WHERE id = $1 AND otp_hash = $2 AND otp_expires_at > $3")
	mock.ExpectExec(q).WithArgs(testUID, "digest", now).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(q).WithArgs(testUID, "digest", now).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := r.ConsumeOTP(context.Background(), testUID, "digest", now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.ConsumeOTP(context.Background(), testUID, "digest", now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConsumeResetToken_ArgumentOrder(t *testing.T) {
	r, mock := newMockRepo(t)
	now := time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("SET password_hash = $4")).
		WithArgs(testUID, "tokendigest", now, "newbcrypt").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ok, err := r.ConsumeResetToken(context.Background(), testUID, "tokendigest", "newbcrypt", now)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConsumeResetToken_ErrorIsWrapped(t *testing.T) {
	r, mock := newMockRepo(t)
	boom := errors.New("deadlock detected")
	mock.ExpectExec(regexp.QuoteMeta("SET password_hash = $4")).
		WithArgs(testUID, "tokendigest", pgxmock.AnyArg(), "newbcrypt").
		WillReturnError(boom)

	ok, err := r.ConsumeResetToken(context.Background(), testUID, "tokendigest", "newbcrypt", time.Now())
	assert.ErrorIs(t, err, boom)
	assert.False(t, ok)
}
