package helpers

import (
	"context"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// HashPassword hashes the plain text password using bcrypt
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CompareHashAndPassword compares a bcrypt hash with a plain password
func CompareHashAndPassword(hash string, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// BcryptHasher runs bcrypt on at most `workers` goroutines at a time so a
// burst of logins cannot monopolise the CPU.
type BcryptHasher struct {
	cost int
	sem  *semaphore.Weighted
	// dummy is compared against when no account exists so that both login
	// failure paths pay the same bcrypt cost.
	dummy string
}

func NewBcryptHasher(cost, workers int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	if workers <= 0 {
		workers = 1
	}
	dummy, _ := HashPassword("no-such-account", cost)
	return &BcryptHasher{cost: cost, sem: semaphore.NewWeighted(int64(workers)), dummy: dummy}
}

// Hash returns a salted bcrypt digest. It only fails when ctx ends while
// waiting for a worker slot or bcrypt itself refuses the input.
func (h *BcryptHasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)
	return HashPassword(password, h.cost)
}

// Verify reports whether password matches digest. A mismatch is (false, nil).
// An empty digest is checked against a dummy hash to keep timing uniform.
func (h *BcryptHasher) Verify(ctx context.Context, password, digest string) (bool, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.sem.Release(1)
	if digest == "" {
		_ = CompareHashAndPassword(h.dummy, password)
		return false, nil
	}
	return CompareHashAndPassword(digest, password), nil
}
