package application

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateIdentity  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidOrExpired   = errors.New("invalid or expired")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrDelivery           = errors.New("message delivery failed")
	ErrSessionExpired     = errors.New("session expired")
	ErrSessionInvalid     = errors.New("session invalid")
	ErrInternal           = errors.New("internal error")
)

// internalErr marks infrastructure failures (store, hashing pool, timeouts)
// as retryable internal errors while keeping the cause for logs.
func internalErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrInternal, op, err)
}
