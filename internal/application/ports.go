package application

import (
	"context"
	"time"

	"github.com/oksasatya/wellness-auth/pkg/mailer"
)

// Clock is injected so expiry math can run against fixed time in tests.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// PasswordHasher is the slow, salted one-way hash for account passwords.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, digest string) (bool, error)
}

// SessionIssuer issues and checks stateless bearer session tokens.
type SessionIssuer interface {
	Issue(userID string) (string, time.Time, error)
	Verify(token string) (string, error)
}

// Notifier delivers a message out of band.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// CodeNotifier is implemented by notifiers that finish delivery after Send
// returns. They receive what they need to revoke a code they could not
// deliver.
type CodeNotifier interface {
	SendCode(ctx context.Context, to, subject, body string, code mailer.PendingCode) error
}

// RequestMeta describes the caller for audit records and emails.
type RequestMeta struct {
	IP        string
	UserAgent string
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
