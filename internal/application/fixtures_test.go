package application

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/wellness-auth/internal/infrastructure/memory"
	"github.com/oksasatya/wellness-auth/pkg/helpers"
	tpl "github.com/oksasatya/wellness-auth/pkg/mailer/templates"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type sentMail struct {
	To, Subject, Body string
}

type captureNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	fail error
}

func (n *captureNotifier) Send(_ context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.sent = append(n.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (n *captureNotifier) last() sentMail {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return sentMail{}
	}
	return n.sent[len(n.sent)-1]
}

type captureAuditor struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (a *captureAuditor) Record(_ context.Context, ev AuditEvent) {
	a.mu.Lock()
	a.events = append(a.events, ev)
	a.mu.Unlock()
}

func (a *captureAuditor) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.events))
	for _, ev := range a.events {
		out = append(out, ev.Action)
	}
	return out
}

var errSMTPDown = errors.New("smtp down")

var codePattern = regexp.MustCompile(`code is: (\d{6})`)

func codeFrom(t *testing.T, body string) string {
	t.Helper()
	m := codePattern.FindStringSubmatch(body)
	require.Len(t, m, 2, "no code in %q", body)
	return m[1]
}

type harness struct {
	repo     *memory.UserRepository
	clock    *fakeClock
	notifier *captureNotifier
	audit    *captureAuditor
	auth     *Service
	recovery *RecoveryService
	otp      *OTPManager
	tokens   *ResetTokenManager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		repo:     memory.NewUserRepository(),
		clock:    newFakeClock(),
		notifier: &captureNotifier{},
		audit:    &captureAuditor{},
	}
	hasher := helpers.NewBcryptHasher(bcrypt.MinCost, 4)
	jwtm := helpers.NewJWTManager("test-secret", time.Hour)
	jwtm.Now = h.clock.Now
	logger := helpers.NewNopLogger()

	h.auth = NewService(h.repo, hasher, jwtm, h.clock, logger, h.audit, time.Second)
	h.otp = NewOTPManager(h.repo, h.clock, 5*time.Minute, time.Second)
	h.tokens = NewResetTokenManager(h.repo, hasher, h.clock, 10*time.Minute, time.Second)
	h.recovery = NewRecoveryService(h.repo, h.otp, h.tokens, h.notifier, h.clock, logger, h.audit,
		tpl.Brand{AppName: "wellness", CompanyName: "Wellness Tracker"}, time.Second, time.Second)
	return h
}

func (h *harness) register(t *testing.T, username, email, password string) string {
	t.Helper()
	u, _, err := h.auth.Register(context.Background(), RegisterInput{Username: username, Email: email, Password: password}, RequestMeta{})
	require.NoError(t, err)
	return u.ID
}
