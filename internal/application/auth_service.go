package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/wellness-auth/internal/domain/entity"
	repo "github.com/oksasatya/wellness-auth/internal/domain/repository"
	"github.com/oksasatya/wellness-auth/pkg/helpers"
)

// Service handles registration, login and session checks.
type Service struct {
	Repo     repo.UserRepository
	Hasher   PasswordHasher
	Sessions SessionIssuer
	Clock    Clock
	Logger   *logrus.Logger
	Audit    Auditor
	Timeout  time.Duration
}

type Session struct {
	Token     string
	ExpiresAt time.Time
}

func NewService(r repo.UserRepository, hasher PasswordHasher, sessions SessionIssuer, clock Clock, logger *logrus.Logger, audit Auditor, timeout time.Duration) *Service {
	return &Service{
		Repo:     r,
		Hasher:   hasher,
		Sessions: sessions,
		Clock:    clock,
		Logger:   logger,
		Audit:    auditorOrNop(audit),
		Timeout:  timeout,
	}
}

// NormalizeEmail lower-cases and trims an address; emails compare case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register hashes the password, creates the account and opens a session.
func (s *Service) Register(ctx context.Context, in RegisterInput, meta RequestMeta) (*entity.User, Session, error) {
	username := strings.TrimSpace(in.Username)
	email := NormalizeEmail(in.Email)
	if username == "" || email == "" || in.Password == "" || len(in.Password) > helpers.MaxPasswordBytes {
		return nil, Session{}, ErrValidation
	}

	digest, err := s.Hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, Session{}, internalErr("hash password", err)
	}

	u := &entity.User{Username: username, Email: email, PasswordHash: digest}
	c, cancel := withTimeout(ctx, s.Timeout)
	err = s.Repo.Create(c, u)
	cancel()
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			s.record(ctx, ActionRegister, "", email, meta, false, "duplicate")
			return nil, Session{}, ErrDuplicateIdentity
		}
		return nil, Session{}, internalErr("create user", err)
	}

	sess, err := s.issue(u)
	if err != nil {
		return nil, Session{}, err
	}
	s.record(ctx, ActionRegister, u.ID, u.Email, meta, true, "")
	count(ActionRegister)
	return u, sess, nil
}

// Login checks credentials. Every failure cause yields ErrInvalidCredentials
// so callers cannot tell an unknown email from a wrong password.
func (s *Service) Login(ctx context.Context, email, password string, meta RequestMeta) (*entity.User, Session, error) {
	email = NormalizeEmail(email)

	c, cancel := withTimeout(ctx, s.Timeout)
	u, err := s.Repo.GetByEmail(c, email)
	cancel()
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, Session{}, internalErr("lookup user", err)
	}

	digest := ""
	if u != nil {
		digest = u.PasswordHash
	}
	ok, err := s.Hasher.Verify(ctx, password, digest)
	if err != nil {
		return nil, Session{}, internalErr("verify password", err)
	}
	if u == nil || !ok {
		uid := ""
		if u != nil {
			uid = u.ID
		}
		s.record(ctx, ActionLoginFailure, uid, email, meta, false, "invalid_credentials")
		count(ActionLoginFailure)
		return nil, Session{}, ErrInvalidCredentials
	}

	sess, err := s.issue(u)
	if err != nil {
		return nil, Session{}, err
	}
	s.record(ctx, ActionLoginSuccess, u.ID, u.Email, meta, true, "")
	count(ActionLoginSuccess)
	return u, sess, nil
}

// Authenticate resolves a bearer token to a user id.
func (s *Service) Authenticate(token string) (string, error) {
	uid, err := s.Sessions.Verify(token)
	if err != nil {
		if errors.Is(err, helpers.ErrTokenExpired) {
			return "", ErrSessionExpired
		}
		return "", ErrSessionInvalid
	}
	return uid, nil
}

func (s *Service) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	c, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()
	u, err := s.Repo.GetByID(c, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, internalErr("lookup user", err)
	}
	return u, nil
}

func (s *Service) issue(u *entity.User) (Session, error) {
	token, exp, err := s.Sessions.Issue(u.ID)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("issue session token failed")
		}
		return Session{}, internalErr("issue session", err)
	}
	return Session{Token: token, ExpiresAt: exp}, nil
}

func (s *Service) record(ctx context.Context, action, userID, email string, meta RequestMeta, success bool, reason string) {
	s.Audit.Record(ctx, AuditEvent{
		Action:    action,
		UserID:    userID,
		Email:     email,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		Success:   success,
		Reason:    reason,
		At:        s.Clock.Now(),
	})
}
