package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/wellness-auth/internal/domain/entity"
	repo "github.com/oksasatya/wellness-auth/internal/domain/repository"
	"github.com/oksasatya/wellness-auth/pkg/mailer"
	tpl "github.com/oksasatya/wellness-auth/pkg/mailer/templates"
)

// RecoveryService runs the forgotten-password flow:
// NoRequest -> OtpPending -> ResetGranted -> NoRequest.
type RecoveryService struct {
	Repo            repo.UserRepository
	OTP             *OTPManager
	Tokens          *ResetTokenManager
	Notifier        Notifier
	Clock           Clock
	Logger          *logrus.Logger
	Audit           Auditor
	Brand           tpl.Brand
	Timeout         time.Duration
	DeliveryTimeout time.Duration
}

func NewRecoveryService(r repo.UserRepository, otp *OTPManager, tokens *ResetTokenManager, notifier Notifier, clock Clock, logger *logrus.Logger, audit Auditor, brand tpl.Brand, timeout, deliveryTimeout time.Duration) *RecoveryService {
	return &RecoveryService{
		Repo:            r,
		OTP:             otp,
		Tokens:          tokens,
		Notifier:        notifier,
		Clock:           clock,
		Logger:          logger,
		Audit:           auditorOrNop(audit),
		Brand:           brand,
		Timeout:         timeout,
		DeliveryTimeout: deliveryTimeout,
	}
}

func (s *RecoveryService) lookup(ctx context.Context, email string) (*entity.User, error) {
	c, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()
	u, err := s.Repo.GetByEmail(c, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, internalErr("lookup user", err)
	}
	return u, nil
}

// ForgotPassword issues a one-time code and emails it. If delivery fails the
// stored code is cleared again so no undelivered code stays verifiable.
func (s *RecoveryService) ForgotPassword(ctx context.Context, email string, meta RequestMeta) error {
	u, err := s.lookup(ctx, email)
	if err != nil {
		return err
	}

	// a new request restarts the flow
	if u.ResetToken != nil {
		if err := s.Tokens.Revoke(ctx, u); err != nil {
			return err
		}
	}

	code, err := s.OTP.RequestCode(ctx, u)
	if err != nil {
		return err
	}

	now := s.Clock.Now()
	data := tpl.NewPasswordOTPData(s.Brand, u.Username, u.Email, code,
		tpl.WithExpiry(now, s.OTP.TTL),
		tpl.WithTime(now),
		tpl.WithIP(meta.IP),
		tpl.WithUserAgent(meta.UserAgent),
	)
	subject, body, err := tpl.Render(tpl.PasswordOTP, data)
	if err == nil {
		c, cancel := withTimeout(ctx, s.DeliveryTimeout)
		err = s.deliverCode(c, u, subject, body)
		cancel()
	}
	if err != nil {
		if dErr := s.OTP.Discard(ctx, u); dErr != nil && s.Logger != nil {
			s.Logger.WithError(dErr).WithField("user_id", u.ID).Error("compensating otp clear failed")
		}
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("otp delivery failed")
		}
		s.record(ctx, ActionOTPDeliveryFailed, u, meta, false, "delivery")
		count(ActionOTPDeliveryFailed)
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	s.record(ctx, ActionOTPIssued, u, meta, true, "")
	count(ActionOTPIssued)
	return nil
}

func (s *RecoveryService) deliverCode(ctx context.Context, u *entity.User, subject, body string) error {
	if cn, ok := s.Notifier.(CodeNotifier); ok && u.OTP != nil {
		return cn.SendCode(ctx, u.Email, subject, body, mailer.PendingCode{
			UserID:    u.ID,
			Digest:    u.OTP.Hash,
			ExpiresAt: u.OTP.ExpiresAt,
		})
	}
	return s.Notifier.Send(ctx, u.Email, subject, body)
}

// VerifyOTP exchanges a valid code for a reset token. Unknown emails get the
// same ErrInvalidOrExpired as a wrong code.
func (s *RecoveryService) VerifyOTP(ctx context.Context, email, code string, meta RequestMeta) (string, error) {
	u, err := s.lookup(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", ErrInvalidOrExpired
		}
		return "", err
	}

	if err := s.OTP.Verify(ctx, u, strings.TrimSpace(code)); err != nil {
		if errors.Is(err, ErrInvalidOrExpired) {
			s.record(ctx, ActionOTPRejected, u, meta, false, "invalid_or_expired")
			count(ActionOTPRejected)
		}
		return "", err
	}

	token, err := s.Tokens.Issue(ctx, u)
	if err != nil {
		return "", err
	}
	s.record(ctx, ActionOTPVerified, u, meta, true, "")
	count(ActionOTPVerified)
	return token, nil
}

// ResetPassword redeems the exchange token and sets the new password.
func (s *RecoveryService) ResetPassword(ctx context.Context, token, password, confirmPassword string, meta RequestMeta) error {
	u, err := s.Tokens.Redeem(ctx, strings.TrimSpace(token), password, confirmPassword)
	if err != nil {
		if errors.Is(err, ErrInvalidOrExpired) || errors.Is(err, ErrPasswordMismatch) {
			reason := "invalid_or_expired"
			if errors.Is(err, ErrPasswordMismatch) {
				reason = "mismatch"
			}
			s.Audit.Record(ctx, AuditEvent{Action: ActionResetRejected, IP: meta.IP, UserAgent: meta.UserAgent, Reason: reason, At: s.Clock.Now()})
			count(ActionResetRejected)
		}
		return err
	}

	s.record(ctx, ActionPasswordReset, u, meta, true, "")
	count(ActionPasswordReset)
	s.notifyPasswordChanged(ctx, u, meta)
	return nil
}

// notifyPasswordChanged is best effort: the password is already changed.
func (s *RecoveryService) notifyPasswordChanged(ctx context.Context, u *entity.User, meta RequestMeta) {
	data := tpl.NewPasswordChangedData(s.Brand, u.Username, u.Email,
		tpl.WithTime(s.Clock.Now()),
		tpl.WithIP(meta.IP),
	)
	subject, body, err := tpl.Render(tpl.PasswordChanged, data)
	if err == nil {
		c, cancel := withTimeout(ctx, s.DeliveryTimeout)
		err = s.Notifier.Send(c, u.Email, subject, body)
		cancel()
	}
	if err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("password changed notice not sent")
	}
}

func (s *RecoveryService) record(ctx context.Context, action string, u *entity.User, meta RequestMeta, success bool, reason string) {
	s.Audit.Record(ctx, AuditEvent{
		Action:    action,
		UserID:    u.ID,
		Email:     u.Email,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		Success:   success,
		Reason:    reason,
		At:        s.Clock.Now(),
	})
}
