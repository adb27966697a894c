package application

import (
	"context"
	"time"
)

const (
	ActionRegister          = "register"
	ActionLoginSuccess      = "login_success"
	ActionLoginFailure      = "login_failure"
	ActionOTPIssued         = "otp_issued"
	ActionOTPDeliveryFailed = "otp_delivery_failed"
	ActionOTPVerified       = "otp_verified"
	ActionOTPRejected       = "otp_rejected"
	ActionPasswordReset     = "password_reset"
	ActionResetRejected     = "reset_rejected"
)

// AuditEvent is a security-relevant outcome. It never carries secrets.
type AuditEvent struct {
	Action    string    `json:"action"`
	UserID    string    `json:"user_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Success   bool      `json:"success"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

type Auditor interface {
	Record(ctx context.Context, ev AuditEvent)
}

type nopAuditor struct{}

func (nopAuditor) Record(context.Context, AuditEvent) {}

func auditorOrNop(a Auditor) Auditor {
	if a == nil {
		return nopAuditor{}
	}
	return a
}
