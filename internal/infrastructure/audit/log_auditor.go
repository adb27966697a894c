// Package audit holds the sinks for security audit events.
package audit

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/wellness-auth/internal/application"
)

// LogAuditor writes audit events as structured log lines.
type LogAuditor struct {
	Logger *logrus.Logger
}

func NewLogAuditor(logger *logrus.Logger) *LogAuditor {
	return &LogAuditor{Logger: logger}
}

func (a *LogAuditor) Record(_ context.Context, ev application.AuditEvent) {
	if a.Logger == nil {
		return
	}
	entry := a.Logger.WithFields(logrus.Fields{
		"audit":      true,
		"action":     ev.Action,
		"user_id":    ev.UserID,
		"email":      ev.Email,
		"ip":         ev.IP,
		"user_agent": ev.UserAgent,
		"success":    ev.Success,
		"reason":     ev.Reason,
		"at":         ev.At,
	})
	if ev.Success {
		entry.Info("audit")
		return
	}
	entry.Warn("audit")
}
