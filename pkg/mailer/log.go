package mailer

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogNotifier is used when MAIL_SEND_ENABLED=false. It records that a message
// was suppressed; the body is never logged because it may carry a code.
type LogNotifier struct {
	Logger *logrus.Logger
}

func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{Logger: logger}
}

func (n *LogNotifier) Send(_ context.Context, to, subject, _ string) error {
	if n.Logger != nil {
		n.Logger.WithFields(logrus.Fields{"to": to, "subject": subject}).Warn("mail sending disabled; message suppressed")
	}
	return nil
}
