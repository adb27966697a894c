package mailer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/wellness-auth/pkg/helpers"
)

// Sender is satisfied by *Mailgun.
type Sender interface {
	SendHTML(ctx context.Context, to, subject, text, html string) error
}

// CodeRevoker clears a pending one-time code, but only while the stored
// digest still matches and has not expired.
type CodeRevoker interface {
	ConsumeOTP(ctx context.Context, userID, expectedHash string, now time.Time) (bool, error)
}

// Outcome tells the consumer loop what to do with a delivery.
type Outcome int

const (
	Ack Outcome = iota
	Requeue
	Drop
)

func (o Outcome) String() string {
	switch o {
	case Ack:
		return "ack"
	case Requeue:
		return "requeue"
	default:
		return "drop"
	}
}

// Worker delivers queued email jobs. A job gets one retry; when that fails
// too, any code it carries is revoked so it cannot be verified undelivered.
type Worker struct {
	Sender  Sender
	Revoker CodeRevoker
	Logger  *logrus.Logger
	Now     func() time.Time
}

func NewWorker(sender Sender, revoker CodeRevoker, logger *logrus.Logger) *Worker {
	return &Worker{Sender: sender, Revoker: revoker, Logger: logger, Now: time.Now}
}

func (w *Worker) Handle(ctx context.Context, body []byte, redelivered bool) Outcome {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil || job.To == "" || job.Subject == "" {
		w.Logger.WithError(err).Warn("dropping malformed email job")
		return Drop
	}
	fields := logrus.Fields{"subject": job.Subject}

	if job.Code != nil && !w.Now().Before(job.Code.ExpiresAt) {
		w.Logger.WithFields(fields).Warn("dropping email with expired code")
		return Drop
	}

	if err := w.Sender.SendHTML(ctx, job.To, job.Subject, job.Text, job.HTML); err != nil {
		if !redelivered {
			w.Logger.WithError(err).WithFields(fields).Warn("send failed, requeueing")
			return Requeue
		}
		w.Logger.WithError(err).WithFields(fields).Error("send failed twice, dropping")
		w.revoke(ctx, job.Code)
		return Drop
	}
	helpers.LogInfo(w.Logger, "email sent", fields)
	return Ack
}

func (w *Worker) revoke(ctx context.Context, code *PendingCode) {
	if code == nil {
		return
	}
	log := w.Logger.WithField("user_id", code.UserID)
	if w.Revoker == nil {
		log.Warn("no store configured; undelivered code stays valid until it expires")
		return
	}
	ok, err := w.Revoker.ConsumeOTP(context.WithoutCancel(ctx), code.UserID, code.Digest, w.Now())
	switch {
	case err != nil:
		log.WithError(err).Error("revoking undelivered code failed")
	case ok:
		log.Info("undelivered code revoked")
	default:
		log.Info("undelivered code already used, replaced or expired")
	}
}
