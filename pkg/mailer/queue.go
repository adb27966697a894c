package mailer

import (
	"context"
	"time"

	"github.com/oksasatya/wellness-auth/pkg/helpers"
)

// Publisher is satisfied by helpers.RabbitPublisher.
type Publisher interface {
	Publish(ctx context.Context, body any, opts helpers.PublishOptions) error
}

// QueueNotifier hands emails to the email worker through RabbitMQ. A publish
// that the broker does not confirm counts as a failed delivery.
type QueueNotifier struct {
	Pub Publisher
	Now func() time.Time
}

func NewQueueNotifier(pub Publisher) *QueueNotifier {
	return &QueueNotifier{Pub: pub, Now: time.Now}
}

func (q *QueueNotifier) Send(ctx context.Context, to, subject, body string) error {
	return q.Pub.Publish(ctx, EmailJob{To: to, Subject: subject, Text: body}, helpers.PublishOptions{})
}

// SendCode publishes a message that carries a one-time code. It is kept off
// the broker's disk and expires with the code; the worker revokes the code
// if it gives up on delivery.
func (q *QueueNotifier) SendCode(ctx context.Context, to, subject, body string, code PendingCode) error {
	job := EmailJob{To: to, Subject: subject, Text: body, Code: &code}
	opts := helpers.PublishOptions{Transient: true}
	if ttl := code.ExpiresAt.Sub(q.Now()); ttl > 0 {
		opts.TTL = ttl
	}
	return q.Pub.Publish(ctx, job, opts)
}
