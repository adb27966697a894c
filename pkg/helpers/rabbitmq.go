package helpers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

var ErrPublishNacked = errors.New("broker did not confirm publish")

// RabbitPublisher wraps an AMQP channel in confirm mode for publishing messages.
type RabbitPublisher struct {
	mu    sync.Mutex
	conn  *amqp.Connection
	ch    *amqp.Channel
	Queue string
}

func NewRabbitPublisher(url, queue string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	// Declare durable queue
	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err == nil {
		err = ch.Confirm(false)
	}
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &RabbitPublisher{conn: conn, ch: ch, Queue: queue}, nil
}

func (p *RabbitPublisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// PublishOptions tunes a single publish. The zero value is a persistent
// message without expiry.
type PublishOptions struct {
	// Transient keeps the message in broker memory only.
	Transient bool
	// TTL drops the message from the queue once it has waited this long.
	TTL time.Duration
}

// Publish publishes a JSON-encoded message to the default queue and waits
// for the broker to confirm it.
func (p *RabbitPublisher) Publish(ctx context.Context, body any, opts PublishOptions) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         b,
	}
	if opts.Transient {
		msg.DeliveryMode = amqp.Transient
	}
	if opts.TTL > 0 {
		msg.Expiration = strconv.FormatInt(opts.TTL.Milliseconds(), 10)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	conf, err := p.ch.PublishWithDeferredConfirmWithContext(ctx,
		"",      // default exchange
		p.Queue, // routing key = queue
		false,   // mandatory
		false,   // immediate
		msg,
	)
	if err != nil {
		return err
	}
	ok, err := conf.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPublishNacked
	}
	return nil
}
