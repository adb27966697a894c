package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/wellness-auth/config"
	pginfra "github.com/oksasatya/wellness-auth/internal/infrastructure/postgres"
	"github.com/oksasatya/wellness-auth/pkg/helpers"
	"github.com/oksasatya/wellness-auth/pkg/mailer"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-email-worker", cfg.Env)

	if !cfg.MailSendEnabled {
		logger.Warn("MAIL_SEND_ENABLED=false; email worker disabled (no real emails will be sent)")
		return
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQEmailQueue == "" {
		logger.Fatal("RabbitMQ not configured")
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
		logger.Fatal("Mailgun not configured")
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatalf("amqp dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatalf("amqp channel: %v", err)
	}
	defer func() { _ = ch.Close() }()

	// prefetch for fair dispatch
	if err := ch.Qos(16, 0, false); err != nil {
		logger.Fatalf("qos: %v", err)
	}
	if _, err := ch.QueueDeclare(cfg.RabbitMQEmailQueue, true, false, false, false, nil); err != nil {
		logger.Fatalf("queue declare: %v", err)
	}
	msgs, err := ch.Consume(cfg.RabbitMQEmailQueue, "", false, false, false, false, nil)
	if err != nil {
		logger.Fatalf("consume: %v", err)
	}

	mg := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
	mg.Timeout = cfg.DeliveryTimeout

	revoker, closeStore := buildRevoker(cfg, logger)
	defer closeStore()
	worker := mailer.NewWorker(mg, revoker, logger)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for msg := range msgs {
			settle(msg, worker.Handle(context.Background(), msg.Body, msg.Redelivered))
		}
	}()

	logger.Infof("email worker listening on queue=%s", cfg.RabbitMQEmailQueue)
	<-stop
	logger.Info("shutting down...")
	_ = ch.Close()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}
}

// buildRevoker connects to the credential store so codes that cannot be
// delivered are revoked. The memory store lives in the API process, so
// there is nothing to revoke against.
func buildRevoker(cfg *config.Config, logger *logrus.Logger) (mailer.CodeRevoker, func()) {
	if cfg.StoreDriver == "memory" {
		logger.Warn("STORE_DRIVER=memory; undelivered codes stay valid until they expire")
		return nil, func() {}
	}
	pool, err := pginfra.NewPool(context.Background(), cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		logger.Fatalf("failed to connect to postgres: %v", err)
	}
	return pginfra.NewUserRepository(pool), pool.Close
}

func settle(msg amqp.Delivery, outcome mailer.Outcome) {
	switch outcome {
	case mailer.Ack:
		_ = msg.Ack(false)
	case mailer.Requeue:
		_ = msg.Nack(false, true)
	default:
		_ = msg.Nack(false, false)
	}
}
