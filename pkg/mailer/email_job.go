package mailer

import "time"

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Subject and Text are rendered before publishing so the worker only delivers.
type EmailJob struct {
	To      string       `json:"to"`
	Subject string       `json:"subject"`
	Text    string       `json:"text"`
	HTML    string       `json:"html,omitempty"`
	Code    *PendingCode `json:"code,omitempty"`
}

// PendingCode identifies the one-time code a message carries, so a consumer
// that gives up on delivery can revoke it.
type PendingCode struct {
	UserID    string    `json:"user_id"`
	Digest    string    `json:"digest"`
	ExpiresAt time.Time `json:"expires_at"`
}
