package notification

import (
	"context"
	"log/slog"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers a message to one recipient.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer records that a message would have been sent. It never logs the
// body, which may carry a confirmation link.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.Info("mail sent", "to", msg.To, "subject", msg.Subject)
	return nil
}
