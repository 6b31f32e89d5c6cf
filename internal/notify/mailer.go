package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"

	"presentsmart/internal/queue"
)

// MessageType tags email jobs on the queue.
const MessageType = "email"

// ResendMailer delivers through the Resend HTTP API.
type ResendMailer struct {
	client *resend.Client
	from   string
}

// NewResendMailer creates a mailer sending as from.
func NewResendMailer(apiKey, from string) *ResendMailer {
	return &ResendMailer{client: resend.NewClient(apiKey), from: from}
}

// Send delivers e.
func (m *ResendMailer) Send(_ context.Context, e Email) error {
	_, err := m.client.Emails.Send(&resend.SendEmailRequest{
		From:    m.from,
		To:      []string{e.To},
		Subject: e.Subject,
		Html:    e.HTML,
	})
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}

// LogMailer records what would be sent. Used when no API key is configured.
type LogMailer struct {
	log *zap.Logger
}

// NewLogMailer creates a mailer that only logs.
func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log}
}

// Send logs e.
func (m *LogMailer) Send(_ context.Context, e Email) error {
	m.log.Info("email delivery disabled, would send", zap.String("to", e.To), zap.String("subject", e.Subject))
	return nil
}

// QueueMailer defers delivery to a Dispatcher by publishing to a queue.
type QueueMailer struct {
	q queue.Queue
}

// NewQueueMailer creates a mailer publishing to q.
func NewQueueMailer(q queue.Queue) *QueueMailer {
	return &QueueMailer{q: q}
}

// Send enqueues e.
func (m *QueueMailer) Send(ctx context.Context, e Email) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return m.q.Publish(ctx, queue.Message{Type: MessageType, Body: body})
}
