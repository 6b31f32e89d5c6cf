package notify

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"presentsmart/internal/metrics"
	"presentsmart/internal/queue"
)

// Dispatcher drains email jobs from a queue into a Mailer.
type Dispatcher struct {
	q       queue.Queue
	mailer  Mailer
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewDispatcher creates a dispatcher. m may be nil.
func NewDispatcher(q queue.Queue, mailer Mailer, log *zap.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{q: q, mailer: mailer, log: log, metrics: m}
}

// Run consumes until ctx is cancelled. Failed deliveries are logged and dropped.
func (d *Dispatcher) Run(ctx context.Context) error {
	msgs, err := d.q.Consume(ctx)
	if err != nil {
		return err
	}
	d.log.Info("email dispatcher started")
	for msg := range msgs {
		if msg.Type != MessageType {
			continue
		}
		var e Email
		if err := json.Unmarshal(msg.Body, &e); err != nil {
			d.log.Warn("drop malformed email job", zap.Error(err))
			d.metrics.Email("malformed")
			continue
		}
		if err := d.mailer.Send(ctx, e); err != nil {
			d.log.Warn("email delivery failed", zap.String("to", e.To), zap.String("subject", e.Subject), zap.Error(err))
			d.metrics.Email("failed")
			continue
		}
		d.metrics.Email("sent")
	}
	d.log.Info("email dispatcher stopped")
	return nil
}
