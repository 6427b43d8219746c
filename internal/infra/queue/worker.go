package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/xavierca1/realty-leads/internal/notify"
)

type consumer interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Worker consumes notification jobs and runs the fan-out for each one.
type Worker struct {
	Channel  consumer
	Runner   notify.Runner
	Timeout  time.Duration
	Prefetch int
	Logger   *zap.Logger
}

func NewWorker(ch *amqp.Channel, runner notify.Runner, timeout time.Duration, logger *zap.Logger) *Worker {
	return &Worker{
		Channel:  ch,
		Runner:   runner,
		Timeout:  timeout,
		Prefetch: 10,
		Logger:   logger,
	}
}

// Start blocks until ctx is cancelled or the delivery channel closes.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	if err := w.Channel.Qos(w.Prefetch, 0, false); err != nil {
		return fmt.Errorf("set prefetch: %w", err)
	}
	msgs, err := w.Channel.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	w.Logger.Info("🐇 notification worker waiting", zap.String("queue", queueName))
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			w.handle(ctx, d)
		}
	}
}

// handle acks every job it could decode, whatever the channel outcomes.
// Undecodable messages are rejected without requeue and end up in the DLQ.
func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var job notify.Job
	if err := json.Unmarshal(d.Body, &job); err != nil || job.ID == "" {
		w.Logger.Error("❌ malformed notification job", zap.String("message_id", d.MessageId), zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	timeout := w.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	report := w.Runner.Run(runCtx, &job)
	w.Logger.Info("📬 notification job processed",
		zap.String("job_id", job.ID),
		zap.String("lead_id", report.LeadID),
		zap.Any("results", report.Results),
	)
	if err := d.Ack(false); err != nil {
		w.Logger.Warn("⚠️ ack failed", zap.String("job_id", job.ID), zap.Error(err))
	}
}
