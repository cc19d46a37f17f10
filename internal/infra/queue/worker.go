package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type consumerChannel interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Worker drains the confirmations queue. Every delivery is acked or
// dead-lettered after a single attempt.
type Worker struct {
	Channel   consumerChannel
	Processor Processor
	Log       *zap.SugaredLogger
}

func NewWorker(ch *amqp.Channel, processor Processor, log *zap.SugaredLogger) *Worker {
	return &Worker{Channel: ch, Processor: processor, Log: log}
}

// Start blocks until ctx is done or the delivery channel closes.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.Consume(
		queueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("registering RabbitMQ consumer: %w", err)
	}

	w.Log.Infow("worker waiting for messages", "queue", queueName)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("RabbitMQ delivery channel closed")
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var job NotificationJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		w.Log.Errorw("malformed notification message", "error", err)
		d.Nack(false, false)
		return
	}

	if err := w.Processor.Process(ctx, job); err != nil {
		w.Log.Errorw("notification job failed", "lead_id", job.LeadID, "error", err)
		d.Nack(false, false)
		return
	}

	w.Log.Infow("notification job done", "lead_id", job.LeadID)
	d.Ack(false)
}
