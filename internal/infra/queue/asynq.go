package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TypeConfirmationSend = "notification:confirmation"

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (c RedisConfig) opt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: c.Addr, Password: c.Password, DB: c.DB}
}

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqProducer stores jobs in Redis. Tasks carry MaxRetry(0) so a failed
// send goes straight to the archive.
type AsynqProducer struct {
	Client    taskEnqueuer
	inspector *asynq.Inspector
}

func NewAsynqProducer(cfg RedisConfig) *AsynqProducer {
	return &AsynqProducer{
		Client:    asynq.NewClient(cfg.opt()),
		inspector: asynq.NewInspector(cfg.opt()),
	}
}

func NewConfirmationTask(job NotificationJob) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(job)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeConfirmationSend, b)
	opts := []asynq.Option{asynq.MaxRetry(0), asynq.Timeout(time.Minute)}
	return task, opts, nil
}

func (p *AsynqProducer) Enqueue(ctx context.Context, job NotificationJob) error {
	task, opts, err := NewConfirmationTask(job)
	if err != nil {
		return fmt.Errorf("encoding notification job: %w", err)
	}
	if _, err := p.Client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("enqueueing asynq task: %w", err)
	}
	return nil
}

// Ping checks that Redis answers.
func (p *AsynqProducer) Ping(context.Context) error {
	if p.inspector == nil {
		return nil
	}
	_, err := p.inspector.Queues()
	return err
}

func (p *AsynqProducer) Close() error {
	if p.inspector != nil {
		p.inspector.Close()
	}
	if c, ok := p.Client.(*asynq.Client); ok {
		return c.Close()
	}
	return nil
}

// AsynqWorker processes confirmation tasks pulled from Redis.
type AsynqWorker struct {
	srv *asynq.Server
	mux *asynq.ServeMux
}

func NewAsynqWorker(cfg RedisConfig, concurrency int, processor Processor, log *zap.SugaredLogger) *AsynqWorker {
	srv := asynq.NewServer(cfg.opt(), asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{"default": 1},
		Logger:      log,
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeConfirmationSend, handleConfirmationTask(processor, log))

	return &AsynqWorker{srv: srv, mux: mux}
}

func (w *AsynqWorker) Start() error {
	return w.srv.Start(w.mux)
}

func (w *AsynqWorker) Shutdown() {
	w.srv.Shutdown()
}

func handleConfirmationTask(processor Processor, log *zap.SugaredLogger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var job NotificationJob
		if err := json.Unmarshal(task.Payload(), &job); err != nil {
			log.Errorw("invalid confirmation payload", "error", err)
			return fmt.Errorf("decoding payload: %v: %w", err, asynq.SkipRetry)
		}

		if err := processor.Process(ctx, job); err != nil {
			log.Errorw("notification job failed", "lead_id", job.LeadID, "error", err)
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return nil
	}
}
