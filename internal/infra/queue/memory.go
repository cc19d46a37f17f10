package queue

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// MemoryQueue is an in-process queue: a buffered channel drained by a fixed
// set of goroutines. Jobs still buffered when the process dies are lost.
type MemoryQueue struct {
	jobs      chan NotificationJob
	processor Processor
	log       *zap.SugaredLogger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewMemoryQueue(buffer int, processor Processor, log *zap.SugaredLogger) *MemoryQueue {
	return &MemoryQueue{
		jobs:      make(chan NotificationJob, buffer),
		processor: processor,
		log:       log,
	}
}

// Start launches workers goroutines. They exit once Close has been called
// and the buffer is empty.
func (q *MemoryQueue) Start(ctx context.Context, workers int) {
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go func(id int) {
			defer q.wg.Done()
			for job := range q.jobs {
				q.run(ctx, id, job)
			}
		}(i)
	}
	q.log.Infow("notification queue started", "driver", "memory", "workers", workers, "buffer", cap(q.jobs))
}

func (q *MemoryQueue) run(ctx context.Context, worker int, job NotificationJob) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Errorw("notification job panicked", "worker", worker, "lead_id", job.LeadID, "panic", r)
		}
	}()

	if err := q.processor.Process(ctx, job); err != nil {
		q.log.Errorw("notification job failed", "worker", worker, "lead_id", job.LeadID, "error", err)
	}
}

// Enqueue never blocks: a full buffer is reported instead.
func (q *MemoryQueue) Enqueue(_ context.Context, job NotificationJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops intake and waits for buffered jobs to finish or ctx to end.
func (q *MemoryQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
