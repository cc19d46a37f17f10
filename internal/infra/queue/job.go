package queue

import (
	"context"
	"errors"
)

// NotificationJob asks for the confirmation email of one registration.
type NotificationJob struct {
	LeadID string `json:"lead_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Course string `json:"course"`
	Origin string `json:"origin"`
}

var (
	ErrQueueFull   = errors.New("notification queue is full")
	ErrQueueClosed = errors.New("notification queue is closed")
)

// Publisher hands a job to background processing. Implementations never
// wait for the job itself to run.
type Publisher interface {
	Enqueue(ctx context.Context, job NotificationJob) error
}

// Processor runs one job exactly once. Returned errors are logged by the
// consumer and the job is dropped.
type Processor interface {
	Process(ctx context.Context, job NotificationJob) error
}

type ProcessorFunc func(ctx context.Context, job NotificationJob) error

func (f ProcessorFunc) Process(ctx context.Context, job NotificationJob) error {
	return f(ctx, job)
}
