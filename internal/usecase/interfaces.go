package usecase

import (
	"context"

	"github.com/xavierca1/course-funnel/internal/infra/mail"
	"github.com/xavierca1/course-funnel/internal/infra/queue"
)

type EmailService interface {
	Configured() bool
	SendConfirmation(ctx context.Context, email mail.ConfirmationEmail) (string, error)
}

type QueueProducerInterface interface {
	Enqueue(ctx context.Context, job queue.NotificationJob) error
}
