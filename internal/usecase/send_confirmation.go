package usecase

import (
	"context"
	"errors"

	"github.com/xavierca1/course-funnel/internal/entity"
	"github.com/xavierca1/course-funnel/internal/infra/http/middleware"
	"github.com/xavierca1/course-funnel/internal/infra/mail"
	"github.com/xavierca1/course-funnel/internal/infra/queue"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	MsgNameEmailRequired = "Name and email are required"
	MsgMailNotConfigured = "Email service not configured"
	MsgSendEmailFailed   = "Failed to send email"
)

type SendConfirmationUseCase struct {
	Mailer EmailService
	Repo   entity.LeadRepositoryInterface
	Log    *zap.SugaredLogger
}

func NewSendConfirmationUseCase(mailer EmailService, repo entity.LeadRepositoryInterface, log *zap.SugaredLogger) *SendConfirmationUseCase {
	return &SendConfirmationUseCase{Mailer: mailer, Repo: repo, Log: log}
}

// Execute sends one confirmation email. A single attempt is made.
func (uc *SendConfirmationUseCase) Execute(ctx context.Context, input SendConfirmationInput) (*SendConfirmationOutput, error) {
	input.trim()
	if missing := missingFields(input); len(missing) > 0 {
		return nil, &DomainError{Code: CodeMissingFields, Message: MsgNameEmailRequired}
	}
	if !uc.Mailer.Configured() {
		return nil, &TechnicalError{Code: CodeMailNotConfigured, Message: MsgMailNotConfigured}
	}

	id, err := uc.Mailer.SendConfirmation(ctx, mail.ConfirmationEmail{
		To:     input.Email,
		Name:   input.Name,
		Course: input.Course,
	})
	if err != nil {
		if errors.Is(err, mail.ErrNotConfigured) {
			return nil, &TechnicalError{Code: CodeMailNotConfigured, Message: MsgMailNotConfigured, Cause: err}
		}
		return nil, &TechnicalError{Code: CodeMailSendFailed, Message: MsgSendEmailFailed, Cause: err}
	}

	uc.Log.Infow("confirmation email sent", "lead_id", input.LeadID, "message_id", id)
	return &SendConfirmationOutput{MessageID: id}, nil
}

// Process is the queue entry point. The lead is flagged only after the
// transport accepted the message.
func (uc *SendConfirmationUseCase) Process(ctx context.Context, job queue.NotificationJob) error {
	ctx, span := otel.Tracer("course-funnel/usecase").Start(ctx, "SendConfirmation.Process")
	defer span.End()
	span.SetAttributes(attribute.String("lead.id", job.LeadID), attribute.String("job.origin", job.Origin))

	_, err := uc.Execute(ctx, SendConfirmationInput{
		LeadID: job.LeadID,
		Name:   job.Name,
		Email:  job.Email,
		Course: job.Course,
	})
	if err != nil {
		middleware.RecordNotification("failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		return err
	}
	middleware.RecordNotification("sent")

	if job.LeadID == "" || uc.Repo == nil {
		return nil
	}
	if err := uc.Repo.MarkEmailSent(ctx, job.LeadID); err != nil {
		span.RecordError(err)
		uc.Log.Errorw("email sent but lead not flagged", "lead_id", job.LeadID, "error", err)
		return err
	}
	return nil
}
