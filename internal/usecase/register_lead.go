package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/xavierca1/course-funnel/internal/entity"
	"github.com/xavierca1/course-funnel/internal/infra/http/middleware"
	"github.com/xavierca1/course-funnel/internal/infra/queue"
	"go.uber.org/zap"
)

const (
	MsgRegistrationCreated = "Registration successful! Check your email for program access link."
	MsgRegistrationUpdated = "Registration updated! Check your email for program details."
	MsgAllFieldsRequired   = "All fields are required"

	originRegister = "register"
	enqueueTimeout = 5 * time.Second
)

type RegisterLeadUseCase struct {
	Repo  entity.LeadRepositoryInterface
	Queue QueueProducerInterface
	Log   *zap.SugaredLogger
}

func NewRegisterLeadUseCase(repo entity.LeadRepositoryInterface, q QueueProducerInterface, log *zap.SugaredLogger) *RegisterLeadUseCase {
	return &RegisterLeadUseCase{Repo: repo, Queue: q, Log: log}
}

func (uc *RegisterLeadUseCase) Execute(ctx context.Context, input RegisterLeadInput) (*RegisterLeadOutput, error) {
	input.trim()
	if missing := missingFields(input); len(missing) > 0 {
		middleware.RecordRegistration("rejected")
		return nil, &DomainError{Code: CodeMissingFields, Message: MsgAllFieldsRequired}
	}

	lead := entity.NewLead(input.Name, input.Email, input.Phone, input.Course)
	lead.City = input.City
	lead.College = input.College
	lead.University = input.University

	if err := lead.Validate(); err != nil {
		middleware.RecordRegistration("rejected")
		return nil, &DomainError{Code: CodeValidation, Message: err.Error()}
	}

	created, err := uc.Repo.Upsert(ctx, lead)
	if err != nil {
		if errors.Is(err, entity.ErrValidation) {
			middleware.RecordRegistration("rejected")
			return nil, &DomainError{Code: CodeValidation, Message: err.Error()}
		}
		middleware.RecordRegistration("error")
		return nil, &TechnicalError{Code: CodeDatabase, Message: "failed to save registration", Cause: err}
	}

	out := &RegisterLeadOutput{
		ID:      lead.ID,
		Name:    lead.Name,
		Email:   lead.Email,
		Created: created,
		Message: MsgRegistrationUpdated,
	}
	if created {
		out.Message = MsgRegistrationCreated
		middleware.RecordRegistration("created")
		uc.Log.Infow("lead registered", "lead_id", lead.ID, "course", lead.Course)
	} else {
		middleware.RecordRegistration("updated")
		uc.Log.Infow("lead updated", "lead_id", lead.ID, "course", lead.Course)
	}

	uc.enqueueConfirmation(ctx, lead)
	return out, nil
}

// enqueueConfirmation hands the email off to the queue. The request may be
// gone by the time the broker answers, so the publish runs detached from it.
func (uc *RegisterLeadUseCase) enqueueConfirmation(ctx context.Context, lead *entity.Lead) {
	if uc.Queue == nil {
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), enqueueTimeout)
	defer cancel()

	job := queue.NotificationJob{
		LeadID: lead.ID,
		Name:   lead.Name,
		Email:  lead.Email,
		Course: lead.Course,
		Origin: originRegister,
	}
	if err := uc.Queue.Enqueue(pubCtx, job); err != nil {
		middleware.RecordEnqueueFailure()
		uc.Log.Errorw("confirmation email not queued", "lead_id", lead.ID, "error", err)
	}
}
