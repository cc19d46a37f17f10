package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/xavierca1/course-funnel/internal/entity"
	"github.com/xavierca1/course-funnel/internal/infra/http/middleware"
	"go.uber.org/zap"
)

var paymentEvents = map[string]entity.PaymentStatus{
	"PAYMENT_RECEIVED":  entity.PaymentCompleted,
	"PAYMENT_CONFIRMED": entity.PaymentCompleted,
	"PAYMENT_FAILED":    entity.PaymentFailed,
	"PAYMENT_REFUSED":   entity.PaymentFailed,
}

type UpdatePaymentStatusUseCase struct {
	Repo entity.LeadRepositoryInterface
	Log  *zap.SugaredLogger
}

func NewUpdatePaymentStatusUseCase(repo entity.LeadRepositoryInterface, log *zap.SugaredLogger) *UpdatePaymentStatusUseCase {
	return &UpdatePaymentStatusUseCase{Repo: repo, Log: log}
}

// Execute applies a gateway event to the matching lead. Events that do not
// move a payment are acknowledged and ignored.
func (uc *UpdatePaymentStatusUseCase) Execute(ctx context.Context, input UpdatePaymentStatusInput) (*UpdatePaymentStatusOutput, error) {
	status, ok := paymentEvents[strings.ToUpper(strings.TrimSpace(input.Event))]
	if !ok {
		uc.Log.Infow("payment event ignored", "event", input.Event)
		return &UpdatePaymentStatusOutput{Ignored: true}, nil
	}

	if strings.TrimSpace(input.LeadID) == "" && strings.TrimSpace(input.Email) == "" {
		return nil, &DomainError{Code: CodeInvalidEvent, Message: "leadId or email is required"}
	}

	lead, err := uc.findLead(ctx, input)
	if err != nil {
		if errors.Is(err, entity.ErrLeadNotFound) {
			return nil, &DomainError{Code: CodeLeadNotFound, Message: "Registration not found"}
		}
		return nil, &TechnicalError{Code: CodeDatabase, Message: "failed to load registration", Cause: err}
	}

	if err := uc.Repo.UpdatePaymentStatus(ctx, lead.ID, status); err != nil {
		if errors.Is(err, entity.ErrLeadNotFound) {
			return nil, &DomainError{Code: CodeLeadNotFound, Message: "Registration not found"}
		}
		return nil, &TechnicalError{Code: CodeDatabase, Message: "failed to update payment status", Cause: err}
	}

	middleware.RecordPayment(string(status))
	uc.Log.Infow("payment status updated", "lead_id", lead.ID, "event", input.Event, "status", status)
	return &UpdatePaymentStatusOutput{LeadID: lead.ID, Status: status}, nil
}

func (uc *UpdatePaymentStatusUseCase) findLead(ctx context.Context, input UpdatePaymentStatusInput) (*entity.Lead, error) {
	if id := strings.TrimSpace(input.LeadID); id != "" {
		return uc.Repo.FindByID(ctx, id)
	}
	return uc.Repo.FindByEmail(ctx, input.Email)
}
