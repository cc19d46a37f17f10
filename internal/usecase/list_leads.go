package usecase

import (
	"context"

	"github.com/xavierca1/course-funnel/internal/entity"
)

const listLimit = 100

type ListLeadsUseCase struct {
	Repo entity.LeadRepositoryInterface
}

func NewListLeadsUseCase(repo entity.LeadRepositoryInterface) *ListLeadsUseCase {
	return &ListLeadsUseCase{Repo: repo}
}

func (uc *ListLeadsUseCase) Execute(ctx context.Context) (*ListLeadsOutput, error) {
	leads, err := uc.Repo.ListRecent(ctx, listLimit)
	if err != nil {
		return nil, &TechnicalError{Code: CodeDatabase, Message: "failed to list registrations", Cause: err}
	}
	if leads == nil {
		leads = []*entity.Lead{}
	}
	return &ListLeadsOutput{Count: len(leads), Leads: leads}, nil
}
