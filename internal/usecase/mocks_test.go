package usecase_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/xavierca1/course-funnel/internal/entity"
	"github.com/xavierca1/course-funnel/internal/infra/mail"
	"github.com/xavierca1/course-funnel/internal/infra/queue"
)

// MockLeadRepository
type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) Upsert(ctx context.Context, lead *entity.Lead) (bool, error) {
	args := m.Called(ctx, lead)
	return args.Bool(0), args.Error(1)
}

func (m *MockLeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) FindByEmail(ctx context.Context, email string) (*entity.Lead, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) ListRecent(ctx context.Context, limit int) ([]*entity.Lead, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) MarkEmailSent(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLeadRepository) UpdatePaymentStatus(ctx context.Context, id string, status entity.PaymentStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// MockQueue
type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Enqueue(ctx context.Context, job queue.NotificationJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// MockMailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Configured() bool {
	return m.Called().Bool(0)
}

func (m *MockMailer) SendConfirmation(ctx context.Context, email mail.ConfirmationEmail) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}
