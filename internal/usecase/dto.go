package usecase

import "github.com/xavierca1/course-funnel/internal/entity"

type RegisterLeadInput struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required"`
	Phone      string `json:"phone" validate:"required"`
	Course     string `json:"course" validate:"required"`
	City       string `json:"city,omitempty"`
	College    string `json:"college,omitempty"`
	University string `json:"university,omitempty"`
}

type RegisterLeadOutput struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Created bool   `json:"-"`
	Message string `json:"-"`
}

type ListLeadsOutput struct {
	Count int            `json:"count"`
	Leads []*entity.Lead `json:"data"`
}

type SendConfirmationInput struct {
	LeadID string `json:"leadId,omitempty"`
	Name   string `json:"name" validate:"required"`
	Email  string `json:"email" validate:"required"`
	Course string `json:"course"`
}

type SendConfirmationOutput struct {
	MessageID string `json:"messageId"`
}

type UpdatePaymentStatusInput struct {
	Event  string `json:"event"`
	Email  string `json:"email"`
	LeadID string `json:"leadId"`
}

type UpdatePaymentStatusOutput struct {
	LeadID  string               `json:"leadId,omitempty"`
	Status  entity.PaymentStatus `json:"paymentStatus,omitempty"`
	Ignored bool                 `json:"ignored"`
}
