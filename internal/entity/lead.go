package entity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed:
		return true
	}
	return false
}

var (
	ErrLeadNotFound = errors.New("lead not found")
	ErrValidation   = errors.New("lead validation failed")
)

// Same pattern the registration form applies client side.
var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

// ValidationError reports schema violations found before a lead reaches the store.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("User validation failed: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Lead is a course registration. Email is the natural key.
type Lead struct {
	ID            string        `json:"id" bson:"_id"`
	Name          string        `json:"name" bson:"name"`
	Email         string        `json:"email" bson:"email"`
	Phone         string        `json:"phone" bson:"phone"`
	Course        string        `json:"course" bson:"course"`
	City          string        `json:"city,omitempty" bson:"city,omitempty"`
	College       string        `json:"college,omitempty" bson:"college,omitempty"`
	University    string        `json:"university,omitempty" bson:"university,omitempty"`
	PaymentStatus PaymentStatus `json:"paymentStatus" bson:"paymentStatus"`
	EmailSent     bool          `json:"emailSent" bson:"emailSent"`
	CreatedAt     time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt" bson:"updatedAt"`
}

// NewLead builds a pending lead with a fresh id. Fields are normalized but
// not validated.
func NewLead(name, email, phone, course string) *Lead {
	now := time.Now().UTC()
	l := &Lead{
		ID:            uuid.New().String(),
		Name:          name,
		Email:         email,
		Phone:         phone,
		Course:        course,
		PaymentStatus: PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	l.Normalize()
	return l
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (l *Lead) Normalize() {
	l.Name = strings.TrimSpace(l.Name)
	l.Email = NormalizeEmail(l.Email)
	l.Phone = strings.TrimSpace(l.Phone)
	l.Course = strings.TrimSpace(l.Course)
	l.City = strings.TrimSpace(l.City)
	l.College = strings.TrimSpace(l.College)
	l.University = strings.TrimSpace(l.University)
}

func (l *Lead) Validate() error {
	if l.Name == "" {
		return &ValidationError{"name", "Please provide a name"}
	}
	if l.Email == "" {
		return &ValidationError{"email", "Please provide an email"}
	}
	if !emailPattern.MatchString(l.Email) {
		return &ValidationError{"email", "Please provide a valid email address"}
	}
	if l.Phone == "" {
		return &ValidationError{"phone", "Please provide a phone number"}
	}
	if l.Course == "" {
		return &ValidationError{"course", "Please select a course"}
	}
	if !l.PaymentStatus.Valid() {
		return &ValidationError{"paymentStatus", fmt.Sprintf("`%s` is not a valid payment status", l.PaymentStatus)}
	}
	return nil
}

type LeadRepositoryInterface interface {
	// Upsert inserts the lead or, when its email already exists, overwrites
	// the submitted fields and resets the payment status. The lead is
	// updated in place with the stored state; created reports which branch ran.
	Upsert(ctx context.Context, lead *Lead) (created bool, err error)
	FindByID(ctx context.Context, id string) (*Lead, error)
	FindByEmail(ctx context.Context, email string) (*Lead, error)
	ListRecent(ctx context.Context, limit int) ([]*Lead, error)
	MarkEmailSent(ctx context.Context, id string) error
	UpdatePaymentStatus(ctx context.Context, id string, status PaymentStatus) error
}
