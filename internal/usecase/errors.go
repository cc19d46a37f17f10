package usecase

import (
	"errors"
	"net/http"
)

// DomainError is a client fault: the request cannot succeed as sent.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// TechnicalError is a server-side fault. Cause is kept for logs and for the
// send-email details field; Message is what clients see.
type TechnicalError struct {
	Code    string
	Message string
	Cause   error
}

func (e *TechnicalError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Cause
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

const (
	CodeMissingFields     = "MISSING_FIELDS"
	CodeValidation        = "VALIDATION_ERROR"
	CodeDatabase          = "DATABASE_ERROR"
	CodeLeadNotFound      = "LEAD_NOT_FOUND"
	CodeInvalidEvent      = "INVALID_EVENT"
	CodeMailNotConfigured = "MAIL_NOT_CONFIGURED"
	CodeMailSendFailed    = "MAIL_SEND_FAILED"
)

// HTTPStatus maps a use case error onto a response status.
func HTTPStatus(err error) int {
	var de *DomainError
	if errors.As(err, &de) {
		if de.Code == CodeLeadNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
