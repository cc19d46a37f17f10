package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/xavierca1/course-funnel/internal/infra/mail"
	"github.com/xavierca1/course-funnel/internal/usecase"
	"go.uber.org/zap"
)

type SendConfirmationExecutor interface {
	Execute(ctx context.Context, input usecase.SendConfirmationInput) (*usecase.SendConfirmationOutput, error)
}

type EmailHandler struct {
	UseCase SendConfirmationExecutor
	Log     *zap.SugaredLogger
}

func NewEmailHandler(send SendConfirmationExecutor, log *zap.SugaredLogger) *EmailHandler {
	return &EmailHandler{UseCase: send, Log: log}
}

type sendEmailResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
	Details   string `json:"details,omitempty"`
}

// Send handles POST /send-email. The email goes out synchronously.
func (h *EmailHandler) Send(w http.ResponseWriter, r *http.Request) {
	var input usecase.SendConfirmationInput
	if !decodeJSON(w, r, &input) {
		return
	}

	out, err := h.UseCase.Execute(r.Context(), input)
	if err != nil {
		status := usecase.HTTPStatus(err)
		resp := sendEmailResponse{Success: false, Message: err.Error()}

		var te *usecase.TechnicalError
		if errors.As(err, &te) {
			h.Log.Errorw("send email failed", "code", te.Code, "error", err)
			resp.Message = te.Message
			if te.Code == usecase.CodeMailSendFailed && te.Cause != nil {
				resp.Error = te.Cause.Error()
				resp.Details = mail.ErrorCode(te.Cause)
			}
		}
		writeJSON(w, status, resp)
		return
	}

	writeJSON(w, http.StatusOK, sendEmailResponse{
		Success:   true,
		Message:   "Email sent successfully",
		MessageID: out.MessageID,
	})
}
