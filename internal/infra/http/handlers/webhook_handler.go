package handlers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/xavierca1/course-funnel/internal/usecase"
	"go.uber.org/zap"
)

const SignatureHeader = "X-Webhook-Signature"

type UpdatePaymentStatusExecutor interface {
	Execute(ctx context.Context, input usecase.UpdatePaymentStatusInput) (*usecase.UpdatePaymentStatusOutput, error)
}

type WebhookHandler struct {
	UseCase UpdatePaymentStatusExecutor
	Secret  string
	Log     *zap.SugaredLogger
}

func NewWebhookHandler(uc UpdatePaymentStatusExecutor, secret string, log *zap.SugaredLogger) *WebhookHandler {
	return &WebhookHandler{UseCase: uc, Secret: secret, Log: log}
}

// Sign returns hex(sha256(body + secret)), the value expected in SignatureHeader.
func Sign(body []byte, secret string) string {
	sum := sha256.Sum256(append(append([]byte{}, body...), secret...))
	return hex.EncodeToString(sum[:])
}

func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodyLen))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unreadable body")
		return
	}

	if h.Secret != "" {
		got := r.Header.Get(SignatureHeader)
		want := Sign(body, h.Secret)
		if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			h.Log.Warnw("webhook signature mismatch", "remote", r.RemoteAddr)
			writeError(w, http.StatusUnauthorized, "Invalid signature")
			return
		}
	}

	var input usecase.UpdatePaymentStatusInput
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	out, err := h.UseCase.Execute(r.Context(), input)
	if err != nil {
		status := usecase.HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			h.Log.Errorw("payment webhook failed", "event", input.Event, "error", err)
			writeError(w, status, msgInternalError)
			return
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: out})
}
