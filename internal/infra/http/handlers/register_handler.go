package handlers

import (
	"context"
	"net/http"

	"github.com/xavierca1/course-funnel/internal/usecase"
	"go.uber.org/zap"
)

type RegisterLeadExecutor interface {
	Execute(ctx context.Context, input usecase.RegisterLeadInput) (*usecase.RegisterLeadOutput, error)
}

type ListLeadsExecutor interface {
	Execute(ctx context.Context) (*usecase.ListLeadsOutput, error)
}

type RegisterHandler struct {
	Register RegisterLeadExecutor
	List     ListLeadsExecutor
	Log      *zap.SugaredLogger
}

func NewRegisterHandler(register RegisterLeadExecutor, list ListLeadsExecutor, log *zap.SugaredLogger) *RegisterHandler {
	return &RegisterHandler{Register: register, List: list, Log: log}
}

type listResponse struct {
	Success bool `json:"success"`
	*usecase.ListLeadsOutput
}

// Create handles POST /register.
func (h *RegisterHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input usecase.RegisterLeadInput
	if !decodeJSON(w, r, &input) {
		return
	}

	out, err := h.Register.Execute(r.Context(), input)
	if err != nil {
		status := usecase.HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			h.Log.Errorw("registration failed", "error", err)
			writeError(w, status, msgInternalError)
			return
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Message: out.Message,
		Data:    out,
	})
}

// Index handles GET /register.
func (h *RegisterHandler) Index(w http.ResponseWriter, r *http.Request) {
	out, err := h.List.Execute(r.Context())
	if err != nil {
		h.Log.Errorw("listing registrations failed", "error", err)
		writeError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Success: true, ListLeadsOutput: out})
}
