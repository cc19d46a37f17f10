package handlers_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xavierca1/course-funnel/internal/entity"
	"github.com/xavierca1/course-funnel/internal/infra/http/handlers"
	"github.com/xavierca1/course-funnel/internal/infra/queue"
	"github.com/xavierca1/course-funnel/internal/usecase"
	"go.uber.org/zap"
)

// memoryRepo is a map-backed lead store with the same upsert semantics as
// the real stores.
type memoryRepo struct {
	mu      sync.Mutex
	byEmail map[string]*entity.Lead
	calls   int
	failing error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byEmail: map[string]*entity.Lead{}}
}

func (r *memoryRepo) Upsert(_ context.Context, lead *entity.Lead) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.failing != nil {
		return false, r.failing
	}
	if existing, ok := r.byEmail[lead.Email]; ok {
		existing.Name, existing.Phone, existing.Course = lead.Name, lead.Phone, lead.Course
		existing.PaymentStatus = entity.PaymentPending
		existing.UpdatedAt = time.Now()
		*lead = *existing
		return false, nil
	}
	stored := *lead
	r.byEmail[lead.Email] = &stored
	return true, nil
}

func (r *memoryRepo) FindByID(_ context.Context, id string) (*entity.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.byEmail {
		if l.ID == id {
			c := *l
			return &c, nil
		}
	}
	return nil, entity.ErrLeadNotFound
}

func (r *memoryRepo) FindByEmail(_ context.Context, email string) (*entity.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.byEmail[entity.NormalizeEmail(email)]; ok {
		c := *l
		return &c, nil
	}
	return nil, entity.ErrLeadNotFound
}

func (r *memoryRepo) ListRecent(_ context.Context, limit int) ([]*entity.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.Lead, 0, len(r.byEmail))
	for _, l := range r.byEmail {
		c := *l
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryRepo) MarkEmailSent(_ context.Context, id string) error {
	return r.set(id, func(l *entity.Lead) { l.EmailSent = true })
}

func (r *memoryRepo) UpdatePaymentStatus(_ context.Context, id string, status entity.PaymentStatus) error {
	return r.set(id, func(l *entity.Lead) { l.PaymentStatus = status })
}

func (r *memoryRepo) set(id string, fn func(*entity.Lead)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.byEmail {
		if l.ID == id {
			fn(l)
			return nil
		}
	}
	return entity.ErrLeadNotFound
}

type recordingQueue struct {
	mu   sync.Mutex
	jobs []queue.NotificationJob
	err  error
}

func (q *recordingQueue) Enqueue(_ context.Context, job queue.NotificationJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return q.err
}

func newRegisterHandler(repo *memoryRepo, q *recordingQueue) *handlers.RegisterHandler {
	log := zap.NewNop().Sugar()
	return handlers.NewRegisterHandler(
		usecase.NewRegisterLeadUseCase(repo, q, log),
		usecase.NewListLeadsUseCase(repo),
		log,
	)
}

type registerResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"data"`
}

func postRegister(t *testing.T, h *handlers.RegisterHandler, body string) (*httptest.ResponseRecorder, registerResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Create(w, req)

	var resp registerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestRegister_AshaCreatedThenUpdated(t *testing.T) {
	repo := newMemoryRepo()
	q := &recordingQueue{}
	h := newRegisterHandler(repo, q)

	w, first := postRegister(t, h, `{"name":"Asha","email":"ASHA@Test.com","phone":"9999999999","course":"online-only"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, first.Success)
	assert.Equal(t, "Registration successful! Check your email for program access link.", first.Message)
	assert.Equal(t, "Asha", first.Data.Name)
	assert.Equal(t, "asha@test.com", first.Data.Email)
	assert.NotEmpty(t, first.Data.ID)

	stored, err := repo.FindByEmail(context.Background(), "asha@test.com")
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentPending, stored.PaymentStatus)

	w, second := postRegister(t, h, `{"name":"Asha","email":"asha@test.com","phone":"9999999999","course":"bootcamp-only"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Registration updated! Check your email for program details.", second.Message)
	assert.Equal(t, first.Data.ID, second.Data.ID)

	stored, err = repo.FindByEmail(context.Background(), "asha@test.com")
	require.NoError(t, err)
	assert.Equal(t, "bootcamp-only", stored.Course)
	assert.Len(t, repo.byEmail, 1)
	assert.Len(t, q.jobs, 2)
}

func TestRegister_MissingEmailIs400WithoutStoreCall(t *testing.T) {
	repo := newMemoryRepo()
	q := &recordingQueue{}
	h := newRegisterHandler(repo, q)

	w, resp := postRegister(t, h, `{"name":"Asha","phone":"9999999999","course":"online-only"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "All fields are required", resp.Message)
	assert.Zero(t, repo.calls)
	assert.Empty(t, q.jobs)
}

func TestRegister_InvalidEmailIs400(t *testing.T) {
	repo := newMemoryRepo()
	h := newRegisterHandler(repo, &recordingQueue{})

	w, resp := postRegister(t, h, `{"name":"Asha","email":"not-an-email","phone":"9999999999","course":"online-only"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "User validation failed: email: Please provide a valid email address", resp.Message)
	assert.Zero(t, repo.calls)
}

func TestRegister_InvalidJSON(t *testing.T) {
	h := newRegisterHandler(newMemoryRepo(), &recordingQueue{})

	w, resp := postRegister(t, h, `{"name":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid JSON", resp.Message)
}

func TestRegister_StoreOutageIsGeneric500(t *testing.T) {
	repo := newMemoryRepo()
	repo.failing = errors.New("dial tcp 10.0.0.5:5432: connection refused")
	h := newRegisterHandler(repo, &recordingQueue{})

	w, resp := postRegister(t, h, `{"name":"Asha","email":"asha@test.com","phone":"9999999999","course":"online-only"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", resp.Message)
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
}

func TestRegister_QueueFailureStillSucceeds(t *testing.T) {
	repo := newMemoryRepo()
	h := newRegisterHandler(repo, &recordingQueue{err: queue.ErrQueueFull})

	w, resp := postRegister(t, h, `{"name":"Asha","email":"asha@test.com","phone":"9999999999","course":"online-only"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
}

func TestRegister_ListNewestFirst(t *testing.T) {
	repo := newMemoryRepo()
	h := newRegisterHandler(repo, &recordingQueue{})

	postRegister(t, h, `{"name":"Old","email":"old@test.com","phone":"1","course":"online-only"}`)
	repo.byEmail["old@test.com"].CreatedAt = time.Now().Add(-time.Hour)
	postRegister(t, h, `{"name":"New","email":"new@test.com","phone":"2","course":"online-only"}`)

	w := httptest.NewRecorder()
	h.Index(w, httptest.NewRequest(http.MethodGet, "/register", nil))

	var resp struct {
		Success bool           `json:"success"`
		Count   int            `json:"count"`
		Data    []*entity.Lead `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "new@test.com", resp.Data[0].Email)
	assert.Equal(t, "old@test.com", resp.Data[1].Email)
	assert.NotContains(t, w.Body.String(), "__v")
}

type fakeSender struct {
	configured bool
	err        error
}

func (f *fakeSender) Execute(_ context.Context, in usecase.SendConfirmationInput) (*usecase.SendConfirmationOutput, error) {
	if in.Name == "" || in.Email == "" {
		return nil, &usecase.DomainError{Code: usecase.CodeMissingFields, Message: usecase.MsgNameEmailRequired}
	}
	if !f.configured {
		return nil, &usecase.TechnicalError{Code: usecase.CodeMailNotConfigured, Message: usecase.MsgMailNotConfigured}
	}
	if f.err != nil {
		return nil, &usecase.TechnicalError{Code: usecase.CodeMailSendFailed, Message: usecase.MsgSendEmailFailed, Cause: f.err}
	}
	return &usecase.SendConfirmationOutput{MessageID: "<m1@hiprotech.in>"}, nil
}

func postSendEmail(h *handlers.EmailHandler, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.Send(w, httptest.NewRequest(http.MethodPost, "/send-email", strings.NewReader(body)))
	return w
}

func TestSendEmail(t *testing.T) {
	body := `{"name":"Asha","email":"asha@test.com","course":"online-only"}`

	t.Run("sent", func(t *testing.T) {
		w := postSendEmail(handlers.NewEmailHandler(&fakeSender{configured: true}, zap.NewNop().Sugar()), body)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true,"message":"Email sent successfully","messageId":"<m1@hiprotech.in>"}`, w.Body.String())
	})

	t.Run("missing fields", func(t *testing.T) {
		w := postSendEmail(handlers.NewEmailHandler(&fakeSender{configured: true}, zap.NewNop().Sugar()), `{"name":"Asha"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"success":false,"message":"Name and email are required"}`, w.Body.String())
	})

	t.Run("not configured", func(t *testing.T) {
		w := postSendEmail(handlers.NewEmailHandler(&fakeSender{}, zap.NewNop().Sugar()), body)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"success":false,"message":"Email service not configured"}`, w.Body.String())
	})

	t.Run("smtp rejection", func(t *testing.T) {
		smtpErr := fmt.Errorf("sending SMTP email: %w", &textproto.Error{Code: 535, Msg: "bad credentials"})
		w := postSendEmail(handlers.NewEmailHandler(&fakeSender{configured: true, err: smtpErr}, zap.NewNop().Sugar()), body)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"success":false,"message":"Failed to send email","error":"sending SMTP email: 535 bad credentials","details":"535"}`, w.Body.String())
	})

	t.Run("unclassified failure", func(t *testing.T) {
		w := postSendEmail(handlers.NewEmailHandler(&fakeSender{configured: true, err: errors.New("boom")}, zap.NewNop().Sugar()), body)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"success":false,"message":"Failed to send email","error":"boom","details":"Unknown error"}`, w.Body.String())
	})
}

func TestWebhook(t *testing.T) {
	const secret = "whsec"
	log := zap.NewNop().Sugar()

	setup := func() (*memoryRepo, *handlers.WebhookHandler, string) {
		repo := newMemoryRepo()
		lead := entity.NewLead("Asha", "asha@test.com", "9999999999", "online-only")
		repo.byEmail[lead.Email] = lead
		return repo, handlers.NewWebhookHandler(usecase.NewUpdatePaymentStatusUseCase(repo, log), secret, log), lead.ID
	}

	send := func(h *handlers.WebhookHandler, body []byte, signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhook/payment", bytes.NewReader(body))
		req.Header.Set(handlers.SignatureHeader, signature)
		w := httptest.NewRecorder()
		h.Handle(w, req)
		return w
	}

	t.Run("valid signature completes payment", func(t *testing.T) {
		repo, h, _ := setup()
		body := []byte(`{"event":"PAYMENT_RECEIVED","email":"asha@test.com"}`)

		w := send(h, body, handlers.Sign(body, secret))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, entity.PaymentCompleted, repo.byEmail["asha@test.com"].PaymentStatus)
	})

	t.Run("bad signature", func(t *testing.T) {
		repo, h, _ := setup()
		body := []byte(`{"event":"PAYMENT_RECEIVED","email":"asha@test.com"}`)

		w := send(h, body, "deadbeef")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, entity.PaymentPending, repo.byEmail["asha@test.com"].PaymentStatus)
	})

	t.Run("failed payment by lead id", func(t *testing.T) {
		repo, h, id := setup()
		body := []byte(`{"event":"PAYMENT_REFUSED","leadId":"` + id + `"}`)

		w := send(h, body, handlers.Sign(body, secret))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, entity.PaymentFailed, repo.byEmail["asha@test.com"].PaymentStatus)
	})

	t.Run("unknown lead", func(t *testing.T) {
		_, h, _ := setup()
		body := []byte(`{"event":"PAYMENT_RECEIVED","email":"ghost@test.com"}`)

		w := send(h, body, handlers.Sign(body, secret))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("other events ignored", func(t *testing.T) {
		_, h, _ := setup()
		body := []byte(`{"event":"PAYMENT_CREATED","email":"asha@test.com"}`)

		w := send(h, body, handlers.Sign(body, secret))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"ignored":true`)
	})
}

func TestSignIsHexSHA256OfBodyThenSecret(t *testing.T) {
	sum := sha256.Sum256([]byte(`{"event":"x"}` + "abc"))

	assert.Equal(t, hex.EncodeToString(sum[:]), handlers.Sign([]byte(`{"event":"x"}`), "abc"))
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		h := handlers.NewHealthHandler("1.0.0", map[string]handlers.Check{
			"database": func(context.Context) error { return nil },
			"queue":    nil,
		})
		w := httptest.NewRecorder()
		h.Handle(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		var resp handlers.HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "not configured", resp.Dependencies["queue"])
	})

	t.Run("degraded", func(t *testing.T) {
		h := handlers.NewHealthHandler("1.0.0", map[string]handlers.Check{
			"database": func(context.Context) error { return errors.New("timeout") },
		})
		w := httptest.NewRecorder()
		h.Handle(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "unhealthy: timeout")
	})
}
