package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xavierca1/course-funnel/internal/infra/http/handlers"
	"github.com/xavierca1/course-funnel/internal/infra/http/middleware"
	"go.uber.org/zap"
)

type routerDeps struct {
	Register       *handlers.RegisterHandler
	Email          *handlers.EmailHandler
	Webhook        *handlers.WebhookHandler
	Health         *handlers.HealthHandler
	RateLimiter    *middleware.RateLimiter
	AllowedOrigins []string
	Log            *zap.SugaredLogger
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(d.Log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Tracing)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", handlers.SignatureHeader},
		MaxAge:         300,
	}))

	registration := func(r chi.Router) {
		r.With(d.RateLimiter.Handler).Post("/register", d.Register.Create)
		r.Get("/register", d.Register.Index)
		r.Post("/send-email", d.Email.Send)
	}
	registration(r)
	r.Route("/api", registration)

	r.Post("/webhook/payment", d.Webhook.Handle)
	r.Get("/health", d.Health.Handle)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
