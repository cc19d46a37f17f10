package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/xavierca1/course-funnel/internal/infra/http/handlers"
	"github.com/xavierca1/course-funnel/internal/infra/http/middleware"
	"github.com/xavierca1/course-funnel/internal/usecase"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), v)
		},
	}
	cmd.Flags().String("port", "", "HTTP listen port")
	cmd.Flags().Bool("no-worker", false, "only publish notification jobs, leave sending to the worker command")
	cmd.Flags().Bool("auto-migrate", true, "apply Postgres migrations on start")
	_ = v.BindPFlag("APP_PORT", cmd.Flags().Lookup("port"))
	_ = v.BindPFlag("NO_WORKER", cmd.Flags().Lookup("no-worker"))
	_ = v.BindPFlag("AUTO_MIGRATE", cmd.Flags().Lookup("auto-migrate"))
	return cmd
}

func runServe(parent context.Context, v *viper.Viper) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, v)
	if err != nil {
		return err
	}
	shutdownCtx := func() (context.Context, context.CancelFunc) {
		return context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	}
	defer func() {
		c, cancel := shutdownCtx()
		defer cancel()
		a.close(c)
	}()

	if err := a.openStore(ctx, a.cfg.AutoMigrate); err != nil {
		return err
	}

	mailer, err := a.newMailer()
	if err != nil {
		return err
	}

	sendUC := usecase.NewSendConfirmationUseCase(mailer, a.repo, a.log)
	q, err := a.startQueue(ctx, sendUC, !v.GetBool("NO_WORKER"))
	if err != nil {
		return err
	}
	a.onClose(q.stop)

	router := newRouter(routerDeps{
		Register: handlers.NewRegisterHandler(
			usecase.NewRegisterLeadUseCase(a.repo, q.publisher, a.log),
			usecase.NewListLeadsUseCase(a.repo),
			a.log,
		),
		Email:   handlers.NewEmailHandler(sendUC, a.log),
		Webhook: handlers.NewWebhookHandler(usecase.NewUpdatePaymentStatusUseCase(a.repo, a.log), a.cfg.WebhookSecret, a.log),
		Health: handlers.NewHealthHandler(version, map[string]handlers.Check{
			"database": a.pingStore,
			"queue":    q.ping,
		}),
		RateLimiter:    middleware.NewRateLimiter(a.cfg.RateLimitPerMin, a.log),
		AllowedOrigins: a.cfg.AllowedOrigins(),
		Log:            a.log,
	})

	if a.cfg.WebhookSecret == "" {
		a.log.Warnw("WEBHOOK_SECRET not set, payment webhooks are accepted unsigned")
	}

	srv := &http.Server{
		Addr:              ":" + a.cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infow("server listening", "addr", srv.Addr, "env", a.cfg.Env, "store", a.cfg.StoreDriver, "queue", a.cfg.QueueDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		a.log.Infow("shutting down")
	}

	c, cancel := shutdownCtx()
	defer cancel()
	return srv.Shutdown(c)
}
