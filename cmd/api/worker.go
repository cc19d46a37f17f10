package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/xavierca1/course-funnel/internal/config"
	"github.com/xavierca1/course-funnel/internal/usecase"
)

func newWorkerCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Send confirmation emails from the RabbitMQ or asynq queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorker(cmd.Context(), v)
		},
	}
}

func runWorker(parent context.Context, v *viper.Viper) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, v)
	if err != nil {
		return err
	}
	defer func() {
		c, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		a.close(c)
	}()

	if a.cfg.QueueDriver == config.QueueDriverMemory {
		return errors.New("the memory queue runs inside serve; set QUEUE_DRIVER to rabbitmq or asynq")
	}

	if err := a.openStore(ctx, false); err != nil {
		return err
	}
	mailer, err := a.newMailer()
	if err != nil {
		return err
	}

	q, err := a.startQueue(ctx, usecase.NewSendConfirmationUseCase(mailer, a.repo, a.log), true)
	if err != nil {
		return err
	}
	a.onClose(q.stop)

	a.log.Infow("worker running", "queue", a.cfg.QueueDriver, "concurrency", a.cfg.QueueWorkers)
	<-ctx.Done()
	a.log.Infow("worker stopping")
	return nil
}
