package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"
	"github.com/xavierca1/course-funnel/internal/config"
	"github.com/xavierca1/course-funnel/internal/entity"
	"github.com/xavierca1/course-funnel/internal/infra/database"
	"github.com/xavierca1/course-funnel/internal/infra/mail"
	"github.com/xavierca1/course-funnel/internal/infra/mongodb"
	"github.com/xavierca1/course-funnel/internal/infra/queue"
	"github.com/xavierca1/course-funnel/internal/infra/telemetry"
	"github.com/xavierca1/course-funnel/internal/logger"
	"github.com/xavierca1/course-funnel/internal/usecase"
	"go.uber.org/zap"
)

// app holds the process-wide dependencies shared by every command.
type app struct {
	cfg    *config.Config
	log    *zap.SugaredLogger
	tracer *telemetry.Provider

	repo      entity.LeadRepositoryInterface
	pingStore func(ctx context.Context) error

	closers []func(ctx context.Context)
}

func newApp(ctx context.Context, v *viper.Viper) (*app, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.OTelServiceName, cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	tracer, err := telemetry.NewProvider(ctx, telemetry.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.OTelServiceName,
		Environment: cfg.Env,
	})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, tracer: tracer}
	if tracer.Enabled() {
		log.Infow("tracing enabled", "endpoint", cfg.OTLPEndpoint)
	}
	a.onClose(func(ctx context.Context) {
		if err := tracer.Shutdown(ctx); err != nil {
			log.Warnw("tracer shutdown", "error", err)
		}
	})
	return a, nil
}

func (a *app) onClose(fn func(ctx context.Context)) {
	a.closers = append(a.closers, fn)
}

// close runs the registered closers newest first.
func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i](ctx)
	}
	_ = a.log.Sync()
}

func (a *app) openStore(ctx context.Context, migrate bool) error {
	switch a.cfg.StoreDriver {
	case config.StoreDriverMongo:
		client, err := mongodb.Connect(ctx, a.cfg.MongoURI)
		if err != nil {
			return err
		}
		a.onClose(func(ctx context.Context) { _ = client.Disconnect(ctx) })

		repo, err := mongodb.NewLeadRepository(ctx, client.Database(a.cfg.MongoDatabase))
		if err != nil {
			return err
		}
		a.repo = repo
		a.pingStore = func(ctx context.Context) error { return client.Ping(ctx, nil) }
		a.log.Infow("lead store ready", "driver", "mongo", "database", a.cfg.MongoDatabase)

	default:
		db, err := database.NewDBConnection(database.Config{
			URL:          a.cfg.DatabaseURL,
			MaxOpenConns: a.cfg.DBMaxOpenConns,
			MaxIdleConns: a.cfg.DBMaxIdleConns,
		})
		if err != nil {
			return err
		}
		a.onClose(func(context.Context) { _ = db.Close() })

		if migrate {
			if err := database.Migrate(db); err != nil {
				return err
			}
			a.log.Infow("migrations applied")
		}
		a.repo = database.NewLeadRepository(db)
		a.pingStore = db.PingContext
		a.log.Infow("lead store ready", "driver", "postgres")
	}
	return nil
}

func (a *app) newMailer() (*mail.EmailSender, error) {
	sender, err := mail.NewEmailSender(mail.Config{
		Host:          a.cfg.SMTPHost,
		Port:          a.cfg.SMTPPort,
		Secure:        a.cfg.SMTPSecure,
		TLSSkipVerify: a.cfg.SMTPTLSSkipVerify,
		User:          a.cfg.EmailUser,
		Password:      a.cfg.EmailPass,
		FromName:      a.cfg.EmailFromName,
		PaymentLink:   a.cfg.PaymentLink,
	})
	if err != nil {
		return nil, err
	}
	if !a.cfg.MailConfigured() {
		a.log.Warnw("EMAIL_USER or EMAIL_PASS missing, confirmation emails will fail")
	}
	return sender, nil
}

func (a *app) redisConfig() queue.RedisConfig {
	return queue.RedisConfig{Addr: a.cfg.RedisAddr, Password: a.cfg.RedisPassword, DB: a.cfg.RedisDB}
}

// queueRuntime is the publishing side of the queue plus whatever consumer
// runs inside this process.
type queueRuntime struct {
	publisher queue.Publisher
	ping      func(ctx context.Context) error
	stop      func(ctx context.Context)
}

// startQueue wires the configured driver. With consume set, jobs are also
// processed in this process.
func (a *app) startQueue(ctx context.Context, processor *usecase.SendConfirmationUseCase, consume bool) (*queueRuntime, error) {
	switch a.cfg.QueueDriver {
	case config.QueueDriverRabbitMQ:
		rmq, err := queue.NewRabbitMQ(a.cfg.RabbitMQURL)
		if err != nil {
			return nil, err
		}
		rt := &queueRuntime{
			publisher: queue.NewProducer(rmq.Ch),
			ping: func(context.Context) error {
				if rmq.Conn.IsClosed() {
					return fmt.Errorf("connection closed")
				}
				return nil
			},
		}

		consumeCtx, cancel := context.WithCancel(ctx)
		if consume {
			ch, err := rmq.Conn.Channel()
			if err != nil {
				cancel()
				rmq.Close()
				return nil, fmt.Errorf("opening consumer channel: %w", err)
			}
			worker := queue.NewWorker(ch, processor, a.log)
			go func() {
				if err := worker.Start(consumeCtx, queue.QueueName); err != nil {
					a.log.Errorw("rabbitmq worker stopped", "error", err)
				}
			}()
		}
		rt.stop = func(context.Context) {
			cancel()
			rmq.Close()
		}
		a.log.Infow("notification queue ready", "driver", "rabbitmq", "consume", consume)
		return rt, nil

	case config.QueueDriverAsynq:
		producer := queue.NewAsynqProducer(a.redisConfig())
		rt := &queueRuntime{publisher: producer, ping: producer.Ping}

		var worker *queue.AsynqWorker
		if consume {
			worker = queue.NewAsynqWorker(a.redisConfig(), a.cfg.QueueWorkers, processor, a.log)
			if err := worker.Start(); err != nil {
				producer.Close()
				return nil, fmt.Errorf("starting asynq worker: %w", err)
			}
		}
		rt.stop = func(context.Context) {
			if worker != nil {
				worker.Shutdown()
			}
			producer.Close()
		}
		a.log.Infow("notification queue ready", "driver", "asynq", "consume", consume)
		return rt, nil

	default:
		mq := queue.NewMemoryQueue(a.cfg.QueueBuffer, processor, a.log)
		mq.Start(context.WithoutCancel(ctx), a.cfg.QueueWorkers)
		return &queueRuntime{
			publisher: mq,
			ping:      func(context.Context) error { return nil },
			stop: func(ctx context.Context) {
				if err := mq.Close(ctx); err != nil {
					a.log.Warnw("notification queue not drained", "error", err)
				}
			},
		}, nil
	}
}

var (
	_ entity.LeadRepositoryInterface = (*database.LeadRepository)(nil)
	_ entity.LeadRepositoryInterface = (*mongodb.LeadRepository)(nil)
	_ queue.Publisher                = (*queue.MemoryQueue)(nil)
	_ queue.Publisher                = (*queue.RabbitMQProducer)(nil)
	_ queue.Publisher                = (*queue.AsynqProducer)(nil)
	_ queue.Processor                = (*usecase.SendConfirmationUseCase)(nil)
)
