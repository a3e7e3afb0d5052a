package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	domrepo "PricePulse/internal/domain/repository"
	"PricePulse/internal/middleware"
	"PricePulse/internal/usecase"
	pkgch "PricePulse/pkg/clickhouse"
	"PricePulse/pkg/config"
	xhttp "PricePulse/pkg/http"
	pkgkafka "PricePulse/pkg/kafka"
	applogger "PricePulse/pkg/logger"
	"PricePulse/pkg/queue"
)

// App encapsulates the entire application lifecycle: HTTP API, sales
// consumer, job queue, and the repricing scheduler.
type App struct {
	cfg         *config.Config
	logger      *applogger.Logger
	engine      *usecase.PricingEngine
	consumer    *pkgkafka.Consumer
	salesH      pkgkafka.MessageHandler
	pipeline    *middleware.IngestPipeline
	jobQueue    *queue.RedisQueue
	repriceJob  *usecase.RepriceJob
	publisher   domrepo.DecisionPublisher
	chClient    *pkgch.Client
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	engine *usecase.PricingEngine,
	handler xhttp.Handler,
	consumer *pkgkafka.Consumer,
	salesH pkgkafka.MessageHandler,
	pipeline *middleware.IngestPipeline,
	jobQueue *queue.RedisQueue,
	repriceJob *usecase.RepriceJob,
	publisher domrepo.DecisionPublisher,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:         cfg,
		logger:      logger,
		engine:      engine,
		httpHandler: handler,
		consumer:    consumer,
		salesH:      salesH,
		pipeline:    pipeline,
		jobQueue:    jobQueue,
		repriceJob:  repriceJob,
		publisher:   publisher,
		chClient:    chClient,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := a.logger

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	if a.pipeline != nil {
		a.pipeline.Start(ctx)
	}

	// Sales ingestion from Kafka
	if a.consumer != nil && a.salesH != nil {
		a.consumer.RegisterHandler(a.salesH)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.salesH.Topic()))
	}

	// Job queue for scheduled and on-demand repricing
	if a.jobQueue != nil {
		if a.repriceJob != nil {
			a.jobQueue.RegisterJob(a.repriceJob)
		}
		if err := a.jobQueue.Start(); err != nil {
			l.Error("job queue start error", applogger.Error(err))
		}
	}

	if a.cfg.Pricing.ScheduleInterval > 0 {
		go a.runScheduler(ctx)
		l.Info("reprice scheduler started",
			applogger.Duration("interval", a.cfg.Pricing.ScheduleInterval))
	}

	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}
	l.Info("application started",
		applogger.String("environment", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// runScheduler periodically triggers a repricing cycle. When a job queue is
// configured the cycle goes through it so API-triggered and timed cycles
// share one worker; otherwise the engine runs inline.
func (a *App) runScheduler(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Pricing.ScheduleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if a.jobQueue != nil {
				err := a.jobQueue.PublishMessage(ctx, usecase.RepriceJobType, usecase.RepricePayload{
					Requested: "schedule",
				})
				if err != nil {
					a.logger.Warn("reprice enqueue failed", applogger.Error(err))
				}
				continue
			}
			if _, err := a.engine.RunCycleFromStores(ctx, false); err != nil {
				a.logger.Error("scheduled cycle failed", applogger.Error(err))
			}
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	l := a.logger
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.jobQueue != nil {
		if err := a.jobQueue.Stop(shutdownCtx); err != nil {
			l.Warn("job queue stop error", applogger.Error(err))
		}
	}

	if a.pipeline != nil {
		a.pipeline.Stop()
	}

	// flush aggregated error logs while the producer is still open
	l.RemoveCollector()

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			l.Warn("decision publisher close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
