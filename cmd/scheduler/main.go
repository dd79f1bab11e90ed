package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadbridge/internal/accounts"
	"leadbridge/internal/email"
	"leadbridge/internal/eventexport"
	"leadbridge/internal/events"
	"leadbridge/internal/leads"
	"leadbridge/internal/notification"
	"leadbridge/internal/notification/outbox"
	"leadbridge/internal/scheduler"
	"leadbridge/platform/config"
	"leadbridge/platform/db"
	"leadbridge/platform/logger"
	"leadbridge/platform/metrics"
	"leadbridge/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)
	if !cfg.IsSchedulerEnabled() {
		panic("REDIS_URL is required for the scheduler")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	var m *metrics.Metrics
	if cfg.IsMetricsEnabled() {
		m = metrics.New()
	}

	eventBus := events.NewInMemoryBus(log)

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	// Worker-side wiring: no HTTP handlers are mounted.
	accountsModule := accounts.NewModule(pool, eventBus, validator.New(), log)
	leadsModule := leads.NewModule(pool, eventBus, accountsModule.Service(), accountsModule.Repository(), validator.New(), m, log)

	outboxRepo := outbox.New(pool)
	notificationModule := notification.New(leadsModule.Repository(), accountsModule.Service(), sender, cfg, m, log).
		WithOutbox(outboxRepo)
	notificationModule.RegisterHandlers(eventBus)

	exporter := eventexport.New(cfg, m, log)
	exporter.RegisterHandlers(eventBus)
	defer func() { _ = exporter.Close() }()

	dispatcher, err := scheduler.NewNotificationOutboxDispatcher(cfg, outboxRepo, m, log)
	if err != nil {
		log.Error("failed to initialize outbox dispatcher", "error", err)
		panic("failed to initialize outbox dispatcher: " + err.Error())
	}
	defer func() { _ = dispatcher.Close() }()
	go dispatcher.Run(ctx)

	cron, err := scheduler.NewCallbackCron(cfg, log)
	if err != nil {
		log.Error("failed to initialize callback cron", "error", err)
		panic("failed to initialize callback cron: " + err.Error())
	}
	go cron.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, eventBus, leadsModule.LifecycleService(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
	eventBus.Wait()
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
