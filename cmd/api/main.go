package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadbridge/internal/accounts"
	"leadbridge/internal/activity"
	"leadbridge/internal/auth"
	"leadbridge/internal/email"
	"leadbridge/internal/eventexport"
	"leadbridge/internal/events"
	apphttp "leadbridge/internal/http"
	"leadbridge/internal/http/router"
	"leadbridge/internal/leads"
	"leadbridge/internal/notification"
	"leadbridge/internal/notification/outbox"
	"leadbridge/internal/stats"
	"leadbridge/migrations"
	"leadbridge/platform/config"
	"leadbridge/platform/db"
	"leadbridge/platform/logger"
	"leadbridge/platform/metrics"
	"leadbridge/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	var m *metrics.Metrics
	if cfg.IsMetricsEnabled() {
		m = metrics.New()
	}

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	accountsModule := accounts.NewModule(pool, eventBus, val, log)
	authModule := auth.NewModule(pool, accountsModule.Repository(), cfg, eventBus, val, log)
	leadsModule := leads.NewModule(pool, eventBus, accountsModule.Service(), accountsModule.Repository(), val, m, log)
	statsModule := stats.NewModule(pool, accountsModule.Service())
	activityModule := activity.NewModule(pool, log)
	activityModule.RegisterHandlers(eventBus)

	// With a job queue, e-mails go through the outbox and the scheduler
	// delivers them; without one they are sent in-process.
	notificationModule := notification.New(leadsModule.Repository(), accountsModule.Service(), sender, cfg, m, log)
	if cfg.IsSchedulerEnabled() {
		notificationModule.WithOutbox(outbox.New(pool))
		log.Info("notifications deferred to the outbox")
	} else {
		log.Warn("REDIS_URL not configured; notifications are sent in-process")
	}
	notificationModule.RegisterHandlers(eventBus)

	exporter := eventexport.New(cfg, m, log)
	exporter.RegisterHandlers(eventBus)
	defer func() { _ = exporter.Close() }()

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Metrics:  m,
		Modules: []apphttp.Module{
			authModule,
			accountsModule,
			leadsModule,
			statsModule,
			activityModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		panic("server error: " + err.Error())
	}
	eventBus.Wait()
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
