// Command process-callbacks returns leads whose scheduled callback is due to
// NEW and notifies their advisors. Run it daily when the scheduler is not deployed.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadbridge/internal/accounts"
	"leadbridge/internal/email"
	"leadbridge/internal/events"
	"leadbridge/internal/leads"
	"leadbridge/internal/notification"
	"leadbridge/internal/notification/outbox"
	"leadbridge/internal/scheduler"
	"leadbridge/platform/config"
	"leadbridge/platform/db"
	"leadbridge/platform/logger"
	"leadbridge/platform/validator"
)

func main() {
	enqueue := flag.Bool("enqueue", false, "hand the sweep to the scheduler worker instead of running it here")
	flag.Parse()

	cfg, err := config.LoadTool()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	log := logger.NewWithWriter(cfg.Env, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *enqueue {
		client, err := scheduler.NewClient(cfg)
		if err != nil {
			log.Error("failed to initialize scheduler client", "error", err)
			os.Exit(1)
		}
		defer func() { _ = client.Close() }()
		if err := client.EnqueueCallbackSweep(ctx); err != nil {
			log.Error("failed to enqueue callback sweep", "error", err)
			os.Exit(1)
		}
		log.Info("callback sweep enqueued")
		return
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		os.Exit(1)
	}

	accountsModule := accounts.NewModule(pool, eventBus, validator.New(), log)
	leadsModule := leads.NewModule(pool, eventBus, accountsModule.Service(), accountsModule.Repository(), validator.New(), nil, log)
	notificationModule := notification.New(leadsModule.Repository(), accountsModule.Service(), sender, cfg, nil, log)
	if cfg.IsSchedulerEnabled() {
		notificationModule.WithOutbox(outbox.New(pool))
	}
	notificationModule.RegisterHandlers(eventBus)

	today := scheduler.Today(time.Now(), scheduler.BusinessLocation())
	processed, err := leadsModule.LifecycleService().ProcessDueCallbacks(ctx, today)
	eventBus.Wait()
	if err != nil {
		log.Error("callback sweep finished with errors", "processed", processed, "error", err)
		fmt.Printf("Zpracováno %d leadů, některé selhaly: %v\n", processed, err)
		os.Exit(1)
	}
	log.Info("callback sweep finished", "processed", processed, "date", today.Format(time.DateOnly))
	fmt.Printf("Zpracováno %d leadů s plánovaným hovorem k %s\n", processed, today.Format("02.01.2006"))
}
