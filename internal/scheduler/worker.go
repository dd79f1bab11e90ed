package scheduler

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"

	"leadbridge/internal/events"
	"leadbridge/platform/config"
	"leadbridge/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// CallbackSweeper returns leads with a due callback to NEW.
type CallbackSweeper interface {
	ProcessDueCallbacks(ctx context.Context, today time.Time) (int, error)
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	bus     events.Bus
	sweeper CallbackSweeper
	log     *logger.Logger
	loc     *time.Location
	now     func() time.Time
}

func NewWorker(cfg config.SchedulerConfig, bus events.Bus, sweeper CallbackSweeper, log *logger.Logger) (*Worker, error) {
	opt, err := clientOpt(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:  server,
		mux:     mux,
		bus:     bus,
		sweeper: sweeper,
		log:     log,
		loc:     BusinessLocation(),
		now:     time.Now,
	}

	mux.HandleFunc(TaskNotificationOutboxDue, w.handleNotificationOutboxDue)
	mux.HandleFunc(TaskCallbackSweep, w.handleCallbackSweep)

	return w, nil
}

func (w *Worker) handleNotificationOutboxDue(ctx context.Context, task *asynq.Task) error {
	if w.bus == nil {
		return nil
	}

	payload, err := ParseNotificationOutboxDuePayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	return w.bus.PublishSync(ctx, events.NotificationOutboxDue{
		BaseEvent: events.NewBaseEvent(),
		OutboxID:  outboxID,
	})
}

func (w *Worker) handleCallbackSweep(ctx context.Context, _ *asynq.Task) error {
	if w.sweeper == nil {
		return nil
	}
	today := Today(w.now(), w.loc)
	processed, err := w.sweeper.ProcessDueCallbacks(ctx, today)
	if err != nil {
		w.log.Error("callback sweep finished with errors", "processed", processed, "error", err)
		return err
	}
	w.log.Info("callback sweep task done", "processed", processed, "today", today.Format(time.DateOnly))
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// BusinessLocation is the calendar callbacks are scheduled in.
func BusinessLocation() *time.Location {
	loc, err := time.LoadLocation("Europe/Prague")
	if err != nil {
		return time.UTC
	}
	return loc
}

// Today is the calendar date of now in loc, as midnight UTC.
func Today(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}
