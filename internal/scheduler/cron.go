package scheduler

import (
	"context"

	"leadbridge/platform/config"
	"leadbridge/platform/logger"

	"github.com/hibiken/asynq"
)

const defaultCallbackSweepCron = "5 6 * * *"

// CallbackCron registers the periodic callback sweep with asynq's scheduler.
type CallbackCron struct {
	scheduler *asynq.Scheduler
	spec      string
	entryID   string
	log       *logger.Logger
}

func NewCallbackCron(cfg config.SchedulerConfig, log *logger.Logger) (*CallbackCron, error) {
	opt, err := clientOpt(cfg)
	if err != nil {
		return nil, err
	}

	spec := cfg.GetCallbackSweepCron()
	if spec == "" {
		spec = defaultCallbackSweepCron
	}

	s := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: BusinessLocation()})
	entryID, err := s.Register(spec, NewCallbackSweepTask(), asynq.Queue(queueName(cfg)))
	if err != nil {
		return nil, err
	}
	return &CallbackCron{scheduler: s, spec: spec, entryID: entryID, log: log}, nil
}

func (c *CallbackCron) Run(ctx context.Context) {
	if c == nil || c.scheduler == nil {
		return
	}
	if err := c.scheduler.Start(); err != nil {
		c.log.Error("callback cron failed to start", "error", err)
		return
	}
	c.log.Info("callback cron started", "spec", c.spec, "entryId", c.entryID)
	<-ctx.Done()
	c.scheduler.Shutdown()
}
