package scheduler

import (
	"context"
	"time"

	"leadbridge/internal/notification/outbox"
	"leadbridge/platform/config"
	"leadbridge/platform/logger"
	"leadbridge/platform/metrics"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	outboxPollInterval = 2 * time.Second
	outboxClaimBatch   = 50
)

// OutboxClaimer is the slice of the outbox repository the dispatcher uses.
type OutboxClaimer interface {
	ClaimPending(ctx context.Context, limit int) ([]outbox.Record, error)
	MarkPending(ctx context.Context, id uuid.UUID, lastError *string) error
}

// NotificationOutboxDispatcher moves due outbox rows onto the asynq queue.
type NotificationOutboxDispatcher struct {
	client  *Client
	repo    OutboxClaimer
	metrics *metrics.Metrics
	log     *logger.Logger
}

func NewNotificationOutboxDispatcher(cfg config.SchedulerConfig, repo OutboxClaimer, m *metrics.Metrics, log *logger.Logger) (*NotificationOutboxDispatcher, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &NotificationOutboxDispatcher{
		client:  client,
		repo:    repo,
		metrics: m,
		log:     log,
	}, nil
}

func (d *NotificationOutboxDispatcher) Close() error {
	if d == nil {
		return nil
	}
	return d.client.Close()
}

func (d *NotificationOutboxDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil || d.repo == nil {
		return
	}

	ticker := time.NewTicker(outboxPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if _, err := d.DispatchOnce(ctx); err != nil {
			d.log.Warn("outbox claim failed", "error", err)
		}
	}
}

// DispatchOnce claims one batch and enqueues it. Rows that cannot be
// enqueued go back to pending with the error recorded.
func (d *NotificationOutboxDispatcher) DispatchOnce(ctx context.Context) (int, error) {
	records, err := d.repo.ClaimPending(ctx, outboxClaimBatch)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, rec := range records {
		task, err := NewNotificationOutboxDueTask(NotificationOutboxDuePayload{OutboxID: rec.ID.String()})
		if err == nil {
			err = d.client.enqueue(ctx, task, asynq.ProcessAt(rec.RunAt))
		}
		if err != nil {
			msg := err.Error()
			_ = d.repo.MarkPending(ctx, rec.ID, &msg)
			d.log.Warn("outbox enqueue failed", "outboxId", rec.ID, "error", err)
			continue
		}
		d.metrics.OutboxDispatched()
		enqueued++
	}
	return enqueued, nil
}

