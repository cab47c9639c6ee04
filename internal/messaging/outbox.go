package messaging

import (
	"context"
	"time"

	"go.uber.org/zap"

	intdb "dispatch/internal/db"
	"dispatch/internal/metrics"
	"dispatch/internal/repositories"
	"dispatch/internal/utils"
)

const (
	drainBatch      = 50
	maxOutboxRetry  = 10
	defaultInterval = 5 * time.Second
)

// OutboxDrainer periodically publishes pending outbox messages. Messages are
// acked only after the broker accepted them, so delivery is at least once.
type OutboxDrainer struct {
	db        *intdb.DB
	publisher Publisher
	interval  time.Duration
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewOutboxDrainer(db *intdb.DB, publisher Publisher, interval time.Duration, m *metrics.Metrics) *OutboxDrainer {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &OutboxDrainer{db: db, publisher: publisher, interval: interval, metrics: m, now: utils.NowUTC}
}

// Run drains every interval until ctx is done.
func (d *OutboxDrainer) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.Drain(ctx); err != nil {
				utils.LogError("", "outbox", "drain", err)
			}
		}
	}
}

// Drain publishes one batch and reports how many messages were sent.
func (d *OutboxDrainer) Drain(ctx context.Context) (int, error) {
	repo := repositories.OutboxRepository{DB: d.db}
	msgs, err := repo.ListPending(ctx, drainBatch, maxOutboxRetry)
	if err != nil {
		return 0, err
	}
	sent, failed := 0, 0
	for _, msg := range msgs {
		if err := d.publisher.Publish(ctx, msg.Topic, msg.Key, msg.Payload); err != nil {
			failed++
			utils.LogEvent("", "outbox", "publish", "publish failed",
				zap.String("topic", msg.Topic), zap.Int64("outbox_id", msg.ID), zap.Error(err))
			if err := repo.IncrementRetries(ctx, msg.ID); err != nil {
				return sent, err
			}
			continue
		}
		if err := repo.Ack(ctx, msg.ID, d.now()); err != nil {
			return sent, err
		}
		sent++
	}
	d.metrics.ObserveOutbox("sent", sent)
	d.metrics.ObserveOutbox("failed", failed)
	return sent, nil
}
