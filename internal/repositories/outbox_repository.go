package repositories

import (
	"context"
	"time"

	intdb "dispatch/internal/db"
)

// OutboxMessage is an event waiting to be published.
type OutboxMessage struct {
	ID        int64
	Topic     string
	Key       string
	Payload   []byte
	Retries   int
	CreatedAt time.Time
}

// OutboxRepository stores events inside the same transaction as the change
// they describe; a drainer publishes them afterwards.
type OutboxRepository struct {
	DB intdb.Querier
}

func (r OutboxRepository) Enqueue(ctx context.Context, topic, key string, payload []byte, now time.Time) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Q(`INSERT INTO outbox (topic, msg_key, payload, retries, created_at) VALUES (?, ?, ?, 0, ?)`),
		topic, key, string(payload), intdb.Timestamp(now))
	return err
}

// ListPending returns unsent messages below maxRetries, oldest first.
func (r OutboxRepository) ListPending(ctx context.Context, limit, maxRetries int) ([]OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx, r.DB.Q(`SELECT id, topic, msg_key, payload, retries, created_at FROM outbox
		WHERE sent_at IS NULL AND retries<? ORDER BY id ASC LIMIT ?`), maxRetries, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []OutboxMessage{}
	for rows.Next() {
		var (
			m         OutboxMessage
			payload   []byte
			createdAt any
		)
		if err := rows.Scan(&m.ID, &m.Topic, &m.Key, &payload, &m.Retries, &createdAt); err != nil {
			return out, err
		}
		m.Payload = append([]byte(nil), payload...)
		m.CreatedAt = intdb.ParseTime(createdAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r OutboxRepository) Ack(ctx context.Context, id int64, now time.Time) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Q(`UPDATE outbox SET sent_at=? WHERE id=?`), intdb.Timestamp(now), id)
	return err
}

func (r OutboxRepository) IncrementRetries(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Q(`UPDATE outbox SET retries=retries+1 WHERE id=?`), id)
	return err
}
