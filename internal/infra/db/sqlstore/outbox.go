package sqlstore

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bryanwahyu/triangle-intel/internal/domain/outbox"
)

type OutboxRepository struct{ base }

func NewOutboxRepository(db *sqlx.DB) *OutboxRepository {
	return &OutboxRepository{newBase(db)}
}

func (r *OutboxRepository) Enqueue(ctx context.Context, m outbox.Message) error {
	status := m.Status
	if status == "" {
		status = outbox.StatusPending
	}
	_, err := r.db.ExecContext(ctx, r.q(`INSERT INTO outbox_messages
 (id, kind, payload, status, attempts, next_attempt_at, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		m.ID, m.Kind, m.Payload, string(status), m.Attempts, m.NextAttemptAt, m.CreatedAt)
	return err
}

func (r *OutboxRepository) Due(ctx context.Context, now time.Time, limit int) ([]outbox.Message, error) {
	var out []outbox.Message
	err := r.db.SelectContext(ctx, &out, r.q(`SELECT id, kind, payload, status, attempts, next_attempt_at,
 last_error, dispatched_at, created_at FROM outbox_messages
 WHERE status = ? AND next_attempt_at <= ? ORDER BY created_at ASC LIMIT ?`),
		string(outbox.StatusPending), now, limit)
	return out, err
}

func (r *OutboxRepository) MarkDispatched(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, r.q(`UPDATE outbox_messages SET status = ?, dispatched_at = ? WHERE id = ?`),
		string(outbox.StatusDispatched), at, id)
	return err
}

func (r *OutboxRepository) Reschedule(ctx context.Context, id string, attempts int, next time.Time, lastErr string) error {
	_, err := r.db.ExecContext(ctx, r.q(`UPDATE outbox_messages SET attempts = ?, next_attempt_at = ?, last_error = ? WHERE id = ?`),
		attempts, next, lastErr, id)
	return err
}

func (r *OutboxRepository) Park(ctx context.Context, id string, attempts int, lastErr string) error {
	_, err := r.db.ExecContext(ctx, r.q(`UPDATE outbox_messages SET status = ?, attempts = ?, last_error = ? WHERE id = ?`),
		string(outbox.StatusDead), attempts, lastErr, id)
	return err
}

func (r *OutboxRepository) Pending(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.q(`SELECT COUNT(*) FROM outbox_messages WHERE status = ?`), string(outbox.StatusPending))
	return n, err
}
