package outbox

import (
	"context"
	"time"
)

type Repository interface {
	Enqueue(ctx context.Context, m Message) error
	// Due returns pending messages whose next_attempt_at <= now, oldest first.
	Due(ctx context.Context, now time.Time, limit int) ([]Message, error)
	MarkDispatched(ctx context.Context, id string, at time.Time) error
	Reschedule(ctx context.Context, id string, attempts int, next time.Time, lastErr string) error
	Park(ctx context.Context, id string, attempts int, lastErr string) error
	Pending(ctx context.Context) (int, error)
}
