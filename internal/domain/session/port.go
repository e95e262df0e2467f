package session

import "context"

type Repository interface {
	Upsert(ctx context.Context, rec Record) error
	// Get returns sql.ErrNoRows when the session does not exist.
	Get(ctx context.Context, id string) (*Record, error)
	Recent(ctx context.Context, limit int) ([]Record, error)
	Count(ctx context.Context) (int, error)
}

type EventRepository interface {
	Append(ctx context.Context, e Event) error
}
