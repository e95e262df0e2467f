package cascade

import "context"

type Repository interface {
	// Get returns ErrStateNotFound when nothing was stored for the session.
	Get(ctx context.Context, sessionID string) (*State, error)
	Save(ctx context.Context, st State) error
}
