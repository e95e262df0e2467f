package application

import (
	"context"

	"github.com/bryanwahyu/triangle-intel/internal/domain/session"
)

// EventPublisher fans network events out to a broker.
type EventPublisher interface {
	Publish(ctx context.Context, e session.Event) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, session.Event) error { return nil }
