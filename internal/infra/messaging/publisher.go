// Package messaging publishes network events to NATS or Kafka.
package messaging

import (
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/bryanwahyu/triangle-intel/internal/application"
	"github.com/bryanwahyu/triangle-intel/internal/config"
	"github.com/bryanwahyu/triangle-intel/internal/domain/session"
)

type nopCloser struct{ application.NopPublisher }

func (nopCloser) Close() error { return nil }

// PublishCloser is what main holds on to for shutdown.
type PublishCloser interface {
	application.EventPublisher
	io.Closer
}

// FromConfig picks the publisher for events.driver. "none" publishes nothing.
func FromConfig(cfg config.Config, log *zap.Logger) (PublishCloser, error) {
	switch cfg.Events.Driver {
	case "nats":
		return DialNATS(cfg.Events.URL, cfg.Events.Subject, log)
	case "kafka":
		return NewKafka(cfg.Events.Brokers, cfg.Events.Topic), nil
	case "", "none":
		return nopCloser{}, nil
	}
	return nil, fmt.Errorf("messaging: unsupported driver %q", cfg.Events.Driver)
}

func encode(e session.Event) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", e.Type, err)
	}
	return b, nil
}

