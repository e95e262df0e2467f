package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/bryanwahyu/triangle-intel/internal/domain/session"
)

// natsConn is the part of *nats.Conn the publisher needs.
type natsConn interface {
	Publish(subj string, data []byte) error
	Drain() error
}

type NATS struct {
	conn    natsConn
	subject string
}

func DialNATS(url, subject string, log *zap.Logger) (*NATS, error) {
	if log == nil {
		log = zap.NewNop()
	}
	nc, err := nats.Connect(url,
		nats.Name("triangle-intel"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return &NATS{conn: nc, subject: subject}, nil
}

// Publish sends on subject.<event type>, e.g. triangle.network.events.user_page_analysis.
func (p *NATS) Publish(ctx context.Context, e session.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := encode(e)
	if err != nil {
		return err
	}
	return p.conn.Publish(p.subject+"."+e.Type, b)
}

func (p *NATS) Close() error { return p.conn.Drain() }
