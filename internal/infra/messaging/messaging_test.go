package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/triangle-intel/internal/config"
	"github.com/bryanwahyu/triangle-intel/internal/domain/session"
)

type fakeConn struct {
	subjects []string
	payloads [][]byte
	err      error
	drained  bool
}

func (f *fakeConn) Publish(subj string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subj)
	f.payloads = append(f.payloads, data)
	return nil
}

func (f *fakeConn) Drain() error { f.drained = true; return nil }

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { f.closed = true; return nil }

var evt = session.Event{
	Type:      "user_page_analysis",
	SessionID: "session_Acme_1",
	Data:      map[string]any{"page": "foundation"},
	Summary:   "Electronics company analyzing China suppliers on foundation page",
	CreatedAt: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
}

func TestNATSPublishSubjectPerType(t *testing.T) {
	conn := &fakeConn{}
	p := &NATS{conn: conn, subject: "triangle.network.events"}

	require.NoError(t, p.Publish(context.Background(), evt))
	assert.Equal(t, []string{"triangle.network.events.user_page_analysis"}, conn.subjects)

	var got session.Event
	require.NoError(t, json.Unmarshal(conn.payloads[0], &got))
	assert.Equal(t, evt.Summary, got.Summary)

	require.NoError(t, p.Close())
	assert.True(t, conn.drained)
}

func TestNATSPublishCancelled(t *testing.T) {
	conn := &fakeConn{}
	p := &NATS{conn: conn, subject: "s"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, evt), context.Canceled)
	assert.Empty(t, conn.subjects)
}

func TestKafkaPublishKeysBySession(t *testing.T) {
	w := &fakeWriter{}
	p := &Kafka{w: w}

	require.NoError(t, p.Publish(context.Background(), evt))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "session_Acme_1", string(w.msgs[0].Key))
	assert.Equal(t, "event_type", w.msgs[0].Headers[0].Key)
	assert.Equal(t, evt.CreatedAt, w.msgs[0].Time)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublishError(t *testing.T) {
	boom := errors.New("broker unreachable")
	p := &Kafka{w: &fakeWriter{err: boom}}
	assert.ErrorIs(t, p.Publish(context.Background(), evt), boom)
}

func TestFromConfig(t *testing.T) {
	var cfg config.Config
	cfg.Events.Driver = "none"
	p, err := FromConfig(cfg, nil)
	require.NoError(t, err)
	assert.NoError(t, p.Publish(context.Background(), evt))
	assert.NoError(t, p.Close())

	cfg.Events.Driver = "kafka"
	cfg.Events.Brokers = []string{"localhost:9092"}
	cfg.Events.Topic = "network-intelligence-events"
	p, err = FromConfig(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &Kafka{}, p)
	assert.NoError(t, p.Close())

	cfg.Events.Driver = "amqp"
	_, err = FromConfig(cfg, nil)
	assert.Error(t, err)
}
