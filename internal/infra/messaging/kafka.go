package messaging

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/bryanwahyu/triangle-intel/internal/domain/session"
)

// kafkaWriter abstracts *kafka.Writer for tests.
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Kafka struct {
	w kafkaWriter
}

func NewKafka(brokers []string, topic string) *Kafka {
	return &Kafka{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
	}}
}

// Publish keys messages by session so one session stays on one partition.
func (p *Kafka) Publish(ctx context.Context, e session.Event) error {
	b, err := encode(e)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.SessionID),
		Value: b,
		Time:  e.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	})
}

func (p *Kafka) Close() error { return p.w.Close() }
