package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/triangle-intel/internal/application"
	domain "github.com/bryanwahyu/triangle-intel/internal/domain/outbox"
)

// Handler processes one message kind. A returned error schedules a retry.
type Handler interface {
	Kind() string
	Handle(ctx context.Context, msg domain.Message) error
}

type Recorder interface {
	Dispatched(kind, result string)
	Pending(n int)
}

type nopRecorder struct{}

func (nopRecorder) Dispatched(string, string) {}
func (nopRecorder) Pending(int)               {}

const (
	resultOK     = "ok"
	resultRetry  = "retry"
	resultParked = "parked"

	defaultPoll    = 2 * time.Second
	defaultBatch   = 20
	defaultMax     = 6
	defaultBase    = 2 * time.Second
	backoffCeiling = 5 * time.Minute
)

// Worker polls the outbox table and dispatches due messages by kind.
// Register handlers before calling Run.
type Worker struct {
	Repo    domain.Repository
	Clock   application.Clock
	Logger  *zap.Logger
	Metrics Recorder

	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	BaseBackoff  time.Duration

	mu       sync.RWMutex
	handlers map[string]Handler
}

func (w *Worker) Register(h Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.handlers == nil {
		w.handlers = map[string]Handler{}
	}
	w.handlers[h.Kind()] = h
}

func (w *Worker) handler(kind string) (Handler, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	h, ok := w.handlers[kind]
	return h, ok
}

func (w *Worker) clock() application.Clock {
	if w.Clock == nil {
		return application.SystemClock{}
	}
	return w.Clock
}

func (w *Worker) log() *zap.Logger {
	if w.Logger == nil {
		return zap.NewNop()
	}
	return w.Logger
}

func (w *Worker) metrics() Recorder {
	if w.Metrics == nil {
		return nopRecorder{}
	}
	return w.Metrics
}

func orInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func orDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

// Enqueue stores payload as JSON, due immediately.
func (w *Worker) Enqueue(ctx context.Context, kind string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", kind, err)
	}
	now := w.clock().Now()
	msg := domain.Message{
		ID:            uuid.NewString(),
		Kind:          kind,
		Payload:       body,
		Status:        domain.StatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
	}
	if err := w.Repo.Enqueue(ctx, msg); err != nil {
		return fmt.Errorf("enqueue %s: %w", kind, err)
	}
	return nil
}

// Run polls until ctx is cancelled. It returns nil on cancellation.
func (w *Worker) Run(ctx context.Context) error {
	w.log().Info("outbox worker started")
	ticker := time.NewTicker(orDuration(w.PollInterval, defaultPoll))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log().Info("outbox worker stopped")
			return nil
		case <-ticker.C:
			if _, err := w.DispatchDue(ctx); err != nil && ctx.Err() == nil {
				w.log().Warn("outbox: dispatch batch failed", zap.Error(err))
			}
		}
	}
}

// DispatchDue processes one batch and returns how many messages were handled.
func (w *Worker) DispatchDue(ctx context.Context) (int, error) {
	msgs, err := w.Repo.Due(ctx, w.clock().Now(), orInt(w.BatchSize, defaultBatch))
	if err != nil {
		return 0, fmt.Errorf("load due messages: %w", err)
	}
	n := 0
	for _, m := range msgs {
		if ctx.Err() != nil {
			break
		}
		if err := w.dispatch(ctx, m); err != nil {
			return n, err
		}
		n++
	}
	if pending, err := w.Repo.Pending(ctx); err == nil {
		w.metrics().Pending(pending)
	}
	return n, nil
}

// dispatch: error hanya untuk kegagalan update status di store
func (w *Worker) dispatch(ctx context.Context, m domain.Message) error {
	h, ok := w.handler(m.Kind)
	if !ok {
		w.log().Warn("outbox: no handler, parking", zap.String("id", m.ID), zap.String("kind", m.Kind))
		w.metrics().Dispatched(m.Kind, resultParked)
		return w.Repo.Park(ctx, m.ID, m.Attempts, "no handler for kind "+m.Kind)
	}

	herr := h.Handle(ctx, m)
	now := w.clock().Now()
	if herr == nil {
		w.metrics().Dispatched(m.Kind, resultOK)
		return w.Repo.MarkDispatched(ctx, m.ID, now)
	}

	attempts := m.Attempts + 1
	fields := []zap.Field{zap.String("id", m.ID), zap.String("kind", m.Kind), zap.Int("attempts", attempts), zap.Error(herr)}
	if attempts >= orInt(w.MaxAttempts, defaultMax) {
		w.log().Warn("outbox: max attempts reached, parking", fields...)
		w.metrics().Dispatched(m.Kind, resultParked)
		return w.Repo.Park(ctx, m.ID, attempts, herr.Error())
	}
	next := now.Add(domain.Backoff(orDuration(w.BaseBackoff, defaultBase), backoffCeiling, attempts))
	w.log().Warn("outbox: handler failed, rescheduling", append(fields, zap.Time("next_attempt_at", next))...)
	w.metrics().Dispatched(m.Kind, resultRetry)
	return w.Repo.Reschedule(ctx, m.ID, attempts, next, herr.Error())
}
