package outbox

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	domain "github.com/bryanwahyu/triangle-intel/internal/domain/outbox"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type memRepo struct {
	mu   sync.Mutex
	msgs map[string]domain.Message
}

func newMemRepo() *memRepo { return &memRepo{msgs: map[string]domain.Message{}} }

func (r *memRepo) Enqueue(_ context.Context, m domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs[m.ID] = m
	return nil
}

func (r *memRepo) Due(_ context.Context, now time.Time, limit int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Message
	for _, m := range r.msgs {
		if m.Status == domain.StatusPending && !m.NextAttemptAt.After(now) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) MarkDispatched(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.msgs[id]
	m.Status = domain.StatusDispatched
	m.DispatchedAt = &at
	r.msgs[id] = m
	return nil
}

func (r *memRepo) Reschedule(_ context.Context, id string, attempts int, next time.Time, lastErr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.msgs[id]
	m.Attempts = attempts
	m.NextAttemptAt = next
	m.LastError = &lastErr
	r.msgs[id] = m
	return nil
}

func (r *memRepo) Park(_ context.Context, id string, attempts int, lastErr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.msgs[id]
	m.Status = domain.StatusDead
	m.Attempts = attempts
	m.LastError = &lastErr
	r.msgs[id] = m
	return nil
}

func (r *memRepo) Pending(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.msgs {
		if m.Status == domain.StatusPending {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) only(t *testing.T) domain.Message {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.Len(t, r.msgs, 1)
	for _, m := range r.msgs {
		return m
	}
	return domain.Message{}
}

type fakeHandler struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (h *fakeHandler) Kind() string { return domain.KindPatternSave }

func (h *fakeHandler) Handle(context.Context, domain.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	return h.err
}

func (h *fakeHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type countingRecorder struct {
	mu      sync.Mutex
	results []string
	pending int
}

func (c *countingRecorder) Dispatched(_, result string) {
	c.mu.Lock()
	c.results = append(c.results, result)
	c.mu.Unlock()
}

func (c *countingRecorder) Pending(n int) {
	c.mu.Lock()
	c.pending = n
	c.mu.Unlock()
}

var t0 = time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)

func newWorker() (*Worker, *memRepo, *stepClock, *countingRecorder) {
	repo := newMemRepo()
	clock := &stepClock{t: t0}
	rec := &countingRecorder{}
	return &Worker{Repo: repo, Clock: clock, Metrics: rec, BaseBackoff: 2 * time.Second, MaxAttempts: 3}, repo, clock, rec
}

func TestDispatchSuccess(t *testing.T) {
	w, repo, _, rec := newWorker()
	h := &fakeHandler{}
	w.Register(h)

	require.NoError(t, w.Enqueue(context.Background(), domain.KindPatternSave, map[string]string{"sessionId": "s1"}))
	m := repo.only(t)
	assert.JSONEq(t, `{"sessionId":"s1"}`, string(m.Payload))
	assert.Equal(t, domain.StatusPending, m.Status)

	n, err := w.DispatchDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, h.count())

	m = repo.only(t)
	assert.Equal(t, domain.StatusDispatched, m.Status)
	require.NotNil(t, m.DispatchedAt)
	assert.Equal(t, t0, *m.DispatchedAt)
	assert.Equal(t, []string{"ok"}, rec.results)
	assert.Equal(t, 0, rec.pending)
}

func TestDispatchRetriesWithBackoffThenParks(t *testing.T) {
	w, repo, clock, rec := newWorker()
	h := &fakeHandler{err: errors.New("db down")}
	w.Register(h)
	require.NoError(t, w.Enqueue(context.Background(), domain.KindPatternSave, struct{}{}))

	_, err := w.DispatchDue(context.Background())
	require.NoError(t, err)
	m := repo.only(t)
	assert.Equal(t, domain.StatusPending, m.Status)
	assert.Equal(t, 1, m.Attempts)
	assert.Equal(t, t0.Add(4*time.Second), m.NextAttemptAt)
	require.NotNil(t, m.LastError)
	assert.Equal(t, "db down", *m.LastError)

	// belum jatuh tempo
	n, err := w.DispatchDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	clock.Advance(4 * time.Second)
	_, err = w.DispatchDue(context.Background())
	require.NoError(t, err)
	m = repo.only(t)
	assert.Equal(t, 2, m.Attempts)
	assert.Equal(t, clock.Now().Add(8*time.Second), m.NextAttemptAt)

	clock.Advance(8 * time.Second)
	_, err = w.DispatchDue(context.Background())
	require.NoError(t, err)
	m = repo.only(t)
	assert.Equal(t, domain.StatusDead, m.Status)
	assert.Equal(t, 3, m.Attempts)
	assert.Equal(t, 3, h.count())
	assert.Equal(t, []string{"retry", "retry", "parked"}, rec.results)
}

func TestDispatchUnknownKindParks(t *testing.T) {
	w, repo, _, _ := newWorker()
	require.NoError(t, w.Enqueue(context.Background(), "mystery", 1))

	_, err := w.DispatchDue(context.Background())
	require.NoError(t, err)
	m := repo.only(t)
	assert.Equal(t, domain.StatusDead, m.Status)
	assert.Equal(t, "no handler for kind mystery", *m.LastError)
}

func TestRunStopsOnCancel(t *testing.T) {
	w, repo, _, _ := newWorker()
	w.PollInterval = 5 * time.Millisecond
	h := &fakeHandler{}
	w.Register(h)
	require.NoError(t, w.Enqueue(context.Background(), domain.KindPatternSave, "x"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return h.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, domain.StatusDispatched, repo.only(t).Status)
}
