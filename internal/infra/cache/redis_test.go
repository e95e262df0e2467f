package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type countingObserver struct{ hits, misses atomic.Int32 }

func (o *countingObserver) CacheLookup(hit bool) {
	if hit {
		o.hits.Add(1)
	} else {
		o.misses.Add(1)
	}
}

func setup(t *testing.T) (*miniredis.Miniredis, *Redis, *countingObserver) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	obs := &countingObserver{}
	return mr, New(client, "triangle", time.Minute, WithObserver(obs)), obs
}

func TestSetGetUsesPrefixAndTTL(t *testing.T) {
	mr, c, obs := setup(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "goldmine:comtrade", item{Name: "a", Count: 2}, 10*time.Minute))
	assert.True(t, mr.Exists("triangle:goldmine:comtrade"))
	assert.Equal(t, 10*time.Minute, mr.TTL("triangle:goldmine:comtrade"))

	var got item
	hit, err := c.Get(ctx, "goldmine:comtrade", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, item{Name: "a", Count: 2}, got)
	assert.EqualValues(t, 1, obs.hits.Load())
}

func TestDefaultTTL(t *testing.T) {
	mr, c, _ := setup(t)
	require.NoError(t, c.Set(context.Background(), "k", 1, 0))
	assert.Equal(t, time.Minute, mr.TTL("triangle:k"))
}

func TestMissAndExpiry(t *testing.T) {
	mr, c, obs := setup(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", item{Name: "x"}, time.Second))
	mr.FastForward(2 * time.Second)

	var got item
	hit, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.EqualValues(t, 1, obs.misses.Load())
}

func TestBackendDownIsMiss(t *testing.T) {
	mr, c, _ := setup(t)
	mr.Close()

	var got item
	hit, err := c.Get(context.Background(), "k", &got)
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, c.Set(context.Background(), "k", item{}, time.Minute))

	err = c.GetOrLoad(context.Background(), "k", &got, time.Minute, func(context.Context) (any, error) {
		return item{Name: "loaded"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "loaded", got.Name)
}

func TestUndecodableEntryIsMiss(t *testing.T) {
	mr, c, _ := setup(t)
	require.NoError(t, mr.Set("triangle:k", "{not json"))

	var got item
	hit, err := c.Get(context.Background(), "k", &got)
	assert.NoError(t, err)
	assert.False(t, hit)
}

func TestGetOrLoadCachesResult(t *testing.T) {
	_, c, _ := setup(t)
	ctx := context.Background()
	var calls atomic.Int32
	load := func(context.Context) (any, error) {
		calls.Add(1)
		return item{Name: "fresh", Count: 7}, nil
	}

	var first, second item
	require.NoError(t, c.GetOrLoad(ctx, "k", &first, time.Minute, load))
	require.NoError(t, c.GetOrLoad(ctx, "k", &second, time.Minute, load))
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, calls.Load())
}

func TestGetOrLoadErrorNotCached(t *testing.T) {
	mr, c, _ := setup(t)
	boom := errors.New("db down")

	var got item
	err := c.GetOrLoad(context.Background(), "k", &got, time.Minute, func(context.Context) (any, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("triangle:k"))
}

func TestGetOrLoadCollapsesConcurrentMisses(t *testing.T) {
	_, c, _ := setup(t)
	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return item{Name: "once"}, nil
	}

	var wg sync.WaitGroup
	results := make([]item, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = c.GetOrLoad(context.Background(), "hot", &results[i], time.Minute, load)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "once", r.Name)
	}
	assert.LessOrEqual(t, calls.Load(), int32(5))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}
