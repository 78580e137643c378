package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestKey(t *testing.T) {
	base := Key("mars", "curiosity", "2012-08-08", "", "")
	assert.Equal(t, "mars:curiosity:2012-08-08:null:null", base)
	assert.Equal(t, base, Key("mars", "curiosity", "2012-08-08", "", ""))

	for _, cam := range []string{"MAST", "FHAZ", "NAVCAM_LEFT"} {
		assert.NotEqual(t, base, Key("mars", "curiosity", "2012-08-08", "", cam), cam)
	}
	assert.NotEqual(t, base, Key("mars", "perseverance", "2012-08-08", "", ""))
	assert.NotEqual(t, base, Key("mars", "curiosity", "2012-08-09", "", ""))
	assert.NotEqual(t, Key("mars", "curiosity", "", "10", ""), Key("mars", "curiosity", "", "", "10"))

	// separators inside values cannot forge another tuple
	assert.NotEqual(t, Key("mars", "a:b", "c"), Key("mars", "a", "b:c"))
}

func TestHitWithinTTLSkipsLoad(t *testing.T) {
	clock := newFakeClock()
	c := New("test", 10*time.Minute, WithClock(clock.Now))

	var calls atomic.Int32
	load := func(context.Context) (json.RawMessage, error) {
		calls.Add(1)
		return json.RawMessage(`{"photos":[]}`), nil
	}

	key := Key("mars", "curiosity", "2012-08-08", "", "")
	_, hit, err := c.Fetch(context.Background(), key, load)
	require.NoError(t, err)
	assert.False(t, hit)

	clock.Advance(9 * time.Minute)
	for i := 0; i < 3; i++ {
		data, hit, err := c.Fetch(context.Background(), key, load)
		require.NoError(t, err)
		assert.True(t, hit)
		assert.JSONEq(t, `{"photos":[]}`, string(data))
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestExpiredEntryReloadsOnceAndOverwrites(t *testing.T) {
	clock := newFakeClock()
	c := New("test", 10*time.Minute, WithClock(clock.Now))
	key := Key("mars", "curiosity", "2012-08-08", "", "")

	var calls atomic.Int32
	load := func(context.Context) (json.RawMessage, error) {
		n := calls.Add(1)
		if n == 1 {
			return json.RawMessage(`{"v":1}`), nil
		}
		return json.RawMessage(`{"v":2}`), nil
	}

	_, _, err := c.Fetch(context.Background(), key, load)
	require.NoError(t, err)
	first, _ := c.Get(key)

	clock.Advance(10 * time.Minute)
	stale, ok := c.Get(key)
	require.True(t, ok, "expired entries stay until superseded")
	assert.False(t, c.IsValid(stale))

	data, hit, err := c.Fetch(context.Background(), key, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.JSONEq(t, `{"v":2}`, string(data))
	assert.Equal(t, int32(2), calls.Load())

	fresh, _ := c.Get(key)
	assert.True(t, fresh.Timestamp.After(first.Timestamp))
	assert.True(t, c.IsValid(fresh))
	assert.Equal(t, 1, c.Len())
}

func TestFailedLoadIsNotCached(t *testing.T) {
	c := New("test", time.Minute)
	boom := errors.New("upstream down")

	_, _, err := c.Fetch(context.Background(), "k", func(context.Context) (json.RawMessage, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestPutOverwrites(t *testing.T) {
	c := New("test", time.Minute)
	c.Put("k", json.RawMessage(`1`))
	c.Put("k", json.RawMessage(`2`))

	e, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "2", string(e.Payload))
	assert.Equal(t, 1, c.Len())
}

func TestMaxEntriesEvictsLeastRecentlyUsed(t *testing.T) {
	c := New("test", time.Hour, WithMaxEntries(2))
	c.Put("a", json.RawMessage(`1`))
	c.Put("b", json.RawMessage(`2`))

	_, _ = c.Get("a") // a is now most recent
	c.Put("c", json.RawMessage(`3`))

	_, okA := c.Get("a")
	_, okB := c.Get("b")
	_, okC := c.Get("c")
	assert.True(t, okA)
	assert.False(t, okB)
	assert.True(t, okC)
	assert.Equal(t, 2, c.Len())
}

func TestSweep(t *testing.T) {
	clock := newFakeClock()
	c := New("test", time.Minute, WithClock(clock.Now))
	c.Put("old", json.RawMessage(`1`))
	clock.Advance(45 * time.Second)
	c.Put("new", json.RawMessage(`2`))
	clock.Advance(30 * time.Second)

	assert.Equal(t, 1, c.Sweep())
	_, ok := c.Get("old")
	assert.False(t, ok)
	_, ok = c.Get("new")
	assert.True(t, ok)
}

func TestJanitorStopsWithContext(t *testing.T) {
	clock := newFakeClock()
	c := New("test", time.Millisecond, WithClock(clock.Now))
	c.Put("k", json.RawMessage(`1`))
	clock.Advance(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	c.StartJanitor(ctx, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
}

func TestSingleFlightCoalescesMisses(t *testing.T) {
	c := New("test", time.Minute, WithSingleFlight(true))

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (json.RawMessage, error) {
		calls.Add(1)
		<-release
		return json.RawMessage(`{"ok":true}`), nil
	}

	const callers = 8
	var wg sync.WaitGroup
	started := make(chan struct{}, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started <- struct{}{}
			data, _, err := c.Fetch(context.Background(), "same", load)
			assert.NoError(t, err)
			assert.JSONEq(t, `{"ok":true}`, string(data))
		}()
	}
	for i := 0; i < callers; i++ {
		<-started
	}
	// let the goroutines reach the flight before releasing it
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestPersistSwallowsErrors(t *testing.T) {
	called := false
	assert.NotPanics(t, func() {
		Persist(context.Background(), "mars_rover_cache", "curiosity", func(ctx context.Context) error {
			called = true
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			return errors.New("store offline")
		})
	})
	assert.True(t, called)
}

func TestPersistIgnoresCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	Persist(ctx, "apod_cache", "2024-01-01", func(ctx context.Context) error {
		assert.NoError(t, ctx.Err())
		return nil
	})
}
