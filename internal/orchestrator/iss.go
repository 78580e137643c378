package orchestrator

import (
	"context"
	"sync"
	"time"

	"go-space/internal/domain"
	"go-space/internal/logging"
)

// Default refresh cadences of the ISS view
const (
	DefaultPageInterval = 30 * time.Second
	DefaultMapInterval  = 3 * time.Second
)

// Freshness thresholds
const (
	LiveWithin   = 60 * time.Second
	RecentWithin = 300 * time.Second
)

// Freshness classifies how old the last position is
type Freshness int

const (
	FreshnessUnknown Freshness = iota
	FreshnessLive
	FreshnessRecent
	FreshnessStale
)

func (f Freshness) String() string {
	switch f {
	case FreshnessLive:
		return "Live"
	case FreshnessRecent:
		return "Recent"
	case FreshnessStale:
		return "Stale"
	default:
		return "Unknown"
	}
}

// FreshnessOf classifies an update made at last, seen at now. A zero last is Unknown.
func FreshnessOf(last, now time.Time) Freshness {
	if last.IsZero() {
		return FreshnessUnknown
	}
	age := now.Sub(last)
	switch {
	case age < LiveWithin:
		return FreshnessLive
	case age < RecentWithin:
		return FreshnessRecent
	default:
		return FreshnessStale
	}
}

// Phase is the tracker lifecycle
type Phase int

const (
	PhaseWaitingForFirstLoad Phase = iota
	PhasePolling
)

func (p Phase) String() string {
	if p == PhasePolling {
		return "polling"
	}
	return "waiting"
}

// Ticker is the part of time.Ticker the tracker uses
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a ticker firing every d
type TickerFactory func(d time.Duration) Ticker

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewRealTicker wraps time.NewTicker
func NewRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// PositionSink receives every new ISS position, e.g. a map widget
type PositionSink interface {
	UpdatePosition(pos domain.IssPosition)
}

// PositionSinkFunc adapts a function to PositionSink
type PositionSinkFunc func(pos domain.IssPosition)

// UpdatePosition calls f(pos)
func (f PositionSinkFunc) UpdatePosition(pos domain.IssPosition) { f(pos) }

// ISSState is a snapshot of the tracker
type ISSState struct {
	Phase      Phase
	Position   *domain.IssPosition
	LastUpdate time.Time
	Err        error
	Loading    bool
}

// ISSTracker polls the ISS position on two cadences: a page refresh that
// surfaces errors, and a faster map refresh that only runs once a first
// position has loaded.
type ISSTracker struct {
	api          API
	pageInterval time.Duration
	mapInterval  time.Duration
	newTicker    TickerFactory
	now          func() time.Time
	sink         PositionSink

	mu       sync.Mutex
	state    ISSState
	cancel   context.CancelFunc
	mapStop  context.CancelFunc
	started  bool
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// ISSOption configures an ISSTracker
type ISSOption func(*ISSTracker)

// WithIntervals overrides the page and map refresh cadences
func WithIntervals(page, mapEvery time.Duration) ISSOption {
	return func(t *ISSTracker) {
		if page > 0 {
			t.pageInterval = page
		}
		if mapEvery > 0 {
			t.mapInterval = mapEvery
		}
	}
}

// WithTickerFactory overrides how timers are created
func WithTickerFactory(f TickerFactory) ISSOption {
	return func(t *ISSTracker) { t.newTicker = f }
}

// WithISSClock overrides the clock used for update times
func WithISSClock(now func() time.Time) ISSOption {
	return func(t *ISSTracker) { t.now = now }
}

// WithSink registers the receiver of new positions
func WithSink(s PositionSink) ISSOption {
	return func(t *ISSTracker) { t.sink = s }
}

// NewISSTracker creates a tracker in the waiting phase
func NewISSTracker(api API, opts ...ISSOption) *ISSTracker {
	t := &ISSTracker{
		api:          api,
		pageInterval: DefaultPageInterval,
		mapInterval:  DefaultMapInterval,
		newTicker:    NewRealTicker,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start performs the first page refresh and starts the page timer
func (t *ISSTracker) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return
	}
	t.started = true

	ctx, t.cancel = context.WithCancel(ctx)
	t.wg.Add(1)
	go t.pageLoop(ctx)
}

// Stop cancels both timers and waits for their goroutines to exit
func (t *ISSTracker) Stop() {
	t.stopOnce.Do(func() {
		t.mu.Lock()
		if t.mapStop != nil {
			t.mapStop()
		}
		if t.cancel != nil {
			t.cancel()
		}
		t.mu.Unlock()
		t.wg.Wait()

		t.mu.Lock()
		t.state.Phase = PhaseWaitingForFirstLoad
		t.state.Loading = false
		t.mapStop = nil
		t.mu.Unlock()
	})
}

// State returns the current snapshot
func (t *ISSTracker) State() ISSState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Freshness classifies the age of the current position's own timestamp against now
func (t *ISSTracker) Freshness(now time.Time) Freshness {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Position == nil {
		return FreshnessUnknown
	}
	return FreshnessOf(t.state.Position.Time(), now)
}

func (t *ISSTracker) pageLoop(ctx context.Context) {
	defer t.wg.Done()
	ticker := t.newTicker(t.pageInterval)
	defer ticker.Stop()

	t.refreshPage(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			t.refreshPage(ctx)
		}
	}
}

func (t *ISSTracker) mapLoop(ctx context.Context) {
	defer t.wg.Done()
	ticker := t.newTicker(t.mapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			t.refreshMap(ctx)
		}
	}
}

// refreshPage updates position, status, last update and error
func (t *ISSTracker) refreshPage(ctx context.Context) {
	t.mu.Lock()
	t.state.Loading = true
	t.mu.Unlock()

	pos, err := t.api.ISSPosition(ctx)
	if ctx.Err() != nil {
		return
	}

	t.mu.Lock()
	t.state.Loading = false
	if err != nil {
		t.state.Err = err
		t.mu.Unlock()
		logging.Warn().Err(err).Msg("ISS page refresh failed")
		return
	}
	t.state.Err = nil
	t.state.Position = pos
	t.state.LastUpdate = t.now()
	if t.state.Phase == PhaseWaitingForFirstLoad {
		t.state.Phase = PhasePolling
		var mapCtx context.Context
		mapCtx, t.mapStop = context.WithCancel(ctx)
		t.wg.Add(1)
		go t.mapLoop(mapCtx)
	}
	t.mu.Unlock()

	t.publish(*pos)
}

// refreshMap updates position and last update only; errors are logged
func (t *ISSTracker) refreshMap(ctx context.Context) {
	pos, err := t.api.ISSPosition(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		logging.Debug().Err(err).Msg("ISS map refresh failed")
		return
	}

	t.mu.Lock()
	t.state.Position = pos
	t.state.LastUpdate = t.now()
	t.mu.Unlock()

	t.publish(*pos)
}

func (t *ISSTracker) publish(pos domain.IssPosition) {
	if t.sink != nil {
		t.sink.UpdatePosition(pos)
	}
}
