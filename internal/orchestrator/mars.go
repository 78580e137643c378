package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go-space/internal/domain"
	"go-space/internal/logging"
)

// Status is the photo slot state of a browsing session
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusLoaded
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusErrored:
		return "errored"
	default:
		return "idle"
	}
}

// Filter errors
var (
	ErrUnknownRover   = errors.New("unknown rover")
	ErrRoverDisabled  = errors.New("rover is not available")
	ErrDateOutOfRange = errors.New("date is outside the mission")
)

// FilterState is the current rover, date, camera and page selection
type FilterState struct {
	Rover  string
	Date   string
	Camera string
	Page   int
}

// MarsView is a consistent snapshot of a browsing session
type MarsView struct {
	Filter     FilterState
	Status     Status
	Photos     []domain.MarsPhoto
	Message    string
	Empty      bool
	RetryAfter string
	Manifest   *domain.PhotoManifest
	Cameras    []string
	Suggested  []string
}

// PageItems returns the photos on the current page
func (v MarsView) PageItems() []domain.MarsPhoto {
	return Paginate(v.Photos, v.Filter.Page, PageSize)
}

// TotalPages returns the page count of the current photo set
func (v MarsView) TotalPages() int {
	return TotalPages(len(v.Photos), PageSize)
}

// generations tracks the latest request issued per slot
type generations struct {
	photos   uint64
	manifest uint64
	cameras  uint64
}

// MarsBrowser is one photo browsing session.
// Each filter change issues fresh fetches; responses that arrive after a newer
// request for the same slot are discarded.
type MarsBrowser struct {
	api      API
	now      func() time.Time
	onChange func(MarsView)

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	wg      sync.WaitGroup

	filter     FilterState
	status     Status
	photos     []domain.MarsPhoto
	message    string
	empty      bool
	retryAfter string
	manifest   *domain.PhotoManifest
	cameras    []string
	gen        generations
}

// MarsOption configures a MarsBrowser
type MarsOption func(*MarsBrowser)

// WithMarsClock overrides the clock used for mission bounds
func WithMarsClock(now func() time.Time) MarsOption {
	return func(b *MarsBrowser) { b.now = now }
}

// OnMarsChange registers a callback that receives every new view
func OnMarsChange(fn func(MarsView)) MarsOption {
	return func(b *MarsBrowser) { b.onChange = fn }
}

// NewMarsBrowser creates a session positioned on the default rover and date
func NewMarsBrowser(api API, opts ...MarsOption) *MarsBrowser {
	b := &MarsBrowser{api: api, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	b.filter = defaultFilter()
	return b
}

func defaultFilter() FilterState {
	r := domain.Rovers[domain.DefaultRover]
	return FilterState{Rover: r.Key, Date: r.DefaultDate, Page: 1}
}

// Start issues the initial photo, manifest and camera fetches
func (b *MarsBrowser) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.ctx, b.cancel = context.WithCancel(ctx)
	b.started = true
	b.loadPhotosLocked()
	b.loadManifestLocked()
	b.loadCamerasLocked()
	view := b.viewLocked()
	b.mu.Unlock()
	b.notify(view)
}

// Close cancels outstanding fetches and waits for them.
// Later filter changes only update local state.
func (b *MarsBrowser) Close() {
	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
	}
	b.started = false
	b.mu.Unlock()
	b.wg.Wait()
}

// Wait blocks until every issued fetch has settled
func (b *MarsBrowser) Wait() {
	b.wg.Wait()
}

// View returns the current snapshot
func (b *MarsBrowser) View() MarsView {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.viewLocked()
}

// SetRover switches rover, resetting date, camera and page
func (b *MarsBrowser) SetRover(rover string) error {
	info, ok := domain.LookupRover(rover)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRover, rover)
	}
	if info.Disabled {
		return fmt.Errorf("%w: %s", ErrRoverDisabled, info.Name)
	}

	b.update(func() {
		b.filter = FilterState{Rover: info.Key, Date: info.DefaultDate, Page: 1}
		b.manifest = nil
		b.cameras = nil
		b.loadPhotosLocked()
		b.loadManifestLocked()
		b.loadCamerasLocked()
	})
	return nil
}

// SetDate switches the earth date, clearing the camera filter
func (b *MarsBrowser) SetDate(date string) error {
	b.mu.Lock()
	err := b.checkDateLocked(date)
	b.mu.Unlock()
	if err != nil {
		return err
	}

	b.update(func() {
		b.filter.Date = date
		b.filter.Camera = ""
		b.filter.Page = 1
		b.cameras = nil
		b.loadPhotosLocked()
		b.loadCamerasLocked()
	})
	return nil
}

// SelectSuggestedDate jumps to one of the suggested dates
func (b *MarsBrowser) SelectSuggestedDate(date string) error {
	return b.SetDate(date)
}

// SetCamera filters by camera. Empty means all cameras.
func (b *MarsBrowser) SetCamera(camera string) {
	b.update(func() {
		b.filter.Camera = camera
		b.filter.Page = 1
		b.loadPhotosLocked()
	})
}

// Retry reissues the photo fetch for the current filter
func (b *MarsBrowser) Retry() {
	b.update(b.loadPhotosLocked)
}

// ResetToDefault returns to the default rover and date with no camera
func (b *MarsBrowser) ResetToDefault() {
	b.update(func() {
		roverChanged := b.filter.Rover != domain.DefaultRover
		b.filter = defaultFilter()
		b.cameras = nil
		b.loadPhotosLocked()
		b.loadCamerasLocked()
		if roverChanged || b.manifest == nil {
			b.manifest = nil
			b.loadManifestLocked()
		}
	})
}

// NextPage advances one page, stopping at the last
func (b *MarsBrowser) NextPage() {
	b.update(func() {
		if HasNext(b.filter.Page, TotalPages(len(b.photos), PageSize)) {
			b.filter.Page++
		}
	})
}

// PrevPage goes back one page, stopping at the first
func (b *MarsBrowser) PrevPage() {
	b.update(func() {
		if HasPrev(b.filter.Page) {
			b.filter.Page--
		}
	})
}

// DateRange returns the mission bounds of the current rover as YYYY-MM-DD.
// Active missions end today.
func (b *MarsBrowser) DateRange() (start, end string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dateRangeLocked()
}

func (b *MarsBrowser) dateRangeLocked() (string, string) {
	info := domain.Rovers[b.filter.Rover]
	end := info.MissionEndDate
	if end == "" {
		end = b.now().UTC().Format(time.DateOnly)
	}
	return info.MissionStartDate, end
}

func (b *MarsBrowser) checkDateLocked(date string) error {
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", date)
	}
	start, end := b.dateRangeLocked()
	if date < start || date > end {
		return fmt.Errorf("%w: %s not in %s..%s", ErrDateOutOfRange, date, start, end)
	}
	return nil
}

func (b *MarsBrowser) update(fn func()) {
	b.mu.Lock()
	fn()
	view := b.viewLocked()
	b.mu.Unlock()
	b.notify(view)
}

func (b *MarsBrowser) notify(view MarsView) {
	if b.onChange != nil {
		b.onChange(view)
	}
}

func (b *MarsBrowser) viewLocked() MarsView {
	return MarsView{
		Filter:     b.filter,
		Status:     b.status,
		Photos:     b.photos,
		Message:    b.message,
		Empty:      b.empty,
		RetryAfter: b.retryAfter,
		Manifest:   b.manifest,
		Cameras:    append([]string(nil), b.cameras...),
		Suggested:  SuggestedDates(b.manifest, SuggestedCount),
	}
}

// spawnLocked runs fn in a tracked goroutine once the session has started
func (b *MarsBrowser) spawnLocked(fn func(ctx context.Context)) {
	if !b.started {
		return
	}
	ctx := b.ctx
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		fn(ctx)
	}()
}

func (b *MarsBrowser) loadPhotosLocked() {
	if !b.started {
		return
	}
	b.gen.photos++
	gen := b.gen.photos
	f := b.filter
	b.status = StatusLoading
	b.message = ""
	b.empty = false
	b.retryAfter = ""

	b.spawnLocked(func(ctx context.Context) {
		photos, err := b.api.MarsPhotos(ctx, f.Rover, f.Date, f.Camera)

		b.mu.Lock()
		if gen != b.gen.photos || ctx.Err() != nil {
			b.mu.Unlock()
			return
		}
		b.photos = nil
		switch {
		case err != nil:
			b.status = StatusErrored
			b.message, b.retryAfter = photoErrorMessage(err)
		case len(photos) == 0:
			b.status = StatusErrored
			b.empty = true
			b.message = fmt.Sprintf("No images found for %s on %s. Try a different date.", domain.Rovers[f.Rover].Name, f.Date)
		default:
			b.status = StatusLoaded
			b.photos = photos
		}
		view := b.viewLocked()
		b.mu.Unlock()
		b.notify(view)
	})
}

func photoErrorMessage(err error) (string, string) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.RateLimited() {
		retry := apiErr.RetryAfter
		if retry == "" {
			retry = domain.DefaultRetryAfter
		}
		return fmt.Sprintf("NASA API rate limit exceeded. Please wait %s seconds and try again. (%s)", retry, apiErr.Error()), retry
	}
	return "Unable to load Mars Rover data: " + err.Error(), ""
}

func (b *MarsBrowser) loadManifestLocked() {
	if !b.started {
		return
	}
	b.gen.manifest++
	gen := b.gen.manifest
	rover := b.filter.Rover

	b.spawnLocked(func(ctx context.Context) {
		m, err := b.api.MarsManifest(ctx, rover)
		if err != nil {
			logging.Debug().Err(err).Str("rover", rover).Msg("manifest unavailable")
		}

		b.mu.Lock()
		if gen != b.gen.manifest || ctx.Err() != nil {
			b.mu.Unlock()
			return
		}
		b.manifest = m
		view := b.viewLocked()
		b.mu.Unlock()
		b.notify(view)
	})
}

// loadCamerasLocked lists the cameras with photos on the current date, ignoring the camera filter
func (b *MarsBrowser) loadCamerasLocked() {
	if !b.started {
		return
	}
	b.gen.cameras++
	gen := b.gen.cameras
	f := b.filter

	b.spawnLocked(func(ctx context.Context) {
		photos, err := b.api.MarsPhotos(ctx, f.Rover, f.Date, "")

		b.mu.Lock()
		if gen != b.gen.cameras || ctx.Err() != nil {
			b.mu.Unlock()
			return
		}
		b.cameras = nil
		if err == nil {
			b.cameras = uniqueCameras(photos)
		}
		view := b.viewLocked()
		b.mu.Unlock()
		b.notify(view)
	})
}

func uniqueCameras(photos []domain.MarsPhoto) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range photos {
		name := p.Camera.Name
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
