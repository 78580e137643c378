// Package services provides business logic
package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go-space/internal/cache"
	"go-space/internal/domain"
	"go-space/internal/logging"
	"go-space/internal/repo"

	"github.com/goccy/go-json"
)

// Configuration error messages
const (
	MsgNasaKeyMissing = "NASA API key not configured"
	MsgStoreMissing   = "Persistence store not configured"
)

// Validation error messages
const (
	MsgRoverRequired    = "Rover parameter is required"
	MsgDateOrSolMissing = "Either earth_date or sol parameter is required"
)

// NasaAPI is the subset of the NASA client used by the services
type NasaAPI interface {
	HasKey() bool
	FetchAPOD(ctx context.Context) (json.RawMessage, error)
	FetchNeoFeed(ctx context.Context, start, end string) (json.RawMessage, error)
	FetchMarsPhotos(ctx context.Context, q domain.MarsQuery) (json.RawMessage, error)
	FetchMarsManifest(ctx context.Context, rover string) (json.RawMessage, error)
}

// IssAPI fetches the current ISS position
type IssAPI interface {
	FetchPosition(ctx context.Context) (*domain.IssPosition, error)
}

// ApodService serves the astronomy picture of the day
type ApodService struct {
	nasa  NasaAPI
	store repo.Store
}

// NewApodService creates a new APOD service. store may be nil.
func NewApodService(nasa NasaAPI, store repo.Store) *ApodService {
	return &ApodService{nasa: nasa, store: store}
}

// Get fetches today's picture and mirrors it into the store
func (s *ApodService) Get(ctx context.Context) (json.RawMessage, error) {
	if !s.nasa.HasKey() {
		return nil, domain.NewConfigurationError(MsgNasaKeyMissing)
	}
	if s.store == nil {
		return nil, domain.NewConfigurationError(MsgStoreMissing)
	}

	data, err := s.nasa.FetchAPOD(ctx)
	if err != nil {
		return nil, err
	}

	var apod domain.Apod
	if err := json.Unmarshal(data, &apod); err != nil {
		return nil, &domain.ShapeError{Provider: "APOD", Field: "date"}
	}
	cache.Persist(ctx, repo.TableApod, apod.Date, func(ctx context.Context) error {
		return s.store.UpsertApod(ctx, apod, data)
	})
	return data, nil
}

// NeoService serves the near-earth object feed
type NeoService struct {
	nasa  NasaAPI
	store repo.Store
	now   func() time.Time
}

// NewNeoService creates a new NEO service. store may be nil.
func NewNeoService(nasa NasaAPI, store repo.Store) *NeoService {
	return &NeoService{nasa: nasa, store: store, now: time.Now}
}

// Feed fetches objects between start and end. Empty start means today, empty end means start.
func (s *NeoService) Feed(ctx context.Context, start, end string) (json.RawMessage, error) {
	if !s.nasa.HasKey() {
		return nil, domain.NewConfigurationError(MsgNasaKeyMissing)
	}
	if s.store == nil {
		return nil, domain.NewConfigurationError(MsgStoreMissing)
	}

	if start == "" {
		start = s.now().UTC().Format(time.DateOnly)
	}
	if end == "" {
		end = start
	}

	data, err := s.nasa.FetchNeoFeed(ctx, start, end)
	if err != nil {
		return nil, err
	}
	cache.Persist(ctx, repo.TableNeo, start, func(ctx context.Context) error {
		return s.store.UpsertNeo(ctx, start, data)
	})
	return data, nil
}

// IssService serves the current ISS position
type IssService struct {
	client IssAPI
	store  repo.Store
}

// NewIssService creates a new ISS service. store may be nil.
func NewIssService(client IssAPI, store repo.Store) *IssService {
	return &IssService{client: client, store: store}
}

// Current fetches the position and mirrors it when a store is configured
func (s *IssService) Current(ctx context.Context) (*domain.IssPosition, error) {
	pos, err := s.client.FetchPosition(ctx)
	if err != nil {
		return nil, err
	}
	if s.store != nil {
		cache.Persist(ctx, repo.TableIss, strconv.FormatInt(pos.Timestamp, 10), func(ctx context.Context) error {
			return s.store.UpsertIss(ctx, *pos)
		})
	}
	return pos, nil
}

// MarsService serves rover photos and mission manifests through the response cache
type MarsService struct {
	nasa      NasaAPI
	store     repo.Store
	photos    *cache.Cache
	manifests *cache.Cache
}

// NewMarsService creates a new Mars service. store may be nil.
func NewMarsService(nasa NasaAPI, store repo.Store, photos, manifests *cache.Cache) *MarsService {
	return &MarsService{nasa: nasa, store: store, photos: photos, manifests: manifests}
}

// PhotosKey composes the cache key of a photo query
func PhotosKey(q domain.MarsQuery) string {
	sol := ""
	if q.Sol != nil {
		sol = strconv.Itoa(*q.Sol)
	}
	return cache.Key("mars", strings.ToLower(q.Rover), q.EarthDate, sol, q.Camera)
}

// Photos returns the photos for a query and whether they came from the cache
func (s *MarsService) Photos(ctx context.Context, q domain.MarsQuery) (json.RawMessage, bool, error) {
	if q.Rover == "" {
		return nil, false, domain.NewValidationError(MsgRoverRequired)
	}
	if q.EarthDate == "" && q.Sol == nil {
		return nil, false, domain.NewValidationError(MsgDateOrSolMissing)
	}
	if !s.nasa.HasKey() {
		return nil, false, domain.NewConfigurationError(MsgNasaKeyMissing)
	}

	loaded := false
	data, hit, err := s.photos.Fetch(ctx, PhotosKey(q), func(ctx context.Context) (json.RawMessage, error) {
		loaded = true
		return s.nasa.FetchMarsPhotos(ctx, q)
	})
	if err != nil {
		return nil, false, err
	}

	if loaded && s.store != nil {
		var resp struct {
			Photos []json.RawMessage `json:"photos"`
		}
		_ = json.Unmarshal(data, &resp)
		cache.Persist(ctx, repo.TableMars, repo.MarsNaturalKey(q), func(ctx context.Context) error {
			return s.store.UpsertMarsPhotos(ctx, q, len(resp.Photos), data)
		})
	}
	return data, hit, nil
}

// Manifest returns the mission manifest of a rover
func (s *MarsService) Manifest(ctx context.Context, rover string) (json.RawMessage, error) {
	if rover == "" {
		return nil, domain.NewValidationError(MsgRoverRequired)
	}
	if !s.nasa.HasKey() {
		return nil, domain.NewConfigurationError(MsgNasaKeyMissing)
	}

	loaded := false
	data, _, err := s.manifests.Fetch(ctx, cache.Key("manifest", strings.ToLower(rover)), func(ctx context.Context) (json.RawMessage, error) {
		loaded = true
		return s.nasa.FetchMarsManifest(ctx, rover)
	})
	if err != nil {
		return nil, err
	}

	if loaded && s.store != nil {
		cache.Persist(ctx, repo.TableManifest, strings.ToLower(rover), func(ctx context.Context) error {
			return s.store.UpsertMarsManifest(ctx, rover, data)
		})
	}
	return data, nil
}

// Diagnostic fetch parameters
const (
	DiagnosticRover = "curiosity"
	DiagnosticDate  = "2012-08-08"
)

// DiagnosticService checks NASA connectivity end to end
type DiagnosticService struct {
	nasa NasaAPI
}

// NewDiagnosticService creates a new diagnostic service
func NewDiagnosticService(nasa NasaAPI) *DiagnosticService {
	return &DiagnosticService{nasa: nasa}
}

// Run fetches APOD and a known Mars photo set, bypassing caches and the store
func (s *DiagnosticService) Run(ctx context.Context) (*domain.DiagnosticReport, error) {
	if !s.nasa.HasKey() {
		return nil, domain.NewConfigurationError(MsgNasaKeyMissing)
	}
	logging.Ctx(ctx).Info().Msg("running NASA connectivity check")

	apodData, err := s.nasa.FetchAPOD(ctx)
	if err != nil {
		return nil, err
	}
	var apod domain.Apod
	if err := json.Unmarshal(apodData, &apod); err != nil {
		return nil, err
	}

	marsData, err := s.nasa.FetchMarsPhotos(ctx, domain.MarsQuery{Rover: DiagnosticRover, EarthDate: DiagnosticDate})
	if err != nil {
		return nil, err
	}
	var mars domain.MarsPhotosResponse
	if err := json.Unmarshal(marsData, &mars); err != nil {
		return nil, err
	}

	report := &domain.DiagnosticReport{Success: true}
	report.Apod.Title = apod.Title
	report.Apod.Date = apod.Date
	report.Mars.Rover = DiagnosticRover
	report.Mars.Date = DiagnosticDate
	report.Mars.PhotoCount = len(mars.Photos)
	if len(mars.Photos) > 0 {
		src := mars.Photos[0].ImgSrc
		report.Mars.SamplePhoto = &src
	}

	logging.Ctx(ctx).Info().
		Str("apod_date", apod.Date).
		Int("photo_count", len(mars.Photos)).
		Msg("NASA connectivity check passed")
	return report, nil
}
