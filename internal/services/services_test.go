package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go-space/internal/cache"
	"go-space/internal/domain"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNasa struct {
	key       bool
	apod      json.RawMessage
	neo       json.RawMessage
	photos    json.RawMessage
	manifest  json.RawMessage
	err       error
	calls     atomic.Int32
	lastStart string
	lastEnd   string
}

func (f *fakeNasa) HasKey() bool { return f.key }

func (f *fakeNasa) FetchAPOD(context.Context) (json.RawMessage, error) {
	f.calls.Add(1)
	return f.apod, f.err
}

func (f *fakeNasa) FetchNeoFeed(_ context.Context, start, end string) (json.RawMessage, error) {
	f.calls.Add(1)
	f.lastStart, f.lastEnd = start, end
	return f.neo, f.err
}

func (f *fakeNasa) FetchMarsPhotos(context.Context, domain.MarsQuery) (json.RawMessage, error) {
	f.calls.Add(1)
	return f.photos, f.err
}

func (f *fakeNasa) FetchMarsManifest(context.Context, string) (json.RawMessage, error) {
	f.calls.Add(1)
	return f.manifest, f.err
}

type fakeStore struct {
	mu     sync.Mutex
	err    error
	writes map[string]int
}

func newFakeStore(err error) *fakeStore {
	return &fakeStore{err: err, writes: map[string]int{}}
}

func (s *fakeStore) record(table string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes[table]++
	return s.err
}

func (s *fakeStore) UpsertApod(context.Context, domain.Apod, json.RawMessage) error {
	return s.record("apod")
}

func (s *fakeStore) UpsertNeo(context.Context, string, json.RawMessage) error {
	return s.record("neo")
}

func (s *fakeStore) UpsertIss(context.Context, domain.IssPosition) error {
	return s.record("iss")
}

func (s *fakeStore) UpsertMarsPhotos(context.Context, domain.MarsQuery, int, json.RawMessage) error {
	return s.record("mars")
}

func (s *fakeStore) UpsertMarsManifest(context.Context, string, json.RawMessage) error {
	return s.record("manifest")
}

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) count(table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[table]
}

type fakeIss struct {
	pos *domain.IssPosition
	err error
}

func (f fakeIss) FetchPosition(context.Context) (*domain.IssPosition, error) { return f.pos, f.err }

func newMars(nasa NasaAPI, store *fakeStore) *MarsService {
	var s *MarsService
	if store == nil {
		s = NewMarsService(nasa, nil, cache.New("mars", 10*time.Minute), cache.New("manifest", time.Hour))
	} else {
		s = NewMarsService(nasa, store, cache.New("mars", 10*time.Minute), cache.New("manifest", time.Hour))
	}
	return s
}

func TestMarsPhotosValidatesBeforeNetwork(t *testing.T) {
	nasa := &fakeNasa{key: true, photos: json.RawMessage(`{"photos":[]}`)}
	svc := newMars(nasa, nil)

	_, _, err := svc.Photos(context.Background(), domain.MarsQuery{EarthDate: "2012-08-08"})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, MsgRoverRequired, ve.Message)

	_, _, err = svc.Photos(context.Background(), domain.MarsQuery{Rover: "curiosity"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, MsgDateOrSolMissing, ve.Message)

	assert.Zero(t, nasa.calls.Load())
}

func TestMarsPhotosRequiresKey(t *testing.T) {
	nasa := &fakeNasa{}
	_, _, err := newMars(nasa, nil).Photos(context.Background(), domain.MarsQuery{Rover: "curiosity", EarthDate: "2012-08-08"})

	var ce *domain.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, MsgNasaKeyMissing, ce.Message)
	assert.Zero(t, nasa.calls.Load())
}

func TestMarsPhotosCachedWithinTTL(t *testing.T) {
	nasa := &fakeNasa{key: true, photos: json.RawMessage(`{"photos":[{"id":1}]}`)}
	store := newFakeStore(nil)
	svc := newMars(nasa, store)
	q := domain.MarsQuery{Rover: "curiosity", EarthDate: "2012-08-08"}

	first, hit, err := svc.Photos(context.Background(), q)
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := svc.Photos(context.Background(), q)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.JSONEq(t, string(first), string(second))

	assert.Equal(t, int32(1), nasa.calls.Load())
	assert.Equal(t, 1, store.count("mars"), "only upstream results are persisted")

	q.Camera = "MAST"
	_, hit, err = svc.Photos(context.Background(), q)
	require.NoError(t, err)
	assert.False(t, hit, "camera is part of the key")
	assert.Equal(t, int32(2), nasa.calls.Load())
}

func TestMarsPhotosRateLimitPassesThrough(t *testing.T) {
	nasa := &fakeNasa{key: true, err: &domain.UpstreamError{Provider: "NASA", Status: 429, RetryAfter: "30"}}
	svc := newMars(nasa, nil)
	q := domain.MarsQuery{Rover: "curiosity", EarthDate: "2012-08-08"}

	_, _, err := svc.Photos(context.Background(), q)
	up, ok := domain.RateLimit(err)
	require.True(t, ok)
	assert.Equal(t, "30", up.RetryAfter)

	// failures are not cached
	nasa.err = nil
	nasa.photos = json.RawMessage(`{"photos":[]}`)
	_, hit, err := svc.Photos(context.Background(), q)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestPersistFailureDoesNotChangeResult(t *testing.T) {
	q := domain.MarsQuery{Rover: "curiosity", EarthDate: "2012-08-08"}
	payload := json.RawMessage(`{"photos":[{"id":7}]}`)

	ok, _, errOK := newMars(&fakeNasa{key: true, photos: payload}, newFakeStore(nil)).Photos(context.Background(), q)
	bad, _, errBad := newMars(&fakeNasa{key: true, photos: payload}, newFakeStore(errors.New("store offline"))).Photos(context.Background(), q)

	require.NoError(t, errOK)
	require.NoError(t, errBad)
	assert.Equal(t, string(ok), string(bad))
}

func TestManifestCached(t *testing.T) {
	nasa := &fakeNasa{key: true, manifest: json.RawMessage(`{"photo_manifest":{"name":"Curiosity"}}`)}
	store := newFakeStore(nil)
	svc := newMars(nasa, store)

	_, err := svc.Manifest(context.Background(), "Curiosity")
	require.NoError(t, err)
	_, err = svc.Manifest(context.Background(), "curiosity")
	require.NoError(t, err)

	assert.Equal(t, int32(1), nasa.calls.Load())
	assert.Equal(t, 1, store.count("manifest"))

	_, err = svc.Manifest(context.Background(), "")
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestApodRequiresStore(t *testing.T) {
	nasa := &fakeNasa{key: true, apod: json.RawMessage(`{"date":"2024-01-01","title":"T"}`)}

	_, err := NewApodService(nasa, nil).Get(context.Background())
	var ce *domain.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, MsgStoreMissing, ce.Message)
	assert.Zero(t, nasa.calls.Load())

	store := newFakeStore(errors.New("store offline"))
	data, err := NewApodService(nasa, store).Get(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2024-01-01","title":"T"}`, string(data))
	assert.Equal(t, 1, store.count("apod"))
}

func TestNeoDefaultsDates(t *testing.T) {
	nasa := &fakeNasa{key: true, neo: json.RawMessage(`{"element_count":0,"near_earth_objects":{}}`)}
	svc := NewNeoService(nasa, newFakeStore(nil))
	svc.now = func() time.Time { return time.Date(2024, 5, 6, 23, 0, 0, 0, time.UTC) }

	_, err := svc.Feed(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-06", nasa.lastStart)
	assert.Equal(t, "2024-05-06", nasa.lastEnd)

	_, err = svc.Feed(context.Background(), "2024-01-01", "")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", nasa.lastEnd)
}

func TestIssPersistenceOptional(t *testing.T) {
	pos := &domain.IssPosition{Latitude: 1, Longitude: 2, Altitude: domain.IssAltitudeKm, Velocity: domain.IssVelocityKmS, Timestamp: 1700000000, Visibility: domain.IssVisibilityDay}

	got, err := NewIssService(fakeIss{pos: pos}, nil).Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pos, got)

	store := newFakeStore(errors.New("down"))
	got, err = NewIssService(fakeIss{pos: pos}, store).Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pos, got)
	assert.Equal(t, 1, store.count("iss"))
}

func TestDiagnostic(t *testing.T) {
	nasa := &fakeNasa{
		key:    true,
		apod:   json.RawMessage(`{"date":"2024-01-01","title":"Nebula"}`),
		photos: json.RawMessage(`{"photos":[{"id":1,"img_src":"https://mars/1.jpg"},{"id":2}]}`),
	}
	report, err := NewDiagnosticService(nasa).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.Equal(t, "Nebula", report.Apod.Title)
	assert.Equal(t, DiagnosticRover, report.Mars.Rover)
	assert.Equal(t, 2, report.Mars.PhotoCount)
	require.NotNil(t, report.Mars.SamplePhoto)
	assert.Equal(t, "https://mars/1.jpg", *report.Mars.SamplePhoto)
}

func TestPhotosKeyDistinguishesSolAndDate(t *testing.T) {
	sol := 10
	assert.NotEqual(t,
		PhotosKey(domain.MarsQuery{Rover: "curiosity", Sol: &sol}),
		PhotosKey(domain.MarsQuery{Rover: "curiosity", EarthDate: "10"}))
	assert.Equal(t,
		PhotosKey(domain.MarsQuery{Rover: "Curiosity", EarthDate: "2012-08-08"}),
		PhotosKey(domain.MarsQuery{Rover: "curiosity", EarthDate: "2012-08-08"}))
}
