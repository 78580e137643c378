package clients

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go-space/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNasa(t *testing.T, handler http.HandlerFunc) (*NasaClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewNasaClient(NasaOptions{BaseURL: srv.URL, APIKey: "test-key", Timeout: 5 * time.Second}), srv
}

func TestFetchMarsPhotosBuildsURL(t *testing.T) {
	var gotPath, gotQuery string
	c, _ := newNasa(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"photos":[]}`))
	})

	data, err := c.FetchMarsPhotos(context.Background(), domain.MarsQuery{Rover: "Curiosity", EarthDate: "2012-08-08", Camera: "MAST"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"photos":[]}`, string(data))
	assert.Equal(t, "/mars-photos/api/v1/rovers/curiosity/photos", gotPath)
	assert.Contains(t, gotQuery, "earth_date=2012-08-08")
	assert.Contains(t, gotQuery, "camera=MAST")
	assert.Contains(t, gotQuery, "api_key=test-key")
}

func TestFetchMarsPhotosBySol(t *testing.T) {
	var gotQuery string
	c, _ := newNasa(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"photos":[{"id":1}]}`))
	})

	sol := 1000
	_, err := c.FetchMarsPhotos(context.Background(), domain.MarsQuery{Rover: "curiosity", Sol: &sol})
	require.NoError(t, err)
	assert.Contains(t, gotQuery, "sol=1000")
	assert.NotContains(t, gotQuery, "earth_date")
	assert.NotContains(t, gotQuery, "camera")
}

func TestRateLimitIsDistinguished(t *testing.T) {
	c, _ := newNasa(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":"OVER_RATE_LIMIT"}}`))
	})

	_, err := c.FetchMarsManifest(context.Background(), "curiosity")
	require.Error(t, err)

	up, ok := domain.RateLimit(err)
	require.True(t, ok)
	assert.Equal(t, "120", up.RetryAfter)
	assert.Equal(t, http.StatusTooManyRequests, up.Status)
}

func TestNon2xxCarriesStatus(t *testing.T) {
	c, _ := newNasa(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("bad gateway"))
	})

	_, err := c.FetchAPOD(context.Background())
	var up *domain.UpstreamError
	require.ErrorAs(t, err, &up)
	assert.Equal(t, http.StatusBadGateway, up.Status)
	assert.Equal(t, "bad gateway", up.Body)
	_, limited := domain.RateLimit(err)
	assert.False(t, limited)
}

func TestShapeErrors(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		call  func(c *NasaClient) error
		field string
	}{
		{"neo missing objects", `{"element_count":2}`, func(c *NasaClient) error {
			_, err := c.FetchNeoFeed(context.Background(), "2024-01-01", "2024-01-01")
			return err
		}, "near_earth_objects"},
		{"mars missing photos", `{"errors":"nope"}`, func(c *NasaClient) error {
			_, err := c.FetchMarsPhotos(context.Background(), domain.MarsQuery{Rover: "curiosity", EarthDate: "2012-08-08"})
			return err
		}, "photos"},
		{"manifest missing", `{}`, func(c *NasaClient) error {
			_, err := c.FetchMarsManifest(context.Background(), "curiosity")
			return err
		}, "photo_manifest"},
		{"apod missing title", `{"date":"2024-01-01"}`, func(c *NasaClient) error {
			_, err := c.FetchAPOD(context.Background())
			return err
		}, "title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newNasa(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			err := tt.call(c)
			var shape *domain.ShapeError
			require.ErrorAs(t, err, &shape)
			assert.Equal(t, tt.field, shape.Field)
		})
	}
}

func TestNeoZeroCountIsValid(t *testing.T) {
	c, _ := newNasa(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"element_count":0,"near_earth_objects":{}}`))
	})
	_, err := c.FetchNeoFeed(context.Background(), "2024-01-01", "2024-01-02")
	assert.NoError(t, err)
}

func TestFetchPosition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"success","timestamp":1700000000,"iss_position":{"latitude":"-12.5","longitude":"45.25"}}`))
	}))
	defer srv.Close()

	pos, err := NewIssClient(srv.URL, time.Second).FetchPosition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, -12.5, pos.Latitude)
	assert.Equal(t, 45.25, pos.Longitude)
	assert.Equal(t, float64(408), pos.Altitude)
	assert.Equal(t, 7.66, pos.Velocity)
	assert.Equal(t, int64(1700000000), pos.Timestamp)
	assert.Equal(t, "day", pos.Visibility)
}

func TestFetchPositionMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"success","timestamp":1700000000}`))
	}))
	defer srv.Close()

	_, err := NewIssClient(srv.URL, time.Second).FetchPosition(context.Background())
	var shape *domain.ShapeError
	require.ErrorAs(t, err, &shape)
	assert.Equal(t, "iss_position", shape.Field)
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	c, _ := newNasa(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	for i := 0; i < 5; i++ {
		_, err := c.FetchAPOD(context.Background())
		require.Error(t, err)
	}
	require.Equal(t, int32(5), hits.Load())

	_, err := c.FetchAPOD(context.Background())
	var up *domain.UpstreamError
	require.ErrorAs(t, err, &up)
	assert.Equal(t, http.StatusServiceUnavailable, up.Status)
	assert.Equal(t, int32(5), hits.Load(), "open breaker must not reach the provider")
}

func TestBreakerIgnoresRateLimits(t *testing.T) {
	var hits atomic.Int32
	c, _ := newNasa(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	for i := 0; i < 8; i++ {
		_, err := c.FetchAPOD(context.Background())
		_, limited := domain.RateLimit(err)
		require.True(t, limited)
	}
	assert.Equal(t, int32(8), hits.Load())
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := NewIssClient(srv.URL, time.Second).FetchPosition(context.Background())
	var up *domain.UpstreamError
	require.ErrorAs(t, err, &up)
	assert.Equal(t, 0, up.Status)
	assert.False(t, errors.Is(err, context.Canceled))
}

func TestLimiterHonoursContext(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"photo_manifest":{"name":"Curiosity","photos":[]}}`))
	}))
	defer srv.Close()

	c := NewNasaClient(NasaOptions{BaseURL: srv.URL, APIKey: "k", Timeout: time.Second, RatePerSecond: 0.01, RateBurst: 1})

	_, err := c.FetchMarsManifest(context.Background(), "curiosity")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.FetchMarsManifest(ctx, "curiosity")
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}
