// Package clients provides HTTP clients for external APIs
package clients

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go-space/internal/domain"
	"go-space/internal/metrics"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

const userAgent = "go-space-service/1.0"

// maxErrorBody bounds how much of a failed response is kept for diagnostics
const maxErrorBody = 2048

// HTTPClient is a wrapper around http.Client with common configuration
type HTTPClient struct {
	client   *http.Client
	provider string
}

// NewHTTPClient creates a new HTTP client with timeout
func NewHTTPClient(provider string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		client:   &http.Client{Timeout: timeout},
		provider: provider,
	}
}

// Get performs a GET request and returns the response body.
// Non-2xx responses and transport failures are returned as *domain.UpstreamError.
func (c *HTTPClient) Get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &domain.UpstreamError{Provider: c.provider, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(c.provider, "transport_error").Inc()
		return nil, &domain.UpstreamError{Provider: c.provider, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(c.provider, "transport_error").Inc()
		return nil, &domain.UpstreamError{Provider: c.provider, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.UpstreamRequests.WithLabelValues(c.provider, strconv.Itoa(resp.StatusCode)).Inc()
		upErr := &domain.UpstreamError{
			Provider: c.provider,
			Status:   resp.StatusCode,
			Body:     truncate(string(body), maxErrorBody),
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			upErr.RetryAfter = resp.Header.Get("Retry-After")
		}
		return nil, upErr
	}

	metrics.UpstreamRequests.WithLabelValues(c.provider, "ok").Inc()
	return body, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// IssClient fetches ISS position data
type IssClient struct {
	http    *HTTPClient
	breaker *Breaker
	baseURL string
}

// NewIssClient creates a new ISS client
func NewIssClient(baseURL string, timeout time.Duration) *IssClient {
	return &IssClient{
		http:    NewHTTPClient("ISS", timeout),
		breaker: NewBreaker("iss-api"),
		baseURL: baseURL,
	}
}

// BaseURL returns the base URL
func (c *IssClient) BaseURL() string {
	return c.baseURL
}

// FetchPosition fetches the current ISS position and normalizes it
func (c *IssClient) FetchPosition(ctx context.Context) (*domain.IssPosition, error) {
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.http.Get(ctx, c.baseURL)
	})
	if err != nil {
		return nil, err
	}

	var raw domain.OpenNotifyResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &domain.ShapeError{Provider: "ISS", Field: "iss_position"}
	}
	if raw.IssPosition == nil {
		return nil, &domain.ShapeError{Provider: "ISS", Field: "iss_position"}
	}
	if raw.Timestamp == 0 {
		return nil, &domain.ShapeError{Provider: "ISS", Field: "timestamp"}
	}

	lat, err := strconv.ParseFloat(raw.IssPosition.Latitude, 64)
	if err != nil {
		return nil, fmt.Errorf("parse ISS latitude %q: %w", raw.IssPosition.Latitude, err)
	}
	lon, err := strconv.ParseFloat(raw.IssPosition.Longitude, 64)
	if err != nil {
		return nil, fmt.Errorf("parse ISS longitude %q: %w", raw.IssPosition.Longitude, err)
	}

	return &domain.IssPosition{
		Latitude:   lat,
		Longitude:  lon,
		Altitude:   domain.IssAltitudeKm,
		Velocity:   domain.IssVelocityKmS,
		Timestamp:  raw.Timestamp,
		Visibility: domain.IssVisibilityDay,
	}, nil
}

// NasaClient fetches data from NASA APIs
type NasaClient struct {
	http    *HTTPClient
	breaker *Breaker
	limiter *rate.Limiter
	baseURL string
	apiKey  string
}

// NasaOptions configures a NasaClient
type NasaOptions struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	RatePerSecond float64
	RateBurst     int
}

// NewNasaClient creates a new NASA API client
func NewNasaClient(opts NasaOptions) *NasaClient {
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	burst := opts.RateBurst
	if burst <= 0 {
		burst = 1
	}
	return &NasaClient{
		http:    NewHTTPClient("NASA", opts.Timeout),
		breaker: NewBreaker("nasa-api"),
		limiter: rate.NewLimiter(limit, burst),
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
	}
}

// HasKey reports whether an API key is configured
func (c *NasaClient) HasKey() bool {
	return c.apiKey != ""
}

func (c *NasaClient) endpoint(path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	return c.baseURL + path + "?" + params.Encode()
}

func (c *NasaClient) get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &domain.UpstreamError{Provider: "NASA", Err: err}
	}
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.http.Get(ctx, c.endpoint(path, params))
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// FetchAPOD fetches Astronomy Picture of the Day
func (c *NasaClient) FetchAPOD(ctx context.Context) (json.RawMessage, error) {
	data, err := c.get(ctx, "/planetary/apod", nil)
	if err != nil {
		return nil, err
	}
	if field, ok := domain.HasFields(data, "date", "title"); !ok {
		return nil, &domain.ShapeError{Provider: "APOD", Field: field}
	}
	return data, nil
}

// FetchNeoFeed fetches Near Earth Objects between two dates (YYYY-MM-DD)
func (c *NasaClient) FetchNeoFeed(ctx context.Context, start, end string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("start_date", start)
	params.Set("end_date", end)

	data, err := c.get(ctx, "/neo/rest/v1/feed", params)
	if err != nil {
		return nil, err
	}
	if field, ok := domain.HasFields(data, "element_count", "near_earth_objects"); !ok {
		return nil, &domain.ShapeError{Provider: "NEO", Field: field}
	}
	return data, nil
}

// FetchMarsPhotos fetches rover photos by earth date or sol, optionally filtered by camera
func (c *NasaClient) FetchMarsPhotos(ctx context.Context, q domain.MarsQuery) (json.RawMessage, error) {
	params := url.Values{}
	switch {
	case q.EarthDate != "":
		params.Set("earth_date", q.EarthDate)
	case q.Sol != nil:
		params.Set("sol", strconv.Itoa(*q.Sol))
	}
	if q.Camera != "" {
		params.Set("camera", q.Camera)
	}

	path := "/mars-photos/api/v1/rovers/" + url.PathEscape(strings.ToLower(q.Rover)) + "/photos"
	data, err := c.get(ctx, path, params)
	if err != nil {
		return nil, err
	}
	if field, ok := domain.HasFields(data, "photos"); !ok {
		return nil, &domain.ShapeError{Provider: "Mars Rover", Field: field}
	}
	return data, nil
}

// FetchMarsManifest fetches the mission manifest of a rover
func (c *NasaClient) FetchMarsManifest(ctx context.Context, rover string) (json.RawMessage, error) {
	path := "/mars-photos/api/v1/manifests/" + url.PathEscape(strings.ToLower(rover))
	data, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	if field, ok := domain.HasFields(data, "photo_manifest"); !ok {
		return nil, &domain.ShapeError{Provider: "mission manifest", Field: field}
	}
	return data, nil
}
