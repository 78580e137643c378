// Package orchestrator drives the dashboard views against the service's own /api routes
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go-space/internal/clients"
	"go-space/internal/domain"

	"github.com/goccy/go-json"
)

// PhotoFetchDelay paces photo requests to stay under the NASA rate limit
const PhotoFetchDelay = 100 * time.Millisecond

// API is what the views need from the service
type API interface {
	MarsPhotos(ctx context.Context, rover, date, camera string) ([]domain.MarsPhoto, error)
	MarsManifest(ctx context.Context, rover string) (*domain.PhotoManifest, error)
	ISSPosition(ctx context.Context) (*domain.IssPosition, error)
}

// APIError is a non-2xx answer from the service, decoded from its error envelope
type APIError struct {
	Status     int
	Message    string
	Details    string
	RetryAfter string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d: %s", e.Status, http.StatusText(e.Status))
	}
	return e.Message
}

// RateLimited reports whether the service passed through a provider rate limit
func (e *APIError) RateLimited() bool {
	return e.Status == http.StatusTooManyRequests
}

// HTTPAPI calls the service over HTTP
type HTTPAPI struct {
	http       *clients.HTTPClient
	baseURL    string
	photoDelay time.Duration
}

// NewHTTPAPI creates an API client for the service at baseURL
func NewHTTPAPI(baseURL string, timeout time.Duration) *HTTPAPI {
	return &HTTPAPI{
		http:       clients.NewHTTPClient("dashboard", timeout),
		baseURL:    strings.TrimRight(baseURL, "/"),
		photoDelay: PhotoFetchDelay,
	}
}

// MarsPhotos fetches one filtered photo set
func (a *HTTPAPI) MarsPhotos(ctx context.Context, rover, date, camera string) ([]domain.MarsPhoto, error) {
	if a.photoDelay > 0 {
		timer := time.NewTimer(a.photoDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	params := url.Values{}
	params.Set("rover", rover)
	params.Set("earth_date", date)
	if camera != "" {
		params.Set("camera", camera)
	}

	var resp domain.MarsPhotosResponse
	if err := a.get(ctx, "/api/mars", params, &resp); err != nil {
		return nil, err
	}
	return resp.Photos, nil
}

// MarsManifest fetches the mission manifest of a rover
func (a *HTTPAPI) MarsManifest(ctx context.Context, rover string) (*domain.PhotoManifest, error) {
	params := url.Values{}
	params.Set("rover", rover)

	var resp domain.MissionManifest
	if err := a.get(ctx, "/api/mars/manifest", params, &resp); err != nil {
		return nil, err
	}
	return &resp.PhotoManifest, nil
}

// ISSPosition fetches the current ISS position
func (a *HTTPAPI) ISSPosition(ctx context.Context) (*domain.IssPosition, error) {
	var pos domain.IssPosition
	if err := a.get(ctx, "/api/iss", nil, &pos); err != nil {
		return nil, err
	}
	return &pos, nil
}

func (a *HTTPAPI) get(ctx context.Context, path string, params url.Values, out any) error {
	target := a.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	body, err := a.http.Get(ctx, target)
	if err != nil {
		var up *domain.UpstreamError
		if errors.As(err, &up) && up.Status != 0 {
			return decodeAPIError(up)
		}
		return err
	}
	return json.Unmarshal(body, out)
}

func decodeAPIError(up *domain.UpstreamError) *APIError {
	apiErr := &APIError{Status: up.Status, RetryAfter: up.RetryAfter}
	var envelope domain.ErrorBody
	if err := json.Unmarshal([]byte(up.Body), &envelope); err == nil {
		apiErr.Message = envelope.Error
		apiErr.Details = envelope.Details
		if envelope.RetryAfter != "" {
			apiErr.RetryAfter = envelope.RetryAfter
		}
	}
	return apiErr
}
