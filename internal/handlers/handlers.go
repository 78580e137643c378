// Package handlers provides HTTP request handlers
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"go-space/internal/domain"
	"go-space/internal/logging"
	"go-space/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache-Control values per route
const (
	cacheMarsHit  = "public, s-maxage=300, stale-while-revalidate=600"
	cacheMarsMiss = "public, s-maxage=600, stale-while-revalidate=1200"
	cacheManifest = "public, s-maxage=3600, stale-while-revalidate=7200"
	cacheIss      = "public, s-maxage=1, stale-while-revalidate=5"
	cacheApod     = "public, s-maxage=3600, stale-while-revalidate=86400"
	cacheNeo      = "public, s-maxage=3600, stale-while-revalidate=7200"
)

const rateLimitDetails = "Too many requests to NASA API. Please wait a moment and try again."

const jsonContentType = "application/json; charset=utf-8"

// Handler holds all service dependencies
type Handler struct {
	Apod       *services.ApodService
	Neo        *services.NeoService
	Iss        *services.IssService
	Mars       *services.MarsService
	Diagnostic *services.DiagnosticService
}

// NewHandler creates a new handler with services
func NewHandler(apod *services.ApodService, neo *services.NeoService, iss *services.IssService, mars *services.MarsService, diag *services.DiagnosticService) *Handler {
	return &Handler{
		Apod:       apod,
		Neo:        neo,
		Iss:        iss,
		Mars:       mars,
		Diagnostic: diag,
	}
}

// Health handles health check requests
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, domain.Health{
		Status: "ok",
		Now:    time.Now().UTC(),
	})
}

// GetApod handles astronomy picture of the day requests
func (h *Handler) GetApod(c *gin.Context) {
	data, err := h.Apod.Get(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to fetch APOD data")
		return
	}
	c.Header("Cache-Control", cacheApod)
	c.Data(http.StatusOK, jsonContentType, data)
}

// GetNeo handles near-earth object feed requests
func (h *Handler) GetNeo(c *gin.Context) {
	var p neoParams
	if err := c.ShouldBindQuery(&p); err != nil {
		respondError(c, bindError(err), "")
		return
	}

	data, err := h.Neo.Feed(c.Request.Context(), p.Start, p.End)
	if err != nil {
		respondError(c, err, "Failed to fetch NEO data")
		return
	}
	c.Header("Cache-Control", cacheNeo)
	c.Data(http.StatusOK, jsonContentType, data)
}

// GetIss handles current ISS position requests
func (h *Handler) GetIss(c *gin.Context) {
	pos, err := h.Iss.Current(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to fetch ISS data")
		return
	}
	c.Header("Cache-Control", cacheIss)
	c.JSON(http.StatusOK, pos)
}

// GetMarsPhotos handles rover photo requests
func (h *Handler) GetMarsPhotos(c *gin.Context) {
	var p marsParams
	if err := c.ShouldBindQuery(&p); err != nil {
		respondError(c, bindError(err), "")
		return
	}

	sol, err := p.sol()
	if err != nil {
		respondError(c, err, "")
		return
	}

	q := domain.MarsQuery{Rover: p.Rover, EarthDate: p.EarthDate, Sol: sol, Camera: p.Camera}
	data, hit, err := h.Mars.Photos(c.Request.Context(), q)
	if err != nil {
		respondError(c, err, "Failed to fetch Mars Rover data")
		return
	}

	if hit {
		c.Header("Cache-Control", cacheMarsHit)
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("Cache-Control", cacheMarsMiss)
		c.Header("X-Cache", "MISS")
	}
	c.Data(http.StatusOK, jsonContentType, data)
}

// GetMarsManifest handles mission manifest requests
func (h *Handler) GetMarsManifest(c *gin.Context) {
	var p manifestParams
	if err := c.ShouldBindQuery(&p); err != nil {
		respondError(c, bindError(err), "")
		return
	}

	data, err := h.Mars.Manifest(c.Request.Context(), p.Rover)
	if err != nil {
		respondError(c, err, "Failed to fetch mission manifest")
		return
	}
	c.Header("Cache-Control", cacheManifest)
	c.Data(http.StatusOK, jsonContentType, data)
}

// TestNasa handles the NASA connectivity diagnostic
func (h *Handler) TestNasa(c *gin.Context) {
	report, err := h.Diagnostic.Run(c.Request.Context())
	if err != nil {
		respondError(c, err, "Test failed")
		return
	}
	c.JSON(http.StatusOK, report)
}

// respondError renders err as the JSON error envelope.
// failure is the message used for upstream and unexpected errors.
func respondError(c *gin.Context, err error, failure string) {
	status := domain.StatusFor(err)
	body := domain.ErrorResponse(failure, err.Error())

	var ve *domain.ValidationError
	var ce *domain.ConfigurationError
	switch {
	case errors.As(err, &ve):
		body = domain.ErrorResponse(ve.Message, "")
	case errors.As(err, &ce):
		body = domain.ErrorResponse(ce.Message, "")
	default:
		if up, ok := domain.RateLimit(err); ok {
			retry := up.RetryAfter
			if retry == "" {
				retry = domain.DefaultRetryAfter
			}
			body = domain.ErrorBody{
				Error:      fmt.Sprintf("%s API rate limit exceeded", up.Provider),
				Details:    rateLimitDetails,
				RetryAfter: retry,
			}
			c.Header("Retry-After", retry)
		}
	}

	l := logging.Ctx(c.Request.Context())
	ev := l.Warn()
	if status >= http.StatusInternalServerError {
		ev = l.Error()
	}
	ev.Err(err).Int("status", status).Str("path", c.Request.URL.Path).Msg(body.Error)

	c.AbortWithStatusJSON(status, body)
}

// SetupRoutes configures all routes
func SetupRoutes(r *gin.Engine, h *Handler) {
	RegisterValidators()

	// Health check
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", CORS())

	routes := map[string]gin.HandlerFunc{
		"/apod":          h.GetApod,
		"/neo":           h.GetNeo,
		"/iss":           h.GetIss,
		"/mars":          h.GetMarsPhotos,
		"/mars/manifest": h.GetMarsManifest,
		"/test-nasa":     h.TestNasa,
	}
	for path, handler := range routes {
		api.GET(path, handler)
		api.OPTIONS(path, preflight)
	}
}

// NewEngine builds a gin engine with the standard middleware chain
func NewEngine(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger())
	r.Use(Metrics())
	SetupRoutes(r, h)
	return r
}
