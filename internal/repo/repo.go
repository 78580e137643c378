// Package repo provides the best-effort persistent mirror of upstream responses
package repo

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go-space/internal/domain"

	"github.com/goccy/go-json"
)

// Table names shared by every backend
const (
	TableApod     = "apod_cache"
	TableNeo      = "neo_cache"
	TableIss      = "iss_cache"
	TableMars     = "mars_rover_cache"
	TableManifest = "mars_manifest_cache"
)

// Store mirrors selected responses keyed by their natural keys.
// Nothing on the request path reads from it.
type Store interface {
	UpsertApod(ctx context.Context, apod domain.Apod, raw json.RawMessage) error
	UpsertNeo(ctx context.Context, date string, raw json.RawMessage) error
	UpsertIss(ctx context.Context, pos domain.IssPosition) error
	UpsertMarsPhotos(ctx context.Context, q domain.MarsQuery, photoCount int, raw json.RawMessage) error
	UpsertMarsManifest(ctx context.Context, rover string, raw json.RawMessage) error
	Close() error
}

// Open connects to the store selected by the URL scheme and creates its schema.
// postgres:// and postgresql:// use pgx, sqlite:// uses modernc sqlite, redis:// uses go-redis.
func Open(ctx context.Context, rawURL string) (Store, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse store url: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
		return OpenPostgres(ctx, rawURL)
	case "sqlite":
		return OpenSQLite(ctx, sqlitePath(rawURL))
	case "file":
		return OpenSQLite(ctx, rawURL)
	case "redis", "rediss":
		return OpenRedis(ctx, rawURL)
	default:
		return nil, fmt.Errorf("unsupported store scheme %q", u.Scheme)
	}
}

func sqlitePath(rawURL string) string {
	return strings.TrimPrefix(rawURL, "sqlite://")
}

// MarsNaturalKey renders the rover+sol+date+camera key of a photo query
func MarsNaturalKey(q domain.MarsQuery) string {
	return strings.Join([]string{strings.ToLower(q.Rover), solText(q.Sol), q.EarthDate, q.Camera}, "|")
}

// noSol is stored when a query was made by earth date
const noSol = -1

func solValue(sol *int) int {
	if sol == nil {
		return noSol
	}
	return *sol
}

func solText(sol *int) string {
	if sol == nil {
		return ""
	}
	return strconv.Itoa(*sol)
}

func issTime(pos domain.IssPosition) string {
	return pos.Time().Format(time.RFC3339)
}
