package repo

import (
	"context"
	"fmt"
	"strings"

	"go-space/internal/domain"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists into Postgres JSONB tables
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres creates a connection pool and initializes the schema
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := InitDB(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresStore wraps an existing pool
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// UpsertApod upserts the picture of the day by date
func (s *PostgresStore) UpsertApod(ctx context.Context, apod domain.Apod, raw json.RawMessage) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO apod_cache(date, title, url, hdurl, explanation, data)
		VALUES($1,$2,$3,$4,$5,$6)
		ON CONFLICT (date) DO UPDATE
		SET title=EXCLUDED.title, url=EXCLUDED.url, hdurl=EXCLUDED.hdurl,
		    explanation=EXCLUDED.explanation, data=EXCLUDED.data, fetched_at=now()`,
		apod.Date, apod.Title, apod.URL, apod.HdURL, apod.Explanation, []byte(raw))
	return err
}

// UpsertNeo upserts a NEO feed by its start date
func (s *PostgresStore) UpsertNeo(ctx context.Context, date string, raw json.RawMessage) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO neo_cache(date, data) VALUES($1,$2)
		ON CONFLICT (date) DO UPDATE SET data=EXCLUDED.data, fetched_at=now()`,
		date, []byte(raw))
	return err
}

// UpsertIss upserts an ISS position by its timestamp
func (s *PostgresStore) UpsertIss(ctx context.Context, pos domain.IssPosition) error {
	data, err := json.Marshal(pos)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO iss_cache(timestamp, latitude, longitude, altitude, velocity, data)
		VALUES($1,$2,$3,$4,$5,$6)
		ON CONFLICT (timestamp) DO UPDATE
		SET latitude=EXCLUDED.latitude, longitude=EXCLUDED.longitude,
		    altitude=EXCLUDED.altitude, velocity=EXCLUDED.velocity, data=EXCLUDED.data`,
		pos.Time(), pos.Latitude, pos.Longitude, pos.Altitude, pos.Velocity, data)
	return err
}

// UpsertMarsPhotos upserts a photo query result by rover, sol, date and camera
func (s *PostgresStore) UpsertMarsPhotos(ctx context.Context, q domain.MarsQuery, photoCount int, raw json.RawMessage) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO mars_rover_cache(rover, sol, earth_date, camera, photo_count, data)
		VALUES($1,$2,$3,$4,$5,$6)
		ON CONFLICT (rover, sol, earth_date, camera) DO UPDATE
		SET photo_count=EXCLUDED.photo_count, data=EXCLUDED.data, fetched_at=now()`,
		strings.ToLower(q.Rover), solValue(q.Sol), q.EarthDate, q.Camera, photoCount, []byte(raw))
	return err
}

// UpsertMarsManifest upserts a mission manifest by rover
func (s *PostgresStore) UpsertMarsManifest(ctx context.Context, rover string, raw json.RawMessage) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO mars_manifest_cache(rover, data) VALUES($1,$2)
		ON CONFLICT (rover) DO UPDATE SET data=EXCLUDED.data, fetched_at=now()`,
		strings.ToLower(rover), []byte(raw))
	return err
}

// Close releases the pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// InitDB initializes database tables
func InitDB(ctx context.Context, pool *pgxpool.Pool) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS apod_cache(
			date TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			url TEXT,
			hdurl TEXT,
			explanation TEXT,
			data JSONB NOT NULL,
			fetched_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS neo_cache(
			date TEXT PRIMARY KEY,
			data JSONB NOT NULL,
			fetched_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS iss_cache(
			timestamp TIMESTAMPTZ PRIMARY KEY,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			altitude DOUBLE PRECISION NOT NULL,
			velocity DOUBLE PRECISION NOT NULL,
			data JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS mars_rover_cache(
			rover TEXT NOT NULL,
			sol INTEGER NOT NULL,
			earth_date TEXT NOT NULL,
			camera TEXT NOT NULL,
			photo_count INTEGER NOT NULL,
			data JSONB NOT NULL,
			fetched_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (rover, sol, earth_date, camera)
		)`,
		`CREATE TABLE IF NOT EXISTS mars_manifest_cache(
			rover TEXT PRIMARY KEY,
			data JSONB NOT NULL,
			fetched_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, q := range queries {
		if _, err := pool.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}
