package repo

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go-space/internal/domain"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists into a local SQLite file
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
// ":memory:" gives a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating store dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS apod_cache (
			date        TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			url         TEXT,
			hdurl       TEXT,
			explanation TEXT,
			data        TEXT NOT NULL,
			fetched_at  DATETIME NOT NULL
		);
		CREATE TABLE IF NOT EXISTS neo_cache (
			date       TEXT PRIMARY KEY,
			data       TEXT NOT NULL,
			fetched_at DATETIME NOT NULL
		);
		CREATE TABLE IF NOT EXISTS iss_cache (
			timestamp TEXT PRIMARY KEY,
			latitude  REAL NOT NULL,
			longitude REAL NOT NULL,
			altitude  REAL NOT NULL,
			velocity  REAL NOT NULL,
			data      TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS mars_rover_cache (
			rover       TEXT NOT NULL,
			sol         INTEGER NOT NULL,
			earth_date  TEXT NOT NULL,
			camera      TEXT NOT NULL,
			photo_count INTEGER NOT NULL,
			data        TEXT NOT NULL,
			fetched_at  DATETIME NOT NULL,
			PRIMARY KEY (rover, sol, earth_date, camera)
		);
		CREATE TABLE IF NOT EXISTS mars_manifest_cache (
			rover      TEXT PRIMARY KEY,
			data       TEXT NOT NULL,
			fetched_at DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// UpsertApod upserts the picture of the day by date
func (s *SQLiteStore) UpsertApod(ctx context.Context, apod domain.Apod, raw json.RawMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO apod_cache(date, title, url, hdurl, explanation, data, fetched_at)
		VALUES(?,?,?,?,?,?,?)
		ON CONFLICT(date) DO UPDATE
		SET title=excluded.title, url=excluded.url, hdurl=excluded.hdurl,
		    explanation=excluded.explanation, data=excluded.data, fetched_at=excluded.fetched_at`,
		apod.Date, apod.Title, apod.URL, apod.HdURL, apod.Explanation, string(raw), now())
	if err != nil {
		return fmt.Errorf("upserting apod: %w", err)
	}
	return nil
}

// UpsertNeo upserts a NEO feed by its start date
func (s *SQLiteStore) UpsertNeo(ctx context.Context, date string, raw json.RawMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO neo_cache(date, data, fetched_at) VALUES(?,?,?)
		ON CONFLICT(date) DO UPDATE SET data=excluded.data, fetched_at=excluded.fetched_at`,
		date, string(raw), now())
	if err != nil {
		return fmt.Errorf("upserting neo: %w", err)
	}
	return nil
}

// UpsertIss upserts an ISS position by its timestamp
func (s *SQLiteStore) UpsertIss(ctx context.Context, pos domain.IssPosition) error {
	data, err := json.Marshal(pos)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO iss_cache(timestamp, latitude, longitude, altitude, velocity, data)
		VALUES(?,?,?,?,?,?)
		ON CONFLICT(timestamp) DO UPDATE
		SET latitude=excluded.latitude, longitude=excluded.longitude,
		    altitude=excluded.altitude, velocity=excluded.velocity, data=excluded.data`,
		issTime(pos), pos.Latitude, pos.Longitude, pos.Altitude, pos.Velocity, string(data))
	if err != nil {
		return fmt.Errorf("upserting iss: %w", err)
	}
	return nil
}

// UpsertMarsPhotos upserts a photo query result by rover, sol, date and camera
func (s *SQLiteStore) UpsertMarsPhotos(ctx context.Context, q domain.MarsQuery, photoCount int, raw json.RawMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mars_rover_cache(rover, sol, earth_date, camera, photo_count, data, fetched_at)
		VALUES(?,?,?,?,?,?,?)
		ON CONFLICT(rover, sol, earth_date, camera) DO UPDATE
		SET photo_count=excluded.photo_count, data=excluded.data, fetched_at=excluded.fetched_at`,
		strings.ToLower(q.Rover), solValue(q.Sol), q.EarthDate, q.Camera, photoCount, string(raw), now())
	if err != nil {
		return fmt.Errorf("upserting mars photos: %w", err)
	}
	return nil
}

// UpsertMarsManifest upserts a mission manifest by rover
func (s *SQLiteStore) UpsertMarsManifest(ctx context.Context, rover string, raw json.RawMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mars_manifest_cache(rover, data, fetched_at) VALUES(?,?,?)
		ON CONFLICT(rover) DO UPDATE SET data=excluded.data, fetched_at=excluded.fetched_at`,
		strings.ToLower(rover), string(raw), now())
	if err != nil {
		return fmt.Errorf("upserting manifest: %w", err)
	}
	return nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
