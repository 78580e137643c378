package repo

import (
	"context"
	"fmt"
	"strings"

	"go-space/internal/domain"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const redisPrefix = "space:"

// RedisStore persists each row as a JSON value under space:<table>:<natural key>
type RedisStore struct {
	client *redis.Client
}

// OpenRedis connects and pings the server
func OpenRedis(ctx context.Context, redisURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStore wraps an existing client
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// RedisKey returns the key a row is stored under
func RedisKey(table, naturalKey string) string {
	return redisPrefix + table + ":" + naturalKey
}

func (s *RedisStore) set(ctx context.Context, table, naturalKey string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, RedisKey(table, naturalKey), data, 0).Err()
}

// UpsertApod stores the picture of the day by date
func (s *RedisStore) UpsertApod(ctx context.Context, apod domain.Apod, raw json.RawMessage) error {
	return s.set(ctx, TableApod, apod.Date, raw)
}

// UpsertNeo stores a NEO feed by its start date
func (s *RedisStore) UpsertNeo(ctx context.Context, date string, raw json.RawMessage) error {
	return s.set(ctx, TableNeo, date, raw)
}

// UpsertIss stores an ISS position by its timestamp
func (s *RedisStore) UpsertIss(ctx context.Context, pos domain.IssPosition) error {
	return s.set(ctx, TableIss, issTime(pos), pos)
}

// UpsertMarsPhotos stores a photo query result together with its photo count
func (s *RedisStore) UpsertMarsPhotos(ctx context.Context, q domain.MarsQuery, photoCount int, raw json.RawMessage) error {
	row := struct {
		Rover      string          `json:"rover"`
		Sol        *int            `json:"sol"`
		EarthDate  string          `json:"earth_date,omitempty"`
		Camera     string          `json:"camera,omitempty"`
		PhotoCount int             `json:"photo_count"`
		Data       json.RawMessage `json:"data"`
	}{strings.ToLower(q.Rover), q.Sol, q.EarthDate, q.Camera, photoCount, raw}
	return s.set(ctx, TableMars, MarsNaturalKey(q), row)
}

// UpsertMarsManifest stores a mission manifest by rover
func (s *RedisStore) UpsertMarsManifest(ctx context.Context, rover string, raw json.RawMessage) error {
	return s.set(ctx, TableManifest, strings.ToLower(rover), raw)
}

// Close closes the client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
