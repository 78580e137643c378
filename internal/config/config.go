// Package config provides application configuration from defaults, an optional YAML file and environment variables
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar names the variable pointing at an optional YAML config file
const ConfigPathEnvVar = "CONFIG_PATH"

// AppConfig holds all application configuration
type AppConfig struct {
	Server   ServerConfig   `koanf:"server"`
	Log      LogConfig      `koanf:"log"`
	Upstream UpstreamConfig `koanf:"upstream"`
	Store    StoreConfig    `koanf:"store"`
	Cache    CacheConfig    `koanf:"cache"`
	Client   ClientConfig   `koanf:"client"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig configures zerolog
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// UpstreamConfig configures the third-party providers
type UpstreamConfig struct {
	NasaAPIURL string `koanf:"nasa_api_url"`
	// NasaAPIKey has no default; endpoints answer 500 while it is unset.
	NasaAPIKey    string        `koanf:"nasa_api_key"`
	IssAPIURL     string        `koanf:"iss_api_url"`
	Timeout       time.Duration `koanf:"timeout"`
	RatePerSecond float64       `koanf:"rate_per_second"`
	RateBurst     int           `koanf:"rate_burst"`
}

// StoreConfig configures the best-effort persistent mirror
type StoreConfig struct {
	// URL selects the backend by scheme: postgres://, sqlite://, redis://. Empty disables persistence.
	URL string `koanf:"url"`
}

// CacheConfig configures the in-process response cache
type CacheConfig struct {
	MarsTTL         time.Duration `koanf:"mars_ttl"`
	ManifestTTL     time.Duration `koanf:"manifest_ttl"`
	MaxEntries      int           `koanf:"max_entries"`
	SingleFlight    bool          `koanf:"single_flight"`
	JanitorInterval time.Duration `koanf:"janitor_interval"`
}

// ClientConfig configures the terminal client and its orchestrators
type ClientConfig struct {
	PublicBaseURL   string        `koanf:"public_base_url"`
	IssPageInterval time.Duration `koanf:"iss_page_interval"`
	IssMapInterval  time.Duration `koanf:"iss_map_interval"`
}

// PersistenceEnabled reports whether a persistent store is configured
func (c *AppConfig) PersistenceEnabled() bool {
	return c.Store.URL != ""
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{Addr: ":3000"},
		Log:    LogConfig{Level: "info", Format: "json"},
		Upstream: UpstreamConfig{
			NasaAPIURL:    "https://api.nasa.gov",
			IssAPIURL:     "http://api.open-notify.org/iss-now.json",
			Timeout:       30 * time.Second,
			RatePerSecond: 5,
			RateBurst:     5,
		},
		Cache: CacheConfig{
			MarsTTL:         10 * time.Minute,
			ManifestTTL:     time.Hour,
			MaxEntries:      1000,
			SingleFlight:    true,
			JanitorInterval: 5 * time.Minute,
		},
		Client: ClientConfig{
			PublicBaseURL:   "http://localhost:3000",
			IssPageInterval: 30 * time.Second,
			IssMapInterval:  3 * time.Second,
		},
	}
}

// envMappings maps environment variables to config paths
var envMappings = map[string]string{
	"http_addr":            "server.addr",
	"log_level":            "log.level",
	"log_format":           "log.format",
	"nasa_api_url":         "upstream.nasa_api_url",
	"nasa_api_key":         "upstream.nasa_api_key",
	"iss_api_url":          "upstream.iss_api_url",
	"upstream_timeout":     "upstream.timeout",
	"nasa_rate_per_second": "upstream.rate_per_second",
	"nasa_rate_burst":      "upstream.rate_burst",
	"database_url":         "store.url",
	"mars_cache_ttl":       "cache.mars_ttl",
	"manifest_cache_ttl":   "cache.manifest_ttl",
	"cache_max_entries":    "cache.max_entries",
	"cache_single_flight":  "cache.single_flight",
	"cache_janitor_every":  "cache.janitor_interval",
	"public_base_url":      "client.public_base_url",
	"iss_page_interval":    "client.iss_page_interval",
	"iss_map_interval":     "client.iss_map_interval",
}

// envTransform maps an environment variable name to its config path.
// Unknown variables map to "" and are ignored.
func envTransform(key string) string {
	return envMappings[strings.ToLower(key)]
}

// LoadConfig loads configuration: defaults, then CONFIG_PATH YAML, then environment
func LoadConfig() (*AppConfig, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &AppConfig{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must not be empty"))
	}
	if c.Upstream.NasaAPIURL == "" || c.Upstream.IssAPIURL == "" {
		errs = append(errs, errors.New("upstream URLs must not be empty"))
	}
	if c.Upstream.Timeout <= 0 {
		errs = append(errs, errors.New("upstream.timeout must be positive"))
	}
	if c.Upstream.RatePerSecond <= 0 || c.Upstream.RateBurst <= 0 {
		errs = append(errs, errors.New("upstream rate and burst must be positive"))
	}
	if c.Cache.MarsTTL <= 0 || c.Cache.ManifestTTL <= 0 {
		errs = append(errs, errors.New("cache TTLs must be positive"))
	}
	if c.Cache.MaxEntries <= 0 {
		errs = append(errs, errors.New("cache.max_entries must be positive"))
	}
	if c.Client.IssMapInterval <= 0 || c.Client.IssPageInterval <= 0 {
		errs = append(errs, errors.New("ISS refresh intervals must be positive"))
	}
	return errors.Join(errs...)
}
