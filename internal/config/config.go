// Package config defines the top-level configuration for fillscope and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by FILLSCOPE_* environment variables.
type Config struct {
	Polymarket PolymarketConfig `toml:"polymarket"`
	Goldsky    GoldskyConfig    `toml:"goldsky"`
	Ingest     IngestConfig     `toml:"ingest"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Export     ExportConfig     `toml:"export"`
	LogLevel   string           `toml:"log_level"`
}

// PolymarketConfig holds the metadata API endpoint.
type PolymarketConfig struct {
	GammaHost string `toml:"gamma_host"`
}

// GoldskyConfig holds the order-fill event feed endpoint and credentials.
type GoldskyConfig struct {
	URL    string `toml:"url"`
	APIKey string `toml:"api_key"`
}

// IngestConfig holds pagination, retry, and concurrency parameters for the
// fill ingestor.
type IngestConfig struct {
	PageSize int `toml:"page_size"`

	// PageDelay is the pause between successive pages of one token.
	PageDelay duration `toml:"page_delay"`

	// RateLimitCooldown is the pause before re-issuing a rate-limited page.
	RateLimitCooldown duration `toml:"rate_limit_cooldown"`

	// MaxRateLimitRetries caps rate-limit retries per page; 0 retries forever.
	MaxRateLimitRetries int `toml:"max_rate_limit_retries"`

	// MaxConcurrent is the ceiling on tokens fetched in parallel.
	MaxConcurrent int `toml:"max_concurrent"`

	// CacheTTL is how long a cached token fill history stays fresh; 0 keeps
	// entries forever.
	CacheTTL duration `toml:"cache_ttl"`
}

// PostgresConfig holds connection parameters for the fill cache database.
// The cache is optional: leave both DSN and Host empty to run without it.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// Enabled reports whether a fill cache database is configured.
func (c PostgresConfig) Enabled() bool {
	return strings.TrimSpace(c.DSN) != "" || c.Host != ""
}

// RedisConfig holds connection parameters for the outcome metadata cache.
// Optional: leave Addr empty to run without it.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// Enabled reports whether an outcome cache is configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// S3Config holds S3-compatible object storage parameters for CSV exports.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ExportConfig controls CSV export of analysis reports.
type ExportConfig struct {
	Enabled bool   `toml:"enabled"`
	Prefix  string `toml:"prefix"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			GammaHost: "https://gamma-api.polymarket.com",
		},
		Goldsky: GoldskyConfig{
			URL: "",
		},
		Ingest: IngestConfig{
			PageSize:            1000,
			PageDelay:           duration{200 * time.Millisecond},
			RateLimitCooldown:   duration{10 * time.Second},
			MaxRateLimitRetries: 0,
			MaxConcurrent:       5,
			CacheTTL:            duration{6 * time.Hour},
		},
		Postgres: PostgresConfig{
			Port:          5432,
			Database:      "fillscope",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Region:         "us-east-1",
			Bucket:         "fillscope-data",
			ForcePathStyle: true,
		},
		Export: ExportConfig{
			Enabled: false,
			Prefix:  "exports",
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Polymarket.GammaHost == "" {
		errs = append(errs, "polymarket: gamma_host must not be empty")
	}
	if c.Goldsky.URL == "" {
		errs = append(errs, "goldsky: url must not be empty")
	}

	if c.Ingest.PageSize < 1 {
		errs = append(errs, "ingest: page_size must be >= 1")
	}
	if c.Ingest.MaxConcurrent < 1 {
		errs = append(errs, "ingest: max_concurrent must be >= 1")
	}
	if c.Ingest.MaxRateLimitRetries < 0 {
		errs = append(errs, "ingest: max_rate_limit_retries must be >= 0")
	}

	if c.Postgres.Enabled() {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	if c.Redis.Enabled() && c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	if c.Export.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when export is enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when export is enabled")
		}
		if c.Export.Prefix == "" {
			errs = append(errs, "export: prefix must not be empty when export is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
