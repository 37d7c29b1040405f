package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies FILLSCOPE_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known FILLSCOPE_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Polymarket ──
	setStr(&cfg.Polymarket.GammaHost, "FILLSCOPE_POLYMARKET_GAMMA_HOST")

	// ── Goldsky ──
	setStr(&cfg.Goldsky.URL, "FILLSCOPE_GOLDSKY_URL")
	setStr(&cfg.Goldsky.APIKey, "FILLSCOPE_GOLDSKY_API_KEY")

	// ── Ingest ──
	setInt(&cfg.Ingest.PageSize, "FILLSCOPE_INGEST_PAGE_SIZE")
	setDuration(&cfg.Ingest.PageDelay, "FILLSCOPE_INGEST_PAGE_DELAY")
	setDuration(&cfg.Ingest.RateLimitCooldown, "FILLSCOPE_INGEST_RATE_LIMIT_COOLDOWN")
	setInt(&cfg.Ingest.MaxRateLimitRetries, "FILLSCOPE_INGEST_MAX_RATE_LIMIT_RETRIES")
	setInt(&cfg.Ingest.MaxConcurrent, "FILLSCOPE_INGEST_MAX_CONCURRENT")
	setDuration(&cfg.Ingest.CacheTTL, "FILLSCOPE_INGEST_CACHE_TTL")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "FILLSCOPE_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "FILLSCOPE_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "FILLSCOPE_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "FILLSCOPE_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "FILLSCOPE_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "FILLSCOPE_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "FILLSCOPE_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "FILLSCOPE_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "FILLSCOPE_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "FILLSCOPE_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "FILLSCOPE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "FILLSCOPE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "FILLSCOPE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "FILLSCOPE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "FILLSCOPE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "FILLSCOPE_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "FILLSCOPE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "FILLSCOPE_S3_REGION")
	setStr(&cfg.S3.Bucket, "FILLSCOPE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "FILLSCOPE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "FILLSCOPE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "FILLSCOPE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "FILLSCOPE_S3_FORCE_PATH_STYLE")

	// ── Export ──
	setBool(&cfg.Export.Enabled, "FILLSCOPE_EXPORT_ENABLED")
	setStr(&cfg.Export.Prefix, "FILLSCOPE_EXPORT_PREFIX")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "FILLSCOPE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
