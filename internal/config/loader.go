package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "aria.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "ARIA_PORT")
	setString(&cfg.Server.CORSOrigin, "ARIA_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "ARIA_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "ARIA_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "ARIA_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "ARIA_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "ARIA_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Logging.Level, "ARIA_LOG_LEVEL")
	setString(&cfg.Logging.Service, "ARIA_LOG_SERVICE")
	setInt(&cfg.Breaker.MaxFailures, "ARIA_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "ARIA_BREAKER_TIMEOUT")
	setInt(&cfg.Coordinator.RetryCeiling, "ARIA_RETRY_CEILING")
	setDuration(&cfg.Coordinator.UndoWindow, "ARIA_UNDO_WINDOW")
	setDuration(&cfg.Coordinator.SweepInterval, "ARIA_SWEEP_INTERVAL")
	setInt(&cfg.Coordinator.SweepBatchSize, "ARIA_SWEEP_BATCH_SIZE")
	setFloat64(&cfg.Trust.RiskWeight, "ARIA_TRUST_RISK_WEIGHT")
	setDuration(&cfg.Trust.CacheTTL, "ARIA_TRUST_CACHE_TTL")
	setInt64(&cfg.Trust.CacheMaxItems, "ARIA_TRUST_CACHE_MAX_ITEMS")
	setBool(&cfg.Auth.Enabled, "ARIA_AUTH_ENABLED")
	setString(&cfg.Auth.APIKeyHash, "ARIA_API_KEY_HASH")
	setBool(&cfg.Telemetry.Enabled, "ARIA_OTEL_ENABLED")
	setString(&cfg.Telemetry.Endpoint, "ARIA_OTEL_ENDPOINT")
}

// validate rejects configurations the coordinator cannot run with.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats url is required")
	}
	if cfg.Coordinator.RetryCeiling <= 0 {
		return errors.New("coordinator retry_ceiling must be positive")
	}
	if cfg.Coordinator.UndoWindow <= 0 {
		return errors.New("coordinator undo_window must be positive")
	}
	if cfg.Coordinator.SweepInterval <= 0 {
		return errors.New("coordinator sweep_interval must be positive")
	}
	if cfg.Coordinator.SweepBatchSize <= 0 {
		return errors.New("coordinator sweep_batch_size must be positive")
	}
	if cfg.Auth.Enabled && cfg.Auth.APIKeyHash == "" {
		return errors.New("auth enabled but api_key_hash is empty")
	}
	return nil
}

func setString(dst *string, key string) {
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

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
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

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
