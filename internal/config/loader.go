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
const DefaultConfigFile = "sitegrove.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
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
	setString(&cfg.Server.Port, "SITEGROVE_PORT")
	setString(&cfg.Server.BaseDomain, "SITEGROVE_BASE_DOMAIN")
	setString(&cfg.Server.CORSOrigin, "SITEGROVE_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "SITEGROVE_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "SITEGROVE_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "SITEGROVE_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "SITEGROVE_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "SITEGROVE_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.KVBucket, "SITEGROVE_KV_BUCKET")
	setInt64(&cfg.Cache.L1MaxSizeMB, "SITEGROVE_CACHE_L1_SIZE_MB")
	setDuration(&cfg.Cache.L1TTL, "SITEGROVE_CACHE_L1_TTL")
	setDuration(&cfg.Cache.L2TTL, "SITEGROVE_CACHE_L2_TTL")
	setDuration(&cfg.Cache.NegativeTTL, "SITEGROVE_CACHE_NEGATIVE_TTL")
	setString(&cfg.Logging.Level, "SITEGROVE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "SITEGROVE_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "SITEGROVE_LOG_ASYNC")
	setBool(&cfg.Telemetry.Enabled, "SITEGROVE_OTEL_ENABLED")
	setString(&cfg.Telemetry.OTLPEndpoint, "SITEGROVE_OTLP_ENDPOINT")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Cache.L1TTL <= 0 || cfg.Cache.L2TTL <= 0 {
		return errors.New("cache TTLs must be positive")
	}
	if cfg.Cache.L1TTL > cfg.Cache.L2TTL {
		return errors.New("cache.l1_ttl must not exceed cache.l2_ttl")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
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
