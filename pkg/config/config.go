package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/platinummonkey/warden/pkg/audit"
	"github.com/platinummonkey/warden/pkg/observability"
)

// Config holds all engine configuration.
type Config struct {
	Database      DatabaseConfig
	Redis         RedisConfig
	Cache         CacheConfig
	Resolver      ResolverConfig
	Audit         AuditConfig
	Observability ObservabilityConfig
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL          string
	MaxConns     int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// RedisConfig holds the optional Redis version-source settings. When
// disabled, version counters are kept in process memory and invalidations do
// not propagate across replicas.
type RedisConfig struct {
	Enabled   bool
	URL       string
	KeyPrefix string
}

// CacheConfig holds snapshot cache settings.
type CacheConfig struct {
	MaxWorkspaces int
}

// ResolverConfig holds resolution behavior switches.
type ResolverConfig struct {
	HierarchicalFallback bool
}

// AuditConfig holds access-log pipeline settings.
type AuditConfig struct {
	Enabled      bool
	QueueSize    int
	Policy       audit.OverflowPolicy
	BlockTimeout time.Duration

	FilePath string // non-empty adds a file sink alongside the database sink

	RetentionDays     int
	RetentionSchedule string
	ArchiveBucket     string // non-empty enables S3 archiving before purge
	ArchivePrefix     string
	ArchiveRegion     string
}

// ObservabilityConfig holds logging, metrics and tracing settings.
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from WARDEN_* environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL:          getEnv("WARDEN_POSTGRES_URL", ""),
			MaxConns:     getEnvInt("WARDEN_POSTGRES_MAX_CONNS", 25),
			MaxIdleConns: getEnvInt("WARDEN_POSTGRES_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvDuration("WARDEN_POSTGRES_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Enabled:   getEnvBool("WARDEN_REDIS_ENABLED", false),
			URL:       getEnv("WARDEN_REDIS_URL", "redis://localhost:6379/0"),
			KeyPrefix: getEnv("WARDEN_REDIS_KEY_PREFIX", "warden:authz"),
		},
		Cache: CacheConfig{
			MaxWorkspaces: getEnvInt("WARDEN_CACHE_MAX_WORKSPACES", 1024),
		},
		Resolver: ResolverConfig{
			HierarchicalFallback: getEnvBool("WARDEN_HIERARCHICAL_FALLBACK", true),
		},
		Audit: AuditConfig{
			Enabled:           getEnvBool("WARDEN_AUDIT_ENABLED", true),
			QueueSize:         getEnvInt("WARDEN_AUDIT_QUEUE_SIZE", 4096),
			Policy:            audit.OverflowPolicy(getEnv("WARDEN_AUDIT_OVERFLOW_POLICY", string(audit.OverflowDropOldest))),
			BlockTimeout:      getEnvDuration("WARDEN_AUDIT_BLOCK_TIMEOUT", 50*time.Millisecond),
			FilePath:          getEnv("WARDEN_AUDIT_FILE_PATH", ""),
			RetentionDays:     getEnvInt("WARDEN_AUDIT_RETENTION_DAYS", 90),
			RetentionSchedule: getEnv("WARDEN_AUDIT_RETENTION_SCHEDULE", ""),
			ArchiveBucket:     getEnv("WARDEN_AUDIT_ARCHIVE_BUCKET", ""),
			ArchivePrefix:     getEnv("WARDEN_AUDIT_ARCHIVE_PREFIX", ""),
			ArchiveRegion:     getEnv("WARDEN_AUDIT_ARCHIVE_REGION", ""),
		},
		Observability: ObservabilityConfig{
			LogLevel:           observability.ParseLogLevel(getEnv("WARDEN_LOG_LEVEL", "info")),
			MetricsEnabled:     getEnvBool("WARDEN_METRICS_ENABLED", true),
			OTelEnabled:        getEnvBool("WARDEN_OTEL_ENABLED", false),
			OTelEndpoint:       getEnv("WARDEN_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName:    getEnv("WARDEN_OTEL_SERVICE_NAME", "warden"),
			OTelServiceVersion: getEnv("WARDEN_OTEL_SERVICE_VERSION", ""),
			OTelInsecure:       getEnvBool("WARDEN_OTEL_INSECURE", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("WARDEN_POSTGRES_URL is required")
	}
	switch c.Audit.Policy {
	case audit.OverflowDropOldest, audit.OverflowBlock:
	default:
		return fmt.Errorf("invalid WARDEN_AUDIT_OVERFLOW_POLICY %q", c.Audit.Policy)
	}
	if c.Audit.QueueSize <= 0 {
		return fmt.Errorf("WARDEN_AUDIT_QUEUE_SIZE must be positive")
	}
	if c.Cache.MaxWorkspaces <= 0 {
		return fmt.Errorf("WARDEN_CACHE_MAX_WORKSPACES must be positive")
	}
	if c.Audit.RetentionDays <= 0 {
		return fmt.Errorf("WARDEN_AUDIT_RETENTION_DAYS must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
