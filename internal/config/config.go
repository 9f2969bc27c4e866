// Package config defines the configuration structures for the chargefix
// service and CLI. No I/O lives here, only data types and validation.
package config

import (
	"fmt"
	"time"

	"github.com/AAriam/rdkit/internal/infrastructure/monitoring/logging"
)

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	MaxBatchSize    int           `mapstructure:"max_batch_size"`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StandardizerConfig selects the catalog and algorithm switches.
type StandardizerConfig struct {
	// CatalogPath overrides the built-in acid/base catalog (TSV or YAML,
	// optionally gzipped).
	CatalogPath string `mapstructure:"catalog_path"`
	// CorrectionsPath overrides the built-in charge corrections (YAML).
	CorrectionsPath         string   `mapstructure:"corrections_path"`
	ForceFullNeutralization bool     `mapstructure:"force_full_neutralization"`
	CanonicalOrdering       *bool    `mapstructure:"canonical_ordering"`
	Concurrency             int      `mapstructure:"concurrency"`
	Operations              []string `mapstructure:"operations"`
}

// Canonical reports the canonical-ordering switch; unset means on.
func (s StandardizerConfig) Canonical() bool {
	return s.CanonicalOrdering == nil || *s.CanonicalOrdering
}

// CacheConfig selects the result cache backend.
type CacheConfig struct {
	Backend    string        `mapstructure:"backend"` // none | memory | redis
	TTL        time.Duration `mapstructure:"ttl"`
	Prefix     string        `mapstructure:"prefix"`
	MaxEntries int           `mapstructure:"max_entries"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Mode         string        `mapstructure:"mode"`
	Addr         string        `mapstructure:"addr"`
	Addrs        []string      `mapstructure:"addrs"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	TLSEnabled   bool          `mapstructure:"tls_enabled"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// Config is the root configuration structure.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Log          logging.LogConfig  `mapstructure:"log"`
	Standardizer StandardizerConfig `mapstructure:"standardizer"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
}

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	if c.Server.MaxBodySize < 1 {
		return fmt.Errorf("config: server.max_body_size must be >= 1, got %d", c.Server.MaxBodySize)
	}
	if c.Server.MaxBatchSize < 1 {
		return fmt.Errorf("config: server.max_batch_size must be >= 1, got %d", c.Server.MaxBatchSize)
	}

	if c.Standardizer.Concurrency < 1 {
		return fmt.Errorf("config: standardizer.concurrency must be >= 1, got %d", c.Standardizer.Concurrency)
	}
	for _, op := range c.Standardizer.Operations {
		switch op {
		case "reionize", "uncharge":
		default:
			return fmt.Errorf("config: standardizer.operations: unknown operation %q", op)
		}
	}

	switch c.Cache.Backend {
	case "none", "memory":
	case "redis":
		if c.Redis.Addr == "" && len(c.Redis.Addrs) == 0 {
			return fmt.Errorf("config: redis.addr is required when cache.backend is redis")
		}
	default:
		return fmt.Errorf("config: cache.backend %q is invalid; expected none|memory|redis", c.Cache.Backend)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("config: cache.ttl must not be negative")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be >= 0, got %d", c.Redis.DB)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return fmt.Errorf("config: metrics.namespace is required when metrics are enabled")
	}
	return nil
}
