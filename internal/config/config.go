// Package config maps the operator-facing option set onto the components.
// Files are YAML; absent keys fall back to the documented defaults so an
// empty file is a valid configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// CacheTTLConfig is the timeframe → TTL table in seconds
type CacheTTLConfig struct {
	Default  int `yaml:"default"`
	Tick     int `yaml:"tick"`
	Minute   int `yaml:"minute"`
	Intraday int `yaml:"intraday"`
	Daily    int `yaml:"daily"`
	Weekly   int `yaml:"weekly"`
}

// CacheConfig configures both cache tiers
type CacheConfig struct {
	Enabled    bool           `yaml:"enabled"`
	MemorySize int            `yaml:"memory_size"`
	DiskPath   string         `yaml:"disk_path"`
	RedisAddr  string         `yaml:"redis_addr"`
	TTL        CacheTTLConfig `yaml:"ttl"`
}

// ProvidersConfig configures the provider call path
type ProvidersConfig struct {
	TimeoutSeconds    int     `yaml:"timeout"`
	MaxRetries        int     `yaml:"max_retries"`
	RateLimit         bool    `yaml:"rate_limit"`
	BackoffFactor     float64 `yaml:"backoff_factor"`
	MaxBackoffSeconds int     `yaml:"max_backoff"`
}

// CircuitConfig configures the per-provider breakers
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold"`
	RecoveryTimeout  int `yaml:"recovery_timeout"`
	HalfOpenMaxCalls int `yaml:"half_open_max_calls"`
}

// HealthConfig configures the probe loop
type HealthConfig struct {
	IntervalSeconds  int `yaml:"interval_seconds"`
	TimeoutSeconds   int `yaml:"timeout_seconds"`
	FailureThreshold int `yaml:"failure_threshold"`
	SuccessThreshold int `yaml:"success_threshold"`
}

// BatchConfig configures batch execution
type BatchConfig struct {
	DefaultConcurrency int `yaml:"default_concurrency"`
}

// DatabaseConfig configures the postgres connection pool
type DatabaseConfig struct {
	Enabled         bool   `yaml:"enabled"`
	DSN             string `yaml:"dsn"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	QueryTimeoutSec int    `yaml:"query_timeout"`
}

// Config is the full operator-facing option set
type Config struct {
	Cache     CacheConfig     `yaml:"cache"`
	Providers ProvidersConfig `yaml:"providers"`
	Circuit   CircuitConfig   `yaml:"circuit"`
	Health    HealthConfig    `yaml:"health"`
	Batch     BatchConfig     `yaml:"batch"`
	Database  DatabaseConfig  `yaml:"database"`
}

// DefaultConfig returns the documented defaults
func DefaultConfig() Config {
	return Config{
		Cache: CacheConfig{
			Enabled:    true,
			MemorySize: 1000,
			TTL: CacheTTLConfig{
				Default:  3600,
				Tick:     5,
				Minute:   60,
				Intraday: 300,
				Daily:    3600,
				Weekly:   86400,
			},
		},
		Providers: ProvidersConfig{
			TimeoutSeconds:    30,
			MaxRetries:        3,
			RateLimit:         true,
			BackoffFactor:     2,
			MaxBackoffSeconds: 60,
		},
		Circuit: CircuitConfig{
			FailureThreshold: 5,
			RecoveryTimeout:  60,
			HalfOpenMaxCalls: 3,
		},
		Health: HealthConfig{
			IntervalSeconds:  300,
			TimeoutSeconds:   5,
			FailureThreshold: 3,
			SuccessThreshold: 2,
		},
		Batch: BatchConfig{
			DefaultConcurrency: 10,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			QueryTimeoutSec: 30,
		},
	}
}

// Load reads a YAML config file over the defaults. A missing path returns
// pure defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ProviderTimeout returns the per-call timeout as a duration
func (c Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Providers.TimeoutSeconds) * time.Second
}

// HealthInterval returns the probe cadence as a duration
func (c Config) HealthInterval() time.Duration {
	return time.Duration(c.Health.IntervalSeconds) * time.Second
}
