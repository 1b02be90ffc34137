// Package config loads ontograph configuration with viper: TOML files,
// ONTOGRAPH_-prefixed environment variables, and defaults, in that
// precedence order (env highest).
package config

import "time"

// Config is the root ontograph configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Breaker  BreakerConfig  `mapstructure:"breaker"`
	Query    QueryConfig    `mapstructure:"query"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig selects and configures the storage backend.
type DatabaseConfig struct {
	Backend string `mapstructure:"backend"`  // sqlite, badger, or memory
	Path    string `mapstructure:"path"`     // sqlite file path
	DataDir string `mapstructure:"data_dir"` // badger directory
}

// CacheConfig configures the query result cache.
type CacheConfig struct {
	MaxSize    int `mapstructure:"max_size"`
	TTLSeconds int `mapstructure:"ttl_seconds"`
}

// TTL returns the entry lifetime as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// BreakerConfig configures the storage circuit breaker.
type BreakerConfig struct {
	FailureThreshold    int `mapstructure:"failure_threshold"`
	ResetTimeoutSeconds int `mapstructure:"reset_timeout_seconds"`
	WindowSeconds       int `mapstructure:"window_seconds"`
}

// ResetTimeout returns the open-state cooldown as a duration.
func (c BreakerConfig) ResetTimeout() time.Duration {
	return time.Duration(c.ResetTimeoutSeconds) * time.Second
}

// Window returns the rolling failure window as a duration.
func (c BreakerConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// QueryConfig configures the query engine.
type QueryConfig struct {
	MaxDepth int `mapstructure:"max_depth"`
}

// IngestConfig configures the ingestion pipeline.
type IngestConfig struct {
	BatchSize       int     `mapstructure:"batch_size"`
	FlushIntervalMS int     `mapstructure:"flush_interval_ms"`
	Workers         int     `mapstructure:"workers"`
	QueueDepth      int     `mapstructure:"queue_depth"`
	RateLimit       float64 `mapstructure:"rate_limit"` // records/second, 0 = unlimited
}

// FlushInterval returns the flush interval as a duration.
func (c IngestConfig) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalMS) * time.Millisecond
}

// LogConfig configures logging output.
type LogConfig struct {
	JSON bool `mapstructure:"json"` // structured JSON instead of console output
}
