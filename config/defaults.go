package config

import "github.com/spf13/viper"

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.backend", "sqlite")
	v.SetDefault("database.path", "ontograph.db")
	v.SetDefault("database.data_dir", "ontograph-badger")

	// Cache defaults
	v.SetDefault("cache.max_size", 1024)
	v.SetDefault("cache.ttl_seconds", 300) // 5 minutes

	// Breaker defaults
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.reset_timeout_seconds", 30)
	v.SetDefault("breaker.window_seconds", 60)

	// Query defaults
	v.SetDefault("query.max_depth", 10)

	// Ingest defaults
	v.SetDefault("ingest.batch_size", 100)
	v.SetDefault("ingest.flush_interval_ms", 2000)
	v.SetDefault("ingest.workers", 4)
	v.SetDefault("ingest.queue_depth", 256)
	v.SetDefault("ingest.rate_limit", 0.0) // unlimited

	// Log defaults
	v.SetDefault("log.json", false)
}
