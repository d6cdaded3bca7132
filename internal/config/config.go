// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers file and environment on top.
// - All loading functions accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error kinds.
package config

import "context"

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreDriver selects persistence: "memory" or "postgres".
	StoreDriver string `koanf:"store_driver"`

	// PostgresDSN is the connection string when StoreDriver is "postgres".
	PostgresDSN string `koanf:"postgres_dsn"`

	// WorkerCount sets the per-pass ingestion concurrency.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the per-pass assignment queue.
	QueueSize int `koanf:"queue_size"`

	// SearchRadiusMiles bounds competitor matching around a community.
	SearchRadiusMiles float64 `koanf:"search_radius_miles"`

	// NameWeight, PriceWeight, and DistanceWeight shape the alignment score.
	NameWeight     float64 `koanf:"name_weight"`
	PriceWeight    float64 `koanf:"price_weight"`
	DistanceWeight float64 `koanf:"distance_weight"`

	// ScoreDelta is the minimum alignment score movement that counts as
	// price drift.
	ScoreDelta int `koanf:"score_delta"`

	// SeverityFloor is the score under which a drift alert turns high
	// severity.
	SeverityFloor int `koanf:"severity_floor"`

	// FreshnessDays is how long a competitor may go unobserved before a
	// stale_data alert fires.
	FreshnessDays int `koanf:"freshness_days"`

	// CooldownHours is the per-(competitor, type) alert suppression window.
	CooldownHours int `koanf:"cooldown_hours"`

	// ScrapeFrequencyHours schedules automatic passes. Zero disables the
	// scheduler; passes then run only via the API.
	ScrapeFrequencyHours int `koanf:"scrape_frequency_hours"`

	// IngestMaxAttempts and IngestBaseDelayMS tune the ingestion retry
	// policy for transient upstream failures.
	IngestMaxAttempts int `koanf:"ingest_max_attempts"`
	IngestBaseDelayMS int `koanf:"ingest_base_delay_ms"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":8080",
		StoreDriver:          "memory",
		WorkerCount:          5,
		QueueSize:            256,
		SearchRadiusMiles:    25,
		NameWeight:           0.4,
		PriceWeight:          0.4,
		DistanceWeight:       0.2,
		ScoreDelta:           20,
		SeverityFloor:        40,
		FreshnessDays:        14,
		CooldownHours:        24,
		ScrapeFrequencyHours: 0,
		IngestMaxAttempts:    3,
		IngestBaseDelayMS:    500,
	}
}
