package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. .env file in the working directory, if present
//  3. file (YAML) if SCOUT_CONFIG is set
//  4. env (prefix SCOUT_)
func Load(ctx context.Context) (*Config, error) {
	// A .env file only fills variables not already exported, so real
	// environment always wins.
	_ = godotenv.Load()

	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv("SCOUT_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: SCOUT_ADDR, SCOUT_WORKER_COUNT, ...
	// Map env keys like SCOUT_WORKER_COUNT -> worker_count (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("SCOUT_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "scout_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch cfg.StoreDriver {
	case "memory":
	case "postgres":
		if cfg.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres_dsn is required when store_driver is postgres", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, cfg.StoreDriver)
	}
	if cfg.NameWeight < 0 || cfg.PriceWeight < 0 || cfg.DistanceWeight < 0 {
		return fmt.Errorf("%w: scoring weights must not be negative", ErrInvalidConfig)
	}
	if cfg.NameWeight+cfg.PriceWeight+cfg.DistanceWeight <= 0 {
		return fmt.Errorf("%w: scoring weights must not all be zero", ErrInvalidConfig)
	}
	if cfg.SearchRadiusMiles <= 0 {
		return fmt.Errorf("%w: search_radius_miles must be positive", ErrInvalidConfig)
	}
	return nil
}
