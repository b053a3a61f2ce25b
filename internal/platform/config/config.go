package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures process-level configuration. Values come from COMPLY_*
// environment variables with development defaults so main stays lean.
type Config struct {
	Addr          string
	DatabaseURL   string
	RedisURL      string
	JWTSigningKey string

	// RecalcPageSize bounds each page of the organization-wide score
	// recalculation job.
	RecalcPageSize int

	// MetricsCacheTTL bounds how stale a cached organization rollup may be.
	// Zero disables the cache tier.
	MetricsCacheTTL time.Duration

	Weights Weights
}

// Weights carries the per-component score maxima. The documented defaults
// (25/25/25/25) sum to 100; overrides are threaded explicitly into the
// calculator rather than compiled in.
type Weights struct {
	BackgroundCheck int
	Training        int
	Attestation     int
	AccessReview    int
}

// DefaultWeights returns the stock equal weighting.
func DefaultWeights() Weights {
	return Weights{BackgroundCheck: 25, Training: 25, Attestation: 25, AccessReview: 25}
}

// Total returns the maximum achievable score under these weights.
func (w Weights) Total() int {
	return w.BackgroundCheck + w.Training + w.Attestation + w.AccessReview
}

// FromEnv builds the configuration from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:            envOr("COMPLY_ADDR", ":8080"),
		DatabaseURL:     os.Getenv("COMPLY_DATABASE_URL"),
		RedisURL:        os.Getenv("COMPLY_REDIS_URL"),
		JWTSigningKey:   envOr("COMPLY_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		RecalcPageSize:  envIntOr("COMPLY_RECALC_PAGE_SIZE", 500),
		MetricsCacheTTL: envDurationOr("COMPLY_METRICS_CACHE_TTL", 30*time.Second),
		Weights: Weights{
			BackgroundCheck: envIntOr("COMPLY_WEIGHT_BACKGROUND_CHECK", 25),
			Training:        envIntOr("COMPLY_WEIGHT_TRAINING", 25),
			Attestation:     envIntOr("COMPLY_WEIGHT_ATTESTATION", 25),
			AccessReview:    envIntOr("COMPLY_WEIGHT_ACCESS_REVIEW", 25),
		},
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
