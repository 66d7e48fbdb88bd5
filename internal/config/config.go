// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits with an error.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration for the jobs service.
type Config struct {
	Port            string        `mapstructure:"jobs_port"`
	GRPCPort        string        `mapstructure:"jobs_grpc_port"`
	DatabaseURL     string        `mapstructure:"database_url"`
	RedisURL        string        `mapstructure:"redis_url"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	HealthCheckSpec string        `mapstructure:"health_check_spec"` // cron spec, e.g. "@every 30s"
	RateLimitRPS    float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst  int           `mapstructure:"rate_limit_burst"`
	TracingEnabled  bool          `mapstructure:"tracing_enabled"`
	LogLevel        string        `mapstructure:"log_level"`
}

var keys = []string{
	"jobs_port", "jobs_grpc_port", "database_url", "redis_url", "cache_ttl",
	"health_check_spec", "rate_limit_rps", "rate_limit_burst", "tracing_enabled", "log_level",
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("jobs_port", "8083")
	v.SetDefault("jobs_grpc_port", "9083")
	v.SetDefault("cache_ttl", "5m")
	v.SetDefault("health_check_spec", "@every 30s")
	v.SetDefault("rate_limit_rps", 50)
	v.SetDefault("rate_limit_burst", 100)
	v.SetDefault("tracing_enabled", false)
	v.SetDefault("log_level", "info")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only resolves keys viper already knows about during Unmarshal.
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	if cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("CACHE_TTL must be a positive duration, got %s", cfg.CacheTTL)
	}
	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst < 1 {
		return nil, fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}

	return &cfg, nil
}
