package server

import (
	"fmt"
	"time"
)

// DatabaseServerConfig selects and configures the mapping store backend
type DatabaseServerConfig struct {
	Type        string   `mapstructure:"type"         yaml:"type"`
	Retention   string   `mapstructure:"retention"    yaml:"retention"`
	RetryDelays []string `mapstructure:"retry_delays" yaml:"retry_delays"`

	SQLite DatabaseSQLiteConfig `mapstructure:"sqlite" yaml:"sqlite"`
	Redis  DatabaseRedisConfig  `mapstructure:"redis"  yaml:"redis"`
}

// DatabaseSQLiteConfig holds SQLite-specific configuration
type DatabaseSQLiteConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// DatabaseRedisConfig holds Redis-specific configuration
type DatabaseRedisConfig struct {
	Addr     string `mapstructure:"addr"     yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db"       yaml:"db"`
}

// RetryDelayDurations parses the ordered retry delay list.
func (cfg DatabaseServerConfig) RetryDelayDurations() ([]time.Duration, error) {
	delays := make([]time.Duration, 0, len(cfg.RetryDelays))
	for _, value := range cfg.RetryDelays {
		delay, err := time.ParseDuration(value)
		if err != nil {
			return nil, fmt.Errorf("invalid retry delay '%s': %w", value, err)
		}
		delays = append(delays, delay)
	}
	return delays, nil
}

// RetentionDuration parses the retention window for backends with native
// expiry.
func (cfg DatabaseServerConfig) RetentionDuration() (time.Duration, error) {
	if cfg.Retention == "" {
		return 7 * 24 * time.Hour, nil
	}
	retention, err := time.ParseDuration(cfg.Retention)
	if err != nil {
		return 0, fmt.Errorf("invalid retention '%s': %w", cfg.Retention, err)
	}
	return retention, nil
}
