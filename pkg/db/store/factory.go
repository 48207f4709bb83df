package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/mwantia/godeid/pkg/log"
)

// Config selects and configures the mapping store backend. The backend is
// chosen once at startup; callers only ever see the MappingStore contract.
type Config struct {
	Type        string
	RetryDelays []time.Duration
	SQLite      SQLiteConfig
	Redis       RedisConfig
}

// New builds the configured backend wrapped in the retry policy.
func New(cfg Config, logService log.LoggerService) (MappingStore, error) {
	var backend MappingStore

	switch strings.ToLower(cfg.Type) {
	case "", "sqlite":
		sqliteStore, err := NewSQLiteStore(cfg.SQLite, logService)
		if err != nil {
			return nil, err
		}
		backend = sqliteStore
	case "redis":
		backend = NewRedisStore(cfg.Redis, logService)
	default:
		return nil, fmt.Errorf("unsupported database type '%s'", cfg.Type)
	}

	return WithRetry(backend, cfg.RetryDelays, logService), nil
}
