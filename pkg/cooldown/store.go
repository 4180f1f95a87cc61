package cooldown

import (
	"fmt"
	"time"
)

// Config selects and configures a Store.
type Config struct {
	Backend string `mapstructure:"backend"` // "memory", "redis"
	Prefix  string `mapstructure:"prefix"`
	Redis   RedisConfig
}

// New creates the Store named by cfg.Backend.
func New(cfg Config, window time.Duration) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(window), nil
	case "redis":
		s, err := NewRedisStore(cfg.Redis, cfg.Prefix, window)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown cooldown backend %q", cfg.Backend)
	}
}
