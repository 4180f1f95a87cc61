package cooldown

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RedisStore shares cooldown records between guard instances.
//
// Key pattern:
// {prefix}:{stable_id}   STRING<unix_ms>   PX = window
type RedisStore struct {
	client *redis.Client
	prefix string
	window time.Duration
	owned  bool
}

// NewRedisStore connects to Redis and returns a store using prefix for keys.
func NewRedisStore(cfg RedisConfig, prefix string, window time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	s := NewRedisStoreFromClient(client, prefix, window)
	s.owned = true
	return s, nil
}

// NewRedisStoreFromClient wraps an existing client. Close leaves it open.
func NewRedisStoreFromClient(client *redis.Client, prefix string, window time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "cooldown"
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		window: window,
	}
}

func (s *RedisStore) key(id string) string {
	return fmt.Sprintf("%s:%s", s.prefix, id)
}

// Hit relies on the key's expiry to encode the window: SET NX only succeeds
// once the previous record has expired.
func (s *RedisStore) Hit(ctx context.Context, key string, now time.Time) (Decision, error) {
	k := s.key(key)
	ok, err := s.client.SetNX(ctx, k, strconv.FormatInt(now.UnixMilli(), 10), s.window).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("failed to record cooldown hit: %w", err)
	}
	if ok {
		return Decision{Allowed: true}, nil
	}

	ttl, err := s.client.PTTL(ctx, k).Result()
	if err != nil || ttl < 0 {
		ttl = s.window
	}
	return Decision{Allowed: false, RetryAfter: ttl}, nil
}

func (s *RedisStore) Window() time.Duration {
	return s.window
}

func (s *RedisStore) Close() error {
	if s.owned {
		return s.client.Close()
	}
	return nil
}
