package config

import (
	"errors"
	"time"

	pkgconfig "github.com/acidjurassic/isla-toxica-commands/pkg/config"
	"github.com/acidjurassic/isla-toxica-commands/pkg/cooldown"
	"github.com/acidjurassic/isla-toxica-commands/pkg/forward"
	"github.com/acidjurassic/isla-toxica-commands/pkg/pubsub"
	"github.com/acidjurassic/isla-toxica-commands/pkg/storage"
)

type Config struct {
	Server     ServerConfig
	Relay      RelayConfig
	Cooldown   CooldownConfig
	Forward    ForwardConfig
	PubSub     PubSubConfig `mapstructure:"pubsub"`
	Redis      pubsub.RedisConfig
	Kafka      pubsub.KafkaConfig
	WebSocket  WebSocketConfig
	Descriptor DescriptorConfig
	Storage    StorageConfig
	Log        LogConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	AdvertiseURL string `mapstructure:"advertise_url"`
}

type RelayConfig struct {
	Secret          string
	EnforceCooldown bool   `mapstructure:"enforce_cooldown"`
	Platform        string `mapstructure:"platform"`
}

type CooldownConfig struct {
	Window  time.Duration `mapstructure:"window"`
	Backend string        `mapstructure:"backend"`
	Prefix  string        `mapstructure:"prefix"`
}

type ForwardConfig struct {
	Driver     string        `mapstructure:"driver"`
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// PubSubConfig selects the event bus the guard publishes accepted HTTP
// triggers on. An empty driver disables the subscription.
type PubSubConfig struct {
	Driver string `mapstructure:"driver"`
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

type DescriptorConfig struct {
	Driver string `mapstructure:"driver"` // "none", "local", "s3"
	Key    string `mapstructure:"key"`
}

type StorageConfig struct {
	Local storage.LocalConfig `mapstructure:"local"`
	S3    storage.S3Config    `mapstructure:"s3"`
}

type LogConfig struct {
	Level  string
	Pretty bool
}

// ErrMissingSecret is returned when no shared secret is configured.
var ErrMissingSecret = errors.New("relay.secret (WS_SECRET) is required")

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 18080)
	v.SetDefault("server.advertise_url", "ws://127.0.0.1:18080/")
	v.SetDefault("relay.secret", "")
	v.SetDefault("relay.enforce_cooldown", true)
	v.SetDefault("relay.platform", forward.DefaultPlatform)
	v.SetDefault("cooldown.window", "1200ms")
	v.SetDefault("cooldown.backend", "memory")
	v.SetDefault("cooldown.prefix", "relay:cooldown")
	v.SetDefault("forward.driver", "none")
	v.SetDefault("forward.webhook_url", "")
	v.SetDefault("forward.timeout", "5s")
	v.SetDefault("pubsub.driver", "")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.group_id", "relay-service")
	v.SetDefault("kafka.partitions", 4)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("descriptor.driver", "none")
	v.SetDefault("descriptor.key", "current.json")
	v.SetDefault("storage.local.base_path", "./data/relay")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("log.level", "info")

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.advertise_url", "RELAY_ADVERTISE_URL")
	v.BindEnv("relay.secret", "WS_SECRET")
	v.BindEnv("relay.enforce_cooldown", "RELAY_ENFORCE_COOLDOWN")
	v.BindEnv("forward.driver", "FORWARD_DRIVER")
	v.BindEnv("forward.webhook_url", "BOT_HOOK_URL")
	v.BindEnv("pubsub.driver", "PUBSUB_DRIVER")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("descriptor.driver", "DESCRIPTOR_DRIVER")
	v.BindEnv("storage.s3.endpoint", "S3_ENDPOINT")
	v.BindEnv("storage.s3.bucket", "S3_BUCKET")
	v.BindEnv("storage.s3.access_key_id", "S3_ACCESS_KEY_ID")
	v.BindEnv("storage.s3.secret_access_key", "S3_SECRET_ACCESS_KEY")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.Cooldown.Window = pkgconfig.ParseDuration(v, "cooldown.window", cooldown.DefaultWindow)
	cfg.Forward.Timeout = pkgconfig.ParseDuration(v, "forward.timeout", 5*time.Second)
	cfg.WebSocket.PingInterval = pkgconfig.ParseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = pkgconfig.ParseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = pkgconfig.ParseDuration(v, "websocket.write_wait", 10*time.Second)

	if cfg.Relay.Secret == "" {
		return nil, ErrMissingSecret
	}

	return &cfg, nil
}

// CooldownStore builds the cooldown store configuration.
func (c *Config) CooldownStore() cooldown.Config {
	return cooldown.Config{
		Backend: c.Cooldown.Backend,
		Prefix:  c.Cooldown.Prefix,
		Redis: cooldown.RedisConfig{
			Address:  c.Redis.Address,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		},
	}
}

// Forwarder builds the forwarder configuration.
func (c *Config) Forwarder() forward.Config {
	return forward.Config{
		Driver:     c.Forward.Driver,
		WebhookURL: c.Forward.WebhookURL,
		Timeout:    c.Forward.Timeout,
		Platform:   c.Relay.Platform,
		PubSub:     c.bus(c.Forward.Driver),
	}
}

// Subscription builds the event bus configuration for the trigger
// subscription. ok is false when the subscription is disabled.
func (c *Config) Subscription() (cfg pubsub.Config, ok bool) {
	if c.PubSub.Driver == "" || c.PubSub.Driver == "none" {
		return pubsub.Config{}, false
	}
	return c.bus(c.PubSub.Driver), true
}

// DescriptorStorage builds the storage configuration for the descriptor.
// ok is false when publishing is disabled.
func (c *Config) DescriptorStorage() (cfg storage.Config, ok bool) {
	if c.Descriptor.Driver == "" || c.Descriptor.Driver == "none" {
		return storage.Config{}, false
	}
	return storage.Config{
		Driver: c.Descriptor.Driver,
		Local:  c.Storage.Local,
		S3:     c.Storage.S3,
	}, true
}

func (c *Config) bus(driver string) pubsub.Config {
	return pubsub.Config{Driver: driver, Redis: c.Redis, Kafka: c.Kafka}
}
