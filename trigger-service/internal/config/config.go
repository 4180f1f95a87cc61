package config

import (
	"time"

	pkgconfig "github.com/acidjurassic/isla-toxica-commands/pkg/config"
	"github.com/acidjurassic/isla-toxica-commands/pkg/cooldown"
	"github.com/acidjurassic/isla-toxica-commands/pkg/forward"
	"github.com/acidjurassic/isla-toxica-commands/pkg/identity"
	"github.com/acidjurassic/isla-toxica-commands/pkg/pubsub"
)

type Config struct {
	Server    ServerConfig
	Twitch    TwitchConfig
	Cooldown  CooldownConfig
	Redis     pubsub.RedisConfig
	Kafka     pubsub.KafkaConfig
	Forward   ForwardConfig
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type TwitchConfig struct {
	ValidateURL string        `mapstructure:"validate_url"`
	ClientID    string        `mapstructure:"client_id"`
	Timeout     time.Duration `mapstructure:"timeout"`
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
	Platform   string        `mapstructure:"platform"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

type LogConfig struct {
	Level  string
	Pretty bool
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("twitch.validate_url", identity.DefaultValidateURL)
	v.SetDefault("twitch.client_id", "")
	v.SetDefault("twitch.timeout", 5*time.Second)
	v.SetDefault("cooldown.window", cooldown.DefaultWindow)
	v.SetDefault("cooldown.backend", "memory")
	v.SetDefault("cooldown.prefix", "trigger:cooldown")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.group_id", "trigger-service")
	v.SetDefault("kafka.partitions", 4)
	v.SetDefault("forward.driver", "")
	v.SetDefault("forward.webhook_url", "")
	v.SetDefault("forward.timeout", 5*time.Second)
	v.SetDefault("forward.platform", forward.DefaultPlatform)
	v.SetDefault("ratelimit.requests_per_minute", 120)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// Bind environment variables
	v.BindEnv("server.port", "PORT")
	v.BindEnv("twitch.validate_url", "TWITCH_VALIDATE_URL")
	v.BindEnv("twitch.client_id", "TWITCH_CLIENT_ID")
	v.BindEnv("cooldown.backend", "COOLDOWN_BACKEND")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("forward.driver", "FORWARD_DRIVER")
	v.BindEnv("forward.webhook_url", "BOT_HOOK_URL")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// A configured hook URL turns forwarding on unless a driver was chosen.
	if cfg.Forward.Driver == "" {
		if cfg.Forward.WebhookURL != "" {
			cfg.Forward.Driver = "webhook"
		} else {
			cfg.Forward.Driver = "none"
		}
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
		Platform:   c.Forward.Platform,
		PubSub: pubsub.Config{
			Driver: c.Forward.Driver,
			Redis:  c.Redis,
			Kafka:  c.Kafka,
		},
	}
}
