package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/acidjurassic/isla-toxica-commands/pkg/config"
	"github.com/acidjurassic/isla-toxica-commands/pkg/identity"
	"github.com/acidjurassic/isla-toxica-commands/pkg/log"
)

const (
	DefaultDescriptorURL = "https://gist.githubusercontent.com/acidjurassic/4492e7b11e49293078f5e9ad25658d2f/raw/current.json"
	DefaultFallbackURL   = "ws://127.0.0.1:18080/"
	DefaultAuthorizeURL  = "https://id.twitch.tv/oauth2/authorize"
)

type Config struct {
	Twitch     TwitchConfig
	Login      LoginConfig
	Relay      RelayConfig
	Transport  TransportConfig
	Guard      GuardConfig
	Dispatch   DispatchConfig
	Credential CredentialConfig
	Log        log.Config
}

type TwitchConfig struct {
	ClientID     string   `mapstructure:"client_id"`
	AuthorizeURL string   `mapstructure:"authorize_url"`
	ValidateURL  string   `mapstructure:"validate_url"`
	Scopes       []string `mapstructure:"scopes"`
}

type LoginConfig struct {
	ListenAddr string        `mapstructure:"listen_addr"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type RelayConfig struct {
	DescriptorURL string        `mapstructure:"descriptor_url"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	FallbackURL   string        `mapstructure:"fallback_url"`
	Secret        string        `mapstructure:"secret"`
	Platform      string        `mapstructure:"platform"`
}

type TransportConfig struct {
	BackoffInitial time.Duration `mapstructure:"backoff_initial"`
	BackoffMax     time.Duration `mapstructure:"backoff_max"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
}

type GuardConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DispatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

type CredentialConfig struct {
	Path string `mapstructure:"path"`
}

// Dir returns the panel's per-user config directory.
func Dir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "isla-toxica")
	}
	return ".isla-toxica"
}

// Load reads panel.yaml from path (or the per-user config directory when
// path is empty) plus environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Dir()
	}
	v, err := pkgconfig.Load(path, "panel")
	if err != nil {
		return nil, err
	}
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	dir := Dir()

	v.SetDefault("twitch.client_id", "")
	v.SetDefault("twitch.authorize_url", DefaultAuthorizeURL)
	v.SetDefault("twitch.validate_url", identity.DefaultValidateURL)
	v.SetDefault("twitch.scopes", []string{"user:read:email"})
	v.SetDefault("login.listen_addr", "127.0.0.1:17563")
	v.SetDefault("login.timeout", 3*time.Minute)
	v.SetDefault("relay.descriptor_url", DefaultDescriptorURL)
	v.SetDefault("relay.poll_interval", 30*time.Second)
	v.SetDefault("relay.fallback_url", DefaultFallbackURL)
	v.SetDefault("relay.secret", "")
	v.SetDefault("relay.platform", "twitch")
	v.SetDefault("transport.backoff_initial", time.Second)
	v.SetDefault("transport.backoff_max", 30*time.Second)
	v.SetDefault("transport.dial_timeout", 10*time.Second)
	v.SetDefault("guard.base_url", "http://127.0.0.1:8080")
	v.SetDefault("guard.timeout", 10*time.Second)
	v.SetDefault("dispatch.debounce", 300*time.Millisecond)
	v.SetDefault("credential.path", filepath.Join(dir, "credential.json"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", filepath.Join(dir, "panel.log"))
	v.SetDefault("log.pretty", true)
	v.SetDefault("log.service_name", "panel-client")

	v.BindEnv("twitch.client_id", "TWITCH_CLIENT_ID")
	v.BindEnv("relay.descriptor_url", "RELAY_DESCRIPTOR_URL")
	v.BindEnv("relay.secret", "WS_SECRET")
	v.BindEnv("guard.base_url", "GUARD_BASE_URL")
	v.BindEnv("log.level", "LOG_LEVEL")
}
