// Package forward delivers accepted actions to the bot integration.
package forward

import (
	"context"
	"fmt"
	"time"

	"github.com/acidjurassic/isla-toxica-commands/pkg/pubsub"
)

// DefaultPlatform tags every forwarded action.
const DefaultPlatform = "twitch"

// Action is the body sent downstream.
type Action struct {
	ActionID string `json:"actionId"`
	User     string `json:"user"`
	UserID   string `json:"userId"`
	Platform string `json:"platform"`
}

// Forwarder hands an accepted action to the bot integration.
type Forwarder interface {
	Forward(ctx context.Context, action Action) error
	// Name identifies the driver in logs.
	Name() string
	Close() error
}

// DownstreamError is a rejection reported by the bot integration.
type DownstreamError struct {
	StatusCode int
	Message    string
}

func (e *DownstreamError) Error() string {
	return e.Message
}

// Config selects and configures a Forwarder.
type Config struct {
	Driver     string        `mapstructure:"driver"` // "none", "webhook", "redis", "kafka"
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Platform   string        `mapstructure:"platform"`
	PubSub     pubsub.Config `mapstructure:"pubsub"`
}

// New creates the Forwarder named by cfg.Driver. The redis and kafka drivers
// open their own event bus connection.
func New(cfg Config) (Forwarder, error) {
	switch cfg.Driver {
	case "", "none":
		return Noop{}, nil
	case "webhook":
		if cfg.WebhookURL == "" {
			return nil, fmt.Errorf("forward driver webhook requires a webhook url")
		}
		return NewWebhook(cfg.WebhookURL, cfg.Timeout), nil
	case "redis", "kafka":
		psCfg := cfg.PubSub
		psCfg.Driver = cfg.Driver
		ps, err := pubsub.NewPubSub(psCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create event bus: %w", err)
		}
		return NewBus(ps, true), nil
	default:
		return nil, fmt.Errorf("unknown forward driver %q", cfg.Driver)
	}
}

// Noop drops every action. Used when no bot integration is configured.
type Noop struct{}

func (Noop) Forward(context.Context, Action) error { return nil }
func (Noop) Name() string                          { return "none" }
func (Noop) Close() error                          { return nil }
