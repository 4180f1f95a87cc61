package pubsub

import "fmt"

// Channel naming conventions for trigger delivery.
const (
	// Guard / relay -> bot channels, one per platform.
	ChannelTriggerToBot = "trigger:platform:%s:to_bot"

	// PatternTriggerToBot matches every platform's bot channel.
	PatternTriggerToBot = "trigger:platform:*:to_bot"
)

// Event types for trigger delivery.
const (
	EventTrigger = "trigger"
)

// Trigger sources.
const (
	SourceHTTP     = "http"
	SourceRealtime = "ws"
)

// TriggerToBotChannel returns the bot channel for a platform.
func TriggerToBotChannel(platform string) string {
	return fmt.Sprintf(ChannelTriggerToBot, platform)
}

// TriggerPayload is an accepted action on its way to the bot.
type TriggerPayload struct {
	ActionID string `json:"actionId"`
	User     string `json:"user"`
	UserID   string `json:"userId"`
	Platform string `json:"platform"`
	Source   string `json:"source,omitempty"` // "http", "ws"
}
