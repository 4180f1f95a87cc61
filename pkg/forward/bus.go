package forward

import (
	"context"
	"fmt"

	"github.com/acidjurassic/isla-toxica-commands/pkg/pubsub"
)

// Bus publishes actions onto the event bus channel bots subscribe to.
type Bus struct {
	publisher pubsub.PubSub
	source    string
	owned     bool
}

// NewBus wraps ps. When owned is true Close also closes ps.
func NewBus(ps pubsub.PubSub, owned bool) *Bus {
	return &Bus{publisher: ps, source: pubsub.SourceHTTP, owned: owned}
}

// WithSource tags published payloads with the path they arrived on.
func (b *Bus) WithSource(source string) *Bus {
	b.source = source
	return b
}

func (b *Bus) Forward(ctx context.Context, action Action) error {
	event, err := pubsub.NewEvent(pubsub.EventTrigger, action.Platform, pubsub.TriggerPayload{
		ActionID: action.ActionID,
		User:     action.User,
		UserID:   action.UserID,
		Platform: action.Platform,
		Source:   b.source,
	})
	if err != nil {
		return fmt.Errorf("failed to build trigger event: %w", err)
	}

	if err := b.publisher.Publish(ctx, pubsub.TriggerToBotChannel(action.Platform), event); err != nil {
		return fmt.Errorf("failed to publish trigger: %w", err)
	}
	return nil
}

func (b *Bus) Name() string { return "bus" }

func (b *Bus) Close() error {
	if b.owned {
		return b.publisher.Close()
	}
	return nil
}
