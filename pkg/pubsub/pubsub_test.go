package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerToBotChannel(t *testing.T) {
	assert.Equal(t, "trigger:platform:twitch:to_bot", TriggerToBotChannel("twitch"))
}

func TestChannelToTopicAndKey(t *testing.T) {
	topic, key, err := channelToTopicAndKey(TriggerToBotChannel("twitch"))
	require.NoError(t, err)
	assert.Equal(t, "trigger-to-bot", topic)
	assert.Equal(t, "twitch", key)

	_, _, err = channelToTopicAndKey("signal:room:abc:to_media")
	assert.Error(t, err)

	_, _, err = channelToTopicAndKey("trigger:platform::to_bot")
	assert.Error(t, err)
}

func TestPatternToTopic(t *testing.T) {
	topic, err := patternToTopic(PatternTriggerToBot)
	require.NoError(t, err)
	assert.Equal(t, "trigger-to-bot", topic)
	assert.Contains(t, fixedTopics, topic)
}

func TestSanitizeGroupID(t *testing.T) {
	assert.Equal(t, "trigger-platform-twitch-to_bot", sanitizeGroupID("trigger:platform:twitch:to_bot"))
}

func TestNewPubSubUnknownDriver(t *testing.T) {
	_, err := NewPubSub(Config{Driver: "nats"})
	assert.Error(t, err)
}

func TestRedisPublishSubscribe(t *testing.T) {
	mr := miniredis.RunT(t)
	ps := NewRedisPubSubFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { ps.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := ps.SubscribePattern(ctx, PatternTriggerToBot)
	require.NoError(t, err)

	ev, err := NewEvent(EventTrigger, "twitch", TriggerPayload{
		ActionID: "BONK",
		User:     "alice",
		UserID:   "4242",
		Platform: "twitch",
		Source:   SourceHTTP,
	})
	require.NoError(t, err)
	require.NoError(t, ps.Publish(ctx, TriggerToBotChannel("twitch"), ev))

	select {
	case got := <-ch:
		require.NotNil(t, got)
		assert.Equal(t, EventTrigger, got.Type)
		assert.Equal(t, "twitch", got.Platform)

		var p TriggerPayload
		require.NoError(t, got.UnmarshalPayload(&p))
		assert.Equal(t, "BONK", p.ActionID)
		assert.Equal(t, "4242", p.UserID)
		assert.Equal(t, SourceHTTP, p.Source)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestRedisUnsubscribeClosesChannel(t *testing.T) {
	mr := miniredis.RunT(t)
	ps, err := NewRedisPubSub(RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { ps.Close() })

	ctx := context.Background()
	channel := TriggerToBotChannel("twitch")
	ch, err := ps.Subscribe(ctx, channel)
	require.NoError(t, err)

	require.NoError(t, ps.Unsubscribe(ctx, channel))

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}
}
