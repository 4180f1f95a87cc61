package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acidjurassic/isla-toxica-commands/relay-service/internal/config"
)

func newTestClient(id string, role Role, h *Hub) *Client {
	return &Client{ID: id, Role: role, Hub: h, Send: make(chan []byte, 4), config: config.WebSocketConfig{}}
}

func TestBroadcastReachesOnlyBots(t *testing.T) {
	h := NewHub(config.WebSocketConfig{})
	go h.Run()
	defer h.Stop()

	bot := newTestClient("bot", RoleBot, h)
	panel := newTestClient("panel", RolePanel, h)
	h.Register(bot)
	h.Register(panel)
	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, h.BroadcastToBots(map[string]string{"type": "trigger"}))

	select {
	case msg := <-bot.Send:
		assert.JSONEq(t, `{"type":"trigger"}`, string(msg))
	case <-time.After(time.Second):
		t.Fatal("bot did not receive broadcast")
	}
	assert.Empty(t, panel.Send)
}

func TestUnregisterClosesSend(t *testing.T) {
	h := NewHub(config.WebSocketConfig{})
	go h.Run()
	defer h.Stop()

	bot := newTestClient("bot", RoleBot, h)
	h.Register(bot)
	h.Unregister(bot)

	require.Eventually(t, func() bool { return h.BotCount() == 0 }, time.Second, 5*time.Millisecond)
	_, ok := <-bot.Send
	assert.False(t, ok)

	// A second unregister is a no-op.
	h.Unregister(bot)
}

func TestSlowBotIsDropped(t *testing.T) {
	h := NewHub(config.WebSocketConfig{})
	go h.Run()
	defer h.Stop()

	bot := &Client{ID: "slow", Role: RoleBot, Hub: h, Send: make(chan []byte)}
	h.Register(bot)
	require.Eventually(t, func() bool { return h.BotCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, h.BroadcastToBots("x"))
	require.Eventually(t, func() bool { return h.BotCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestStopClosesClients(t *testing.T) {
	h := NewHub(config.WebSocketConfig{})
	go h.Run()

	bot := newTestClient("bot", RoleBot, h)
	h.Register(bot)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	h.Stop()
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	_, ok := <-bot.Send
	assert.False(t, ok)

	// Calls after Stop do not block.
	h.Unregister(bot)
	assert.NoError(t, h.BroadcastToBots("late"))
}
