package forward

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acidjurassic/isla-toxica-commands/pkg/pubsub"
)

var bonk = Action{ActionID: "BONK", User: "alice", UserID: "4242", Platform: "twitch"}

func TestWebhookPostsAction(t *testing.T) {
	var got Action
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, time.Second)
	require.NoError(t, wh.Forward(context.Background(), bonk))
	assert.Equal(t, bonk, got)
}

func TestWebhookNon2xxCarriesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bot asleep", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, time.Second).Forward(context.Background(), bonk)

	var de *DownstreamError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, http.StatusServiceUnavailable, de.StatusCode)
	assert.Equal(t, "bot asleep", de.Message)
}

func TestWebhookEmptyBodyUsesStatusText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, time.Second).Forward(context.Background(), bonk)
	assert.EqualError(t, err, "Internal Server Error")
}

func TestWebhookUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewWebhook(url, time.Second).Forward(context.Background(), bonk)
	require.Error(t, err)

	var de *DownstreamError
	assert.False(t, errors.As(err, &de))
}

func TestBusPublishesTrigger(t *testing.T) {
	mr := miniredis.RunT(t)
	ps := pubsub.NewRedisPubSubFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { ps.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := ps.Subscribe(ctx, pubsub.TriggerToBotChannel("twitch"))
	require.NoError(t, err)

	bus := NewBus(ps, false)
	require.NoError(t, bus.Forward(ctx, bonk))

	select {
	case ev := <-ch:
		var p pubsub.TriggerPayload
		require.NoError(t, ev.UnmarshalPayload(&p))
		assert.Equal(t, "BONK", p.ActionID)
		assert.Equal(t, "alice", p.User)
		assert.Equal(t, pubsub.SourceHTTP, p.Source)
	case <-time.After(2 * time.Second):
		t.Fatal("trigger not published")
	}
}

func TestNewDrivers(t *testing.T) {
	f, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, "none", f.Name())
	assert.NoError(t, f.Forward(context.Background(), bonk))

	_, err = New(Config{Driver: "webhook"})
	assert.Error(t, err)

	f, err = New(Config{Driver: "webhook", WebhookURL: "http://127.0.0.1:1/hook"})
	require.NoError(t, err)
	assert.Equal(t, "webhook", f.Name())

	_, err = New(Config{Driver: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestNewRedisDriver(t *testing.T) {
	mr := miniredis.RunT(t)
	f, err := New(Config{Driver: "redis", PubSub: pubsub.Config{Redis: pubsub.RedisConfig{Address: mr.Addr()}}})
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, "bus", f.Name())
}
