package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acidjurassic/isla-toxica-commands/pkg/cooldown"
	"github.com/acidjurassic/isla-toxica-commands/pkg/forward"
	"github.com/acidjurassic/isla-toxica-commands/pkg/pubsub"
	"github.com/acidjurassic/isla-toxica-commands/relay-service/internal/domain"
)

type recorder struct {
	mu   sync.Mutex
	msgs []json.RawMessage
}

func (r *recorder) record(m interface{}) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.msgs = append(r.msgs, data)
	r.mu.Unlock()
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func (r *recorder) last(t *testing.T, v interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.msgs)
	require.NoError(t, json.Unmarshal(r.msgs[len(r.msgs)-1], v))
}

type fakePeer struct{ recorder }

func (p *fakePeer) SendMessage(m interface{}) error { return p.record(m) }

type fakeBots struct{ recorder }

func (b *fakeBots) BroadcastToBots(m interface{}) error { return b.record(m) }

type fakeForwarder struct {
	mu    sync.Mutex
	calls []forward.Action
	err   error
}

func (f *fakeForwarder) Forward(_ context.Context, a forward.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, a)
	return f.err
}
func (f *fakeForwarder) Name() string { return "fake" }
func (f *fakeForwarder) Close() error { return nil }

const secret = "hunter2"

func panelMsg(t *testing.T, m domain.TriggerMessage) []byte {
	data, err := json.Marshal(m)
	require.NoError(t, err)
	return data
}

func bonk() domain.TriggerMessage {
	return domain.TriggerMessage{ActionID: "BONK", User: "alice", UserID: "4242", Platform: "twitch", Secret: secret}
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestService(store cooldown.Store, fwd forward.Forwarder) (RelayService, *fakeBots, *clock) {
	bots := &fakeBots{}
	c := &clock{t: time.UnixMilli(1_700_000_000_000)}
	svc := NewRelayService(bots, fwd, Config{Secret: secret, Cooldown: store}, WithClock(c.now))
	return svc, bots, c
}

func TestPanelTriggerRelayedToBots(t *testing.T) {
	fwd := &fakeForwarder{}
	svc, bots, _ := newTestService(nil, fwd)
	peer := &fakePeer{}

	svc.HandlePanelMessage(context.Background(), "c1", peer, panelMsg(t, bonk()))

	var ack domain.AckMessage
	peer.last(t, &ack)
	assert.Equal(t, domain.MsgTypeAck, ack.Type)
	assert.Equal(t, "BONK", ack.ActionID)

	var out domain.TriggerOut
	bots.last(t, &out)
	assert.Equal(t, domain.TriggerOut{
		Type: "trigger", ActionID: "BONK", User: "alice", UserID: "4242", Platform: "twitch", Source: "ws",
	}, out)

	require.Len(t, fwd.calls, 1)
	assert.Equal(t, "4242", fwd.calls[0].UserID)
}

func TestPanelWrongSecretDropped(t *testing.T) {
	fwd := &fakeForwarder{}
	svc, bots, _ := newTestService(nil, fwd)
	peer := &fakePeer{}

	m := bonk()
	m.Secret = "guess"
	svc.HandlePanelMessage(context.Background(), "c1", peer, panelMsg(t, m))

	var em domain.ErrorMessage
	peer.last(t, &em)
	assert.Equal(t, domain.ErrCodeForbidden, em.Code)
	assert.Zero(t, bots.count())
	assert.Empty(t, fwd.calls)
}

func TestPanelMissingActionID(t *testing.T) {
	svc, bots, _ := newTestService(nil, nil)
	peer := &fakePeer{}

	m := bonk()
	m.ActionID = ""
	svc.HandlePanelMessage(context.Background(), "c1", peer, panelMsg(t, m))

	var em domain.ErrorMessage
	peer.last(t, &em)
	assert.Equal(t, domain.ErrCodeBadRequest, em.Code)
	assert.Equal(t, "Missing actionId", em.Message)
	assert.Zero(t, bots.count())
}

func TestPanelNonJSON(t *testing.T) {
	svc, bots, _ := newTestService(nil, nil)
	peer := &fakePeer{}

	svc.HandlePanelMessage(context.Background(), "c1", peer, []byte("hello relay"))

	var em domain.ErrorMessage
	peer.last(t, &em)
	assert.Equal(t, domain.ErrCodeBadRequest, em.Code)
	assert.Zero(t, bots.count())
}

func TestPanelPing(t *testing.T) {
	svc, _, _ := newTestService(nil, nil)
	peer := &fakePeer{}

	svc.HandlePanelMessage(context.Background(), "c1", peer, []byte(`{"type":"ping"}`))

	var base domain.BaseMessage
	peer.last(t, &base)
	assert.Equal(t, domain.MsgTypePong, base.Type)
}

func TestPanelCooldownEnforced(t *testing.T) {
	svc, bots, c := newTestService(cooldown.NewMemoryStore(1200*time.Millisecond), nil)
	peer := &fakePeer{}
	ctx := context.Background()

	svc.HandlePanelMessage(ctx, "c1", peer, panelMsg(t, bonk()))
	c.t = c.t.Add(500 * time.Millisecond)
	svc.HandlePanelMessage(ctx, "c1", peer, panelMsg(t, bonk()))

	var em domain.ErrorMessage
	peer.last(t, &em)
	assert.Equal(t, domain.ErrCodeCooldown, em.Code)
	assert.Equal(t, int64(700), em.RetryAfterMs)
	assert.Equal(t, 1, bots.count())

	c.t = c.t.Add(time.Second)
	svc.HandlePanelMessage(ctx, "c1", peer, panelMsg(t, bonk()))
	assert.Equal(t, 2, bots.count())
}

func TestPanelCooldownKeyFallsBackToUser(t *testing.T) {
	svc, bots, _ := newTestService(cooldown.NewMemoryStore(time.Second), nil)
	peer := &fakePeer{}
	ctx := context.Background()

	m := bonk()
	m.UserID = ""
	svc.HandlePanelMessage(ctx, "c1", peer, panelMsg(t, m))
	svc.HandlePanelMessage(ctx, "c2", peer, panelMsg(t, m))
	assert.Equal(t, 1, bots.count())
}

func TestPanelForwardFailure(t *testing.T) {
	fwd := &fakeForwarder{err: &forward.DownstreamError{StatusCode: 500, Message: "bot offline"}}
	svc, bots, _ := newTestService(nil, fwd)
	peer := &fakePeer{}

	svc.HandlePanelMessage(context.Background(), "c1", peer, panelMsg(t, bonk()))

	var em domain.ErrorMessage
	peer.last(t, &em)
	assert.Equal(t, domain.ErrCodeBadGateway, em.Code)
	assert.Equal(t, "Bot hook failed: bot offline", em.Message)
	assert.Zero(t, bots.count())
}

func TestBotPing(t *testing.T) {
	svc, _, _ := newTestService(nil, nil)
	peer := &fakePeer{}

	svc.HandleBotMessage(context.Background(), "b1", peer, []byte(`{"type":"ping"}`))
	svc.HandleBotMessage(context.Background(), "b1", peer, []byte(`played BONK`))
	svc.HandleBotMessage(context.Background(), "b1", peer, []byte(`{"type":"played","actionId":"BONK"}`))

	assert.Equal(t, 1, peer.count())
}

func TestStartWithoutSubscriber(t *testing.T) {
	svc, _, _ := newTestService(nil, nil)
	require.NoError(t, svc.Start(context.Background()))

	select {
	case <-svc.Done():
	default:
		t.Fatal("Done should be closed when no subscriber is configured")
	}
}

func TestBusTriggersRelayedToBots(t *testing.T) {
	mr := miniredis.RunT(t)
	ps := pubsub.NewRedisPubSubFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { ps.Close() })

	bots := &fakeBots{}
	svc := NewRelayService(bots, nil, Config{Secret: secret}, WithSubscriber(ps))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, svc.Start(ctx))

	bus := forward.NewBus(ps, false)
	require.NoError(t, bus.Forward(ctx, forward.Action{ActionID: "SAX", User: "bob", UserID: "7", Platform: "twitch"}))

	// Socket-path events are skipped; they were broadcast on acceptance.
	wsBus := forward.NewBus(ps, false).WithSource(pubsub.SourceRealtime)
	require.NoError(t, wsBus.Forward(ctx, forward.Action{ActionID: "HONK", User: "bob", UserID: "7", Platform: "twitch"}))

	require.Eventually(t, func() bool { return bots.count() >= 1 }, 2*time.Second, 10*time.Millisecond)

	var out domain.TriggerOut
	bots.last(t, &out)
	assert.Equal(t, "SAX", out.ActionID)
	assert.Equal(t, pubsub.SourceHTTP, out.Source)

	cancel()
	select {
	case <-svc.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
	}
	assert.Equal(t, 1, bots.count())
}
