package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acidjurassic/isla-toxica-commands/pkg/cooldown"
	"github.com/acidjurassic/isla-toxica-commands/pkg/forward"
	"github.com/acidjurassic/isla-toxica-commands/pkg/identity"
	"github.com/acidjurassic/isla-toxica-commands/pkg/middleware"
	"github.com/acidjurassic/isla-toxica-commands/pkg/response"
	"github.com/acidjurassic/isla-toxica-commands/trigger-service/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type hookRecorder struct {
	mu      sync.Mutex
	actions []forward.Action
	status  int
	body    string
}

func (h *hookRecorder) server(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var a forward.Action
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&a))
		h.mu.Lock()
		h.actions = append(h.actions, a)
		status, body := h.status, h.body
		h.mu.Unlock()
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (h *hookRecorder) calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.actions)
}

// provider stands in for the identity provider's validate endpoint.
func provider(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "OAuth good-token":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"login": "alice", "user_id": "4242", "client_id": "cid", "scopes": []string{"user:read:email"}, "expires_in": 3600,
			})
		case "OAuth bob-token":
			_ = json.NewEncoder(w).Encode(map[string]any{"login": "bob", "user_id": "7", "client_id": "cid"})
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status":401,"message":"invalid access token"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	router *gin.Engine
	hook   *hookRecorder
	clock  *testClock
}

func newFixture(t *testing.T, rpm int) *fixture {
	hook := &hookRecorder{}
	hookSrv := hook.server(t)
	clock := &testClock{t: time.UnixMilli(1_700_000_000_000)}

	verifier := identity.NewVerifier(provider(t).URL)
	svc := service.NewTriggerService(
		cooldown.NewMemoryStore(1200*time.Millisecond),
		forward.NewWebhook(hookSrv.URL, time.Second),
		"twitch",
		service.WithClock(clock.now),
	)
	h := NewHandler(svc, middleware.NewAuthMiddleware(verifier))
	router := NewRouter(h, zerolog.Nop(), RouterConfig{RequestsPerMinute: rpm})

	return &fixture{router: router, hook: hook, clock: clock}
}

func (f *fixture) do(method, auth, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/trigger", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) response.ErrorInfo {
	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.OK)
	require.NotNil(t, resp.Error)
	return *resp.Error
}

func TestTriggerAccepted(t *testing.T) {
	f := newFixture(t, 0)

	w := f.do(http.MethodPost, "OAuth good-token", `{"actionId":"BONK"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body response.TriggerAccepted
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.OK)
	assert.Equal(t, "alice", body.User)
	assert.Equal(t, "4242", body.UserID)
	assert.Equal(t, "BONK", body.ActionID)

	require.Equal(t, 1, f.hook.calls())
	assert.Equal(t, forward.Action{ActionID: "BONK", User: "alice", UserID: "4242", Platform: "twitch"}, f.hook.actions[0])

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestTriggerWrongMethod(t *testing.T) {
	f := newFixture(t, 0)

	for _, m := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		w := f.do(m, "OAuth good-token", "")
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, m)
		assert.Equal(t, "Method not allowed", decodeError(t, w).Message)
	}
	assert.Zero(t, f.hook.calls())
}

func TestTriggerMissingToken(t *testing.T) {
	f := newFixture(t, 0)

	w := f.do(http.MethodPost, "", `{"actionId":"BONK"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Missing token", decodeError(t, w).Message)

	w = f.do(http.MethodPost, "Basic Zm9vOmJhcg==", `{"actionId":"BONK"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTriggerExpiredToken(t *testing.T) {
	f := newFixture(t, 0)

	w := f.do(http.MethodPost, "OAuth expired-token", `{"actionId":"BONK"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid/expired token", decodeError(t, w).Message)
	assert.Zero(t, f.hook.calls())
}

func TestTriggerCooldown(t *testing.T) {
	f := newFixture(t, 0)

	w := f.do(http.MethodPost, "OAuth good-token", `{"actionId":"BONK"}`)
	require.Equal(t, http.StatusOK, w.Code)

	f.clock.advance(500 * time.Millisecond)
	w = f.do(http.MethodPost, "OAuth good-token", `{"actionId":"BONK"}`)
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	info := decodeError(t, w)
	assert.Equal(t, response.CodeCooldown, info.Code)
	assert.Equal(t, "Cooldown", info.Message)
	assert.Equal(t, int64(700), info.RetryAfterMs)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, 1, f.hook.calls(), "cooldown rejection must not reach the bot")

	// Another identity is unaffected.
	w = f.do(http.MethodPost, "OAuth bob-token", `{"actionId":"BONK"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTriggerSpacedRequestsBothAccepted(t *testing.T) {
	f := newFixture(t, 0)

	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "OAuth good-token", `{"actionId":"BONK"}`).Code)
	f.clock.advance(1201 * time.Millisecond)
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "OAuth good-token", `{"actionId":"SAX"}`).Code)
	assert.Equal(t, 2, f.hook.calls())
}

func TestTriggerMissingActionID(t *testing.T) {
	f := newFixture(t, 0)

	for _, body := range []string{`{}`, `{"actionId":""}`, `not json`, ``} {
		w := f.do(http.MethodPost, "OAuth good-token", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "Missing actionId", decodeError(t, w).Message)
		f.clock.advance(2 * time.Second)
	}
	assert.Zero(t, f.hook.calls())
}

func TestTriggerMissingActionIDStillSpendsCooldown(t *testing.T) {
	f := newFixture(t, 0)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "OAuth good-token", `{}`).Code)
	f.clock.advance(200 * time.Millisecond)
	assert.Equal(t, http.StatusTooManyRequests, f.do(http.MethodPost, "OAuth good-token", `{"actionId":"BONK"}`).Code)
}

func TestTriggerBotHookFailure(t *testing.T) {
	f := newFixture(t, 0)
	f.hook.status = http.StatusInternalServerError
	f.hook.body = "streamer.bot offline"

	w := f.do(http.MethodPost, "OAuth good-token", `{"actionId":"BONK"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "Bot hook failed: streamer.bot offline", decodeError(t, w).Message)

	// The slot was consumed despite the failure.
	f.clock.advance(100 * time.Millisecond)
	assert.Equal(t, http.StatusTooManyRequests, f.do(http.MethodPost, "OAuth good-token", `{"actionId":"BONK"}`).Code)
}

func TestPerIPRateLimit(t *testing.T) {
	f := newFixture(t, 2)

	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "OAuth good-token", `{"actionId":"BONK"}`).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "OAuth bob-token", `{"actionId":"BONK"}`).Code)

	w := f.do(http.MethodPost, "OAuth bob-token", `{"actionId":"BONK"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, response.CodeRateLimited, decodeError(t, w).Code)
	assert.Equal(t, 2, f.hook.calls())
}

func TestHealth(t *testing.T) {
	f := newFixture(t, 0)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetIdentityMissingIsUnauthorized(t *testing.T) {
	h := NewHandler(service.NewTriggerService(cooldown.NewMemoryStore(0), nil, ""), nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/trigger", strings.NewReader(`{"actionId":"BONK"}`)).WithContext(context.Background())

	h.Trigger(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
