package handler

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/acidjurassic/isla-toxica-commands/pkg/log"
	"github.com/acidjurassic/isla-toxica-commands/relay-service/internal/config"
	"github.com/acidjurassic/isla-toxica-commands/relay-service/internal/domain"
	"github.com/acidjurassic/isla-toxica-commands/relay-service/internal/hub"
	"github.com/acidjurassic/isla-toxica-commands/relay-service/internal/service"
)

// SecretHeader carries the shared secret on bot connections. The "secret"
// query parameter is accepted for bots that cannot set headers.
const SecretHeader = "X-Relay-Secret"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSHandler struct {
	hub     *hub.Hub
	service service.RelayService
	wsCfg   config.WebSocketConfig
	secret  []byte
	baseCtx context.Context
}

func NewWSHandler(ctx context.Context, h *hub.Hub, svc service.RelayService, wsCfg config.WebSocketConfig, secret string) *WSHandler {
	return &WSHandler{
		hub:     h,
		service: svc,
		wsCfg:   wsCfg,
		secret:  []byte(secret),
		baseCtx: ctx,
	}
}

// HandlePanel upgrades a panel connection. Panels authenticate per message.
func (h *WSHandler) HandlePanel(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, hub.RolePanel, h.service.HandlePanelMessage)
}

// HandleBot upgrades a bot subscriber connection after checking the secret.
func (h *WSHandler) HandleBot(w http.ResponseWriter, r *http.Request) {
	got := r.Header.Get(SecretHeader)
	if got == "" {
		got = r.URL.Query().Get("secret")
	}
	if subtle.ConstantTimeCompare([]byte(got), h.secret) != 1 {
		writeError(w, http.StatusForbidden, domain.ErrCodeForbidden, "Invalid secret")
		return
	}
	h.serve(w, r, hub.RoleBot, h.service.HandleBotMessage)
}

type messageFunc func(ctx context.Context, clientID string, peer service.Peer, raw []byte)

func (h *WSHandler) serve(w http.ResponseWriter, r *http.Request, role hub.Role, onMessage messageFunc) {
	l := log.Ctx(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), role, h.hub, conn, h.wsCfg)
	h.hub.Register(client)

	// The request context ends with the upgrade handler; messages are
	// handled under the service lifetime instead.
	logger := l.With().Str(log.FieldClientID, client.ID).Str("role", string(role)).Logger()
	ctx := log.WithLogger(h.baseCtx, logger)
	logger.Info().Msg("socket connected")

	client.SendMessage(domain.WelcomeMessage{Type: domain.MsgTypeWelcome, ClientID: client.ID, Role: string(role)})

	go client.WritePump()
	go client.ReadPump(func(c *hub.Client, message []byte) {
		onMessage(ctx, c.ID, c, message)
	})
}
