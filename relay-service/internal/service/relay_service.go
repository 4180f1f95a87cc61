package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/acidjurassic/isla-toxica-commands/pkg/cooldown"
	"github.com/acidjurassic/isla-toxica-commands/pkg/forward"
	"github.com/acidjurassic/isla-toxica-commands/pkg/log"
	"github.com/acidjurassic/isla-toxica-commands/pkg/pubsub"
	"github.com/acidjurassic/isla-toxica-commands/relay-service/internal/audit"
	"github.com/acidjurassic/isla-toxica-commands/relay-service/internal/domain"
)

// Config holds relay service settings.
type Config struct {
	Secret   string
	Platform string
	// Cooldown, when set, applies the per-identity window to socket triggers.
	Cooldown cooldown.Store
}

type relayService struct {
	bots       Broadcaster
	forwarder  forward.Forwarder
	subscriber pubsub.Subscriber
	secret     []byte
	platform   string
	cooldown   cooldown.Store
	now        func() time.Time
	done       chan struct{}
}

// Option configures the relay service.
type Option func(*relayService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *relayService) { s.now = now }
}

// WithSubscriber relays triggers published on the event bus to the bots.
func WithSubscriber(sub pubsub.Subscriber) Option {
	return func(s *relayService) { s.subscriber = sub }
}

// NewRelayService creates a new relay service.
func NewRelayService(bots Broadcaster, fwd forward.Forwarder, cfg Config, opts ...Option) RelayService {
	if fwd == nil {
		fwd = forward.Noop{}
	}
	if cfg.Platform == "" {
		cfg.Platform = forward.DefaultPlatform
	}
	s := &relayService{
		bots:      bots,
		forwarder: fwd,
		secret:    []byte(cfg.Secret),
		platform:  cfg.Platform,
		cooldown:  cfg.Cooldown,
		now:       time.Now,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *relayService) HandlePanelMessage(ctx context.Context, clientID string, peer Peer, raw []byte) {
	l := log.Ctx(ctx)

	var msg domain.TriggerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		l.Debug().Str(log.FieldClientID, clientID).Str("raw", truncate(raw)).Msg("non-JSON panel message")
		peer.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid message format"))
		return
	}

	switch msg.Type {
	case domain.MsgTypePing:
		peer.SendMessage(domain.BaseMessage{Type: domain.MsgTypePong})
		return
	case "", domain.MsgTypeTrigger:
	default:
		peer.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Unknown message type"))
		return
	}

	if !s.secretMatches(msg.Secret) {
		audit.Rejected(ctx, clientID, msg.UserID, msg.ActionID, "forbidden")
		peer.SendMessage(domain.NewErrorMessage(domain.ErrCodeForbidden, "Invalid secret"))
		return
	}

	actionID := strings.TrimSpace(msg.ActionID)
	if actionID == "" {
		audit.Rejected(ctx, clientID, msg.UserID, "", "missing_action_id")
		peer.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Missing actionId"))
		return
	}

	if s.cooldown != nil {
		key := msg.CooldownKey()
		if key == "" {
			key = "client:" + clientID
		}
		decision, err := s.cooldown.Hit(ctx, key, s.now())
		if err != nil {
			l.Error().Err(err).Msg("cooldown store unavailable")
		} else if !decision.Allowed {
			audit.Rejected(ctx, clientID, msg.UserID, actionID, "cooldown")
			em := domain.NewErrorMessage(domain.ErrCodeCooldown, "Cooldown")
			em.RetryAfterMs = decision.RetryAfter.Milliseconds()
			peer.SendMessage(em)
			return
		}
	}

	platform := msg.Platform
	if platform == "" {
		platform = s.platform
	}

	action := forward.Action{
		ActionID: actionID,
		User:     msg.User,
		UserID:   msg.UserID,
		Platform: platform,
	}
	if err := s.forwarder.Forward(ctx, action); err != nil {
		l.Warn().Err(err).Str(log.FieldActionID, actionID).Msg("bot hook failed")
		audit.Rejected(ctx, clientID, msg.UserID, actionID, "forward_failed")
		peer.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadGateway, "Bot hook failed: "+downstreamMessage(err)))
		return
	}

	if err := s.bots.BroadcastToBots(triggerOut(action, pubsub.SourceRealtime)); err != nil {
		l.Error().Err(err).Msg("failed to broadcast trigger")
	}

	audit.Accepted(ctx, clientID, msg.UserID, msg.User, actionID)
	peer.SendMessage(domain.NewAckMessage(actionID))
}

// HandleBotMessage answers pings. Anything else a bot sends is only logged,
// parsed as JSON when possible.
func (s *relayService) HandleBotMessage(ctx context.Context, clientID string, peer Peer, raw []byte) {
	l := log.Ctx(ctx)

	var base domain.BaseMessage
	if err := json.Unmarshal(raw, &base); err != nil {
		l.Debug().Str(log.FieldClientID, clientID).Str("raw", truncate(raw)).Msg("bot message")
		return
	}
	if base.Type == domain.MsgTypePing {
		peer.SendMessage(domain.BaseMessage{Type: domain.MsgTypePong})
		return
	}
	l.Debug().Str(log.FieldClientID, clientID).RawJSON("message", raw).Msg("bot message")
}

func (s *relayService) Start(ctx context.Context) error {
	if s.subscriber == nil {
		close(s.done)
		return nil
	}

	events, err := s.subscriber.SubscribePattern(ctx, pubsub.PatternTriggerToBot)
	if err != nil {
		close(s.done)
		return fmt.Errorf("failed to subscribe to triggers: %w", err)
	}

	go s.relayEvents(ctx, events)
	return nil
}

func (s *relayService) Done() <-chan struct{} {
	return s.done
}

func (s *relayService) relayEvents(ctx context.Context, events <-chan *pubsub.Event) {
	defer close(s.done)
	l := log.Ctx(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Type != pubsub.EventTrigger {
				continue
			}

			var p pubsub.TriggerPayload
			if err := ev.UnmarshalPayload(&p); err != nil {
				l.Warn().Err(err).Msg("dropping malformed trigger event")
				continue
			}
			// Socket triggers were already broadcast when accepted.
			if p.Source == pubsub.SourceRealtime {
				continue
			}
			source := p.Source
			if source == "" {
				source = pubsub.SourceHTTP
			}

			action := forward.Action{ActionID: p.ActionID, User: p.User, UserID: p.UserID, Platform: p.Platform}
			if err := s.bots.BroadcastToBots(triggerOut(action, source)); err != nil {
				l.Error().Err(err).Msg("failed to broadcast trigger")
				continue
			}
			l.Debug().Str(log.FieldActionID, p.ActionID).Str(log.FieldTransport, source).Msg("relayed bus trigger")
		}
	}
}

func (s *relayService) secretMatches(got string) bool {
	return subtle.ConstantTimeCompare([]byte(got), s.secret) == 1
}

func triggerOut(a forward.Action, source string) *domain.TriggerOut {
	return &domain.TriggerOut{
		Type:     domain.MsgTypeTrigger,
		ActionID: a.ActionID,
		User:     a.User,
		UserID:   a.UserID,
		Platform: a.Platform,
		Source:   source,
	}
}

func downstreamMessage(err error) string {
	var de *forward.DownstreamError
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return err.Error()
}

func truncate(b []byte) string {
	const limit = 256
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
