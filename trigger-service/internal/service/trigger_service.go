package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/acidjurassic/isla-toxica-commands/pkg/cooldown"
	"github.com/acidjurassic/isla-toxica-commands/pkg/forward"
	"github.com/acidjurassic/isla-toxica-commands/pkg/identity"
	"github.com/acidjurassic/isla-toxica-commands/pkg/log"
	"github.com/acidjurassic/isla-toxica-commands/trigger-service/internal/audit"
	"github.com/acidjurassic/isla-toxica-commands/trigger-service/internal/domain"
)

type triggerService struct {
	cooldown  cooldown.Store
	forwarder forward.Forwarder
	platform  string
	now       func() time.Time
}

// Option configures the trigger service.
type Option func(*triggerService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *triggerService) { s.now = now }
}

// NewTriggerService creates a new trigger service.
func NewTriggerService(store cooldown.Store, fwd forward.Forwarder, platform string, opts ...Option) TriggerService {
	if fwd == nil {
		fwd = forward.Noop{}
	}
	if platform == "" {
		platform = forward.DefaultPlatform
	}
	s := &triggerService{
		cooldown:  store,
		forwarder: fwd,
		platform:  platform,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Trigger runs the cooldown check before body validation, so a malformed
// request from a verified caller still spends its slot.
func (s *triggerService) Trigger(ctx context.Context, ident *identity.Identity, actionID string) (*domain.TriggerResult, error) {
	l := log.Ctx(ctx)
	now := s.now()

	decision, err := s.cooldown.Hit(ctx, ident.StableID, now)
	if err != nil {
		// Store outage: let the request through rather than lock every viewer out.
		l.Error().Err(err).Str(log.FieldUserID, ident.StableID).Msg("cooldown store unavailable")
	} else if !decision.Allowed {
		audit.Rejected(ctx, ident.StableID, actionID, audit.ReasonCooldown)
		return nil, &CooldownError{RetryAfter: decision.RetryAfter}
	}

	actionID = strings.TrimSpace(actionID)
	if actionID == "" {
		audit.Rejected(ctx, ident.StableID, "", audit.ReasonMissingActionID)
		return nil, ErrMissingActionID
	}

	action := forward.Action{
		ActionID: actionID,
		User:     ident.DisplayName,
		UserID:   ident.StableID,
		Platform: s.platform,
	}
	if err := s.forwarder.Forward(ctx, action); err != nil {
		audit.Rejected(ctx, ident.StableID, actionID, audit.ReasonForwardFailed)
		return nil, &ForwardError{Message: downstreamMessage(err), Err: err}
	}

	audit.Accepted(ctx, ident.StableID, ident.DisplayName, actionID, s.forwarder.Name())

	return &domain.TriggerResult{
		ActionID:   actionID,
		User:       ident.DisplayName,
		UserID:     ident.StableID,
		Platform:   s.platform,
		AcceptedAt: now,
	}, nil
}

func downstreamMessage(err error) string {
	var de *forward.DownstreamError
	if errors.As(err, &de) {
		if de.Message != "" {
			return de.Message
		}
		return fmt.Sprintf("HTTP %d", de.StatusCode)
	}
	return err.Error()
}
