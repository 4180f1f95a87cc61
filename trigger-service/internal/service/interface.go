package service

import (
	"context"
	"errors"
	"time"

	"github.com/acidjurassic/isla-toxica-commands/pkg/identity"
	"github.com/acidjurassic/isla-toxica-commands/trigger-service/internal/domain"
)

var (
	ErrCooldown        = errors.New("cooldown")
	ErrMissingActionID = errors.New("missing actionId")
	ErrForwardFailed   = errors.New("bot hook failed")
)

// CooldownError is returned when the caller's window has not elapsed.
type CooldownError struct {
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string { return ErrCooldown.Error() }
func (e *CooldownError) Unwrap() error { return ErrCooldown }

// ForwardError wraps a bot integration failure. Message is the downstream's
// own text when it supplied one.
type ForwardError struct {
	Message string
	Err     error
}

func (e *ForwardError) Error() string { return ErrForwardFailed.Error() + ": " + e.Message }

func (e *ForwardError) Unwrap() []error { return []error{ErrForwardFailed, e.Err} }

// TriggerService applies the guard's per-identity rules to a verified caller.
type TriggerService interface {
	Trigger(ctx context.Context, ident *identity.Identity, actionID string) (*domain.TriggerResult, error)
}
