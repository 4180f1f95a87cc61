package audit

import (
	"context"

	"github.com/acidjurassic/isla-toxica-commands/pkg/log"
)

// Audit actions for relay-service.
const (
	ActionRelayAccepted = "relay.accepted"
	ActionRelayRejected = "relay.rejected"
)

const (
	FieldAction = "action"
	FieldReason = "reason"
)

// Accepted records an action relayed to the bots.
func Accepted(ctx context.Context, clientID, userID, username, actionID string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, ActionRelayAccepted).
		Str(log.FieldClientID, clientID).
		Str(log.FieldUserID, userID).
		Str(log.FieldUsername, username).
		Str(log.FieldActionID, actionID).
		Msg("relay trigger accepted")
}

// Rejected records a refused panel message.
func Rejected(ctx context.Context, clientID, userID, actionID, reason string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, ActionRelayRejected).
		Str(log.FieldClientID, clientID).
		Str(log.FieldUserID, userID).
		Str(log.FieldActionID, actionID).
		Str(FieldReason, reason).
		Msg("relay trigger rejected")
}
