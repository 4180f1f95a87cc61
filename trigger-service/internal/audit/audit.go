package audit

import (
	"context"

	"github.com/acidjurassic/isla-toxica-commands/pkg/log"
)

// Audit actions for trigger-service.
const (
	ActionTriggerAccepted = "trigger.accepted"
	ActionTriggerRejected = "trigger.rejected"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldReason = "reason"
)

// Rejection reasons.
const (
	ReasonCooldown        = "cooldown"
	ReasonMissingActionID = "missing_action_id"
	ReasonForwardFailed   = "forward_failed"
)

// Accepted records an action that reached the bot integration.
func Accepted(ctx context.Context, userID, username, actionID, forwarder string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, ActionTriggerAccepted).
		Str(log.FieldUserID, userID).
		Str(log.FieldUsername, username).
		Str(log.FieldActionID, actionID).
		Str(log.FieldTransport, forwarder).
		Msg("trigger accepted")
}

// Rejected records a verified caller whose trigger was refused.
func Rejected(ctx context.Context, userID, actionID, reason string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, ActionTriggerRejected).
		Str(log.FieldUserID, userID).
		Str(log.FieldActionID, actionID).
		Str(FieldReason, reason).
		Msg("trigger rejected")
}
