package domain

import "time"

// TriggerRequest is the body of POST /api/trigger.
type TriggerRequest struct {
	ActionID string `json:"actionId"`
}

// TriggerResult describes an accepted action.
type TriggerResult struct {
	ActionID   string
	User       string
	UserID     string
	Platform   string
	AcceptedAt time.Time
}
