package domain

// Message types exchanged on the relay sockets.
const (
	MsgTypeTrigger = "trigger"
	MsgTypeAck     = "ack"
	MsgTypeError   = "error"
	MsgTypePing    = "ping"
	MsgTypePong    = "pong"
	MsgTypeWelcome = "welcome"
)

// Error codes
const (
	ErrCodeBadRequest = "BAD_REQUEST"
	ErrCodeForbidden  = "FORBIDDEN"
	ErrCodeCooldown   = "COOLDOWN"
	ErrCodeBadGateway = "BAD_GATEWAY"
)

// BaseMessage is the base structure for all WebSocket messages.
// Panel trigger messages may omit the type.
type BaseMessage struct {
	Type string `json:"type,omitempty"`
}

// Panel -> relay

// TriggerMessage is sent by a panel for one action.
type TriggerMessage struct {
	Type     string `json:"type,omitempty"`
	ActionID string `json:"actionId"`
	User     string `json:"user"`
	UserID   string `json:"userId"`
	Platform string `json:"platform"`
	Secret   string `json:"secret"`
}

// CooldownKey is the identity the relay rate-limits on.
func (m *TriggerMessage) CooldownKey() string {
	if m.UserID != "" {
		return m.UserID
	}
	return m.User
}

// Relay -> panel

type AckMessage struct {
	Type     string `json:"type"`
	ActionID string `json:"actionId"`
}

type ErrorMessage struct {
	Type         string `json:"type"`
	Code         string `json:"code"`
	Message      string `json:"message"`
	RetryAfterMs int64  `json:"retryAfterMs,omitempty"`
}

// Relay -> bot

// TriggerOut is broadcast to bot subscribers for every accepted action.
type TriggerOut struct {
	Type     string `json:"type"`
	ActionID string `json:"actionId"`
	User     string `json:"user"`
	UserID   string `json:"userId"`
	Platform string `json:"platform"`
	Source   string `json:"source"`
}

// WelcomeMessage greets a freshly connected socket.
type WelcomeMessage struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId"`
	Role     string `json:"role"`
}

func NewErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	}
}

func NewAckMessage(actionID string) *AckMessage {
	return &AckMessage{Type: MsgTypeAck, ActionID: actionID}
}
