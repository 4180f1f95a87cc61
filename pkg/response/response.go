package response

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Response represents a standard API response.
type Response struct {
	OK    bool       `json:"ok"`
	Error *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo contains error details.
type ErrorInfo struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RetryAfterMs int64  `json:"retryAfterMs,omitempty"`
}

// TriggerAccepted is the body of a successful trigger.
type TriggerAccepted struct {
	OK       bool   `json:"ok"`
	User     string `json:"user"`
	UserID   string `json:"userId,omitempty"`
	ActionID string `json:"actionId"`
}

// Error codes shared by the guard and its clients.
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeCooldown         = "COOLDOWN"
	CodeRateLimited      = "RATE_LIMITED"
	CodeBadGateway       = "BAD_GATEWAY"
	CodeInternal         = "INTERNAL_ERROR"
	CodeNotFound         = "NOT_FOUND"
)

// Accepted sends a 200 response for an accepted trigger.
func Accepted(c *gin.Context, user, userID, actionID string) {
	c.JSON(http.StatusOK, TriggerAccepted{
		OK:       true,
		User:     user,
		UserID:   userID,
		ActionID: actionID,
	})
}

// Error sends an error response and aborts the handler chain.
func Error(c *gin.Context, statusCode int, code, message string) {
	c.AbortWithStatusJSON(statusCode, Response{
		OK: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	})
}

// BadRequest sends a 400 error response.
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, CodeBadRequest, message)
}

// Unauthorized sends a 401 error response.
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, CodeUnauthorized, message)
}

// MethodNotAllowed sends a 405 error response.
func MethodNotAllowed(c *gin.Context) {
	Error(c, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Method not allowed")
}

// NotFound sends a 404 error response.
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, CodeNotFound, message)
}

// Cooldown sends a 429 response with a Retry-After hint.
func Cooldown(c *gin.Context, retryAfter time.Duration) {
	secs := int64((retryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	c.Header("Retry-After", strconv.FormatInt(secs, 10))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, Response{
		OK: false,
		Error: &ErrorInfo{
			Code:         CodeCooldown,
			Message:      "Cooldown",
			RetryAfterMs: retryAfter.Milliseconds(),
		},
	})
}

// BadGateway sends a 502 error response.
func BadGateway(c *gin.Context, message string) {
	Error(c, http.StatusBadGateway, CodeBadGateway, message)
}

// InternalError sends a 500 error response.
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, CodeInternal, message)
}
