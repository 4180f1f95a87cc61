package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/acidjurassic/isla-toxica-commands/pkg/log"
	"github.com/acidjurassic/isla-toxica-commands/pkg/middleware"
	"github.com/acidjurassic/isla-toxica-commands/pkg/response"
	"github.com/acidjurassic/isla-toxica-commands/trigger-service/internal/domain"
	"github.com/acidjurassic/isla-toxica-commands/trigger-service/internal/service"
)

// Handler handles HTTP requests for the trigger guard.
type Handler struct {
	triggerService service.TriggerService
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler creates a new HTTP handler.
func NewHandler(triggerService service.TriggerService, authMiddleware *middleware.AuthMiddleware) *Handler {
	return &Handler{
		triggerService: triggerService,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all routes. The engine must have
// HandleMethodNotAllowed enabled for wrong-method requests to get a 405.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})
	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "Not found")
	})

	api := r.Group("/api")
	{
		api.POST("/trigger", h.authMiddleware.RequireAuth(), h.Trigger)
	}
}

// Trigger accepts one action for the verified caller.
func (h *Handler) Trigger(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	ident := middleware.GetIdentity(c)
	if ident == nil {
		response.Unauthorized(c, "Missing token")
		return
	}

	// A missing or malformed body is not rejected here; the service checks
	// the cooldown first and then reports the absent actionId.
	var req domain.TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Debug().Err(err).Msg("unreadable trigger body")
	}

	result, err := h.triggerService.Trigger(ctx, ident, req.ActionID)
	if err != nil {
		var cooldownErr *service.CooldownError
		var forwardErr *service.ForwardError
		switch {
		case errors.As(err, &cooldownErr):
			response.Cooldown(c, cooldownErr.RetryAfter)
		case errors.Is(err, service.ErrMissingActionID):
			response.BadRequest(c, "Missing actionId")
		case errors.As(err, &forwardErr):
			l.Warn().Err(forwardErr.Err).Str(log.FieldActionID, req.ActionID).Msg("bot hook failed")
			response.BadGateway(c, "Bot hook failed: "+forwardErr.Message)
		default:
			l.Error().Err(err).Msg("failed to trigger action")
			response.InternalError(c, "failed to trigger action")
		}
		return
	}

	response.Accepted(c, result.User, result.UserID, result.ActionID)
}
