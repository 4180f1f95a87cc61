package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	pkglog "github.com/acidjurassic/isla-toxica-commands/pkg/log"
)

// RouterConfig controls the shared middleware chain.
type RouterConfig struct {
	RequestsPerMinute int
	Development       bool
}

// NewRouter builds the guard's gin engine. Middleware order: recovery,
// request log, security headers, per-IP limit; the per-route auth check runs
// after these.
func NewRouter(h *Handler, logger zerolog.Logger, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))
	r.Use(SecureHeaders(cfg.Development))
	r.Use(RateLimit(cfg.RequestsPerMinute))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	h.RegisterRoutes(r)
	return r
}
