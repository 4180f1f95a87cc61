package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/acidjurassic/isla-toxica-commands/pkg/cooldown"
	"github.com/acidjurassic/isla-toxica-commands/pkg/forward"
	"github.com/acidjurassic/isla-toxica-commands/pkg/identity"
	pkglog "github.com/acidjurassic/isla-toxica-commands/pkg/log"
	"github.com/acidjurassic/isla-toxica-commands/pkg/middleware"
	"github.com/acidjurassic/isla-toxica-commands/trigger-service/internal/config"
	"github.com/acidjurassic/isla-toxica-commands/trigger-service/internal/handler"
	"github.com/acidjurassic/isla-toxica-commands/trigger-service/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize structured logger
	if err := pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "trigger-service",
	}); err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to init logger")
	}
	logger := pkglog.L()

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Cooldown store
	store, err := cooldown.New(cfg.CooldownStore(), cfg.Cooldown.Window)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create cooldown store")
	}
	defer store.Close()

	// Bot integration
	fwd, err := forward.New(cfg.Forwarder())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create forwarder")
	}
	defer fwd.Close()

	// Identity verifier
	verifier := identity.NewVerifier(cfg.Twitch.ValidateURL,
		identity.WithHTTPClient(&http.Client{Timeout: cfg.Twitch.Timeout}),
		identity.WithExpectedClientID(cfg.Twitch.ClientID),
	)
	authMiddleware := middleware.NewAuthMiddleware(verifier)

	triggerService := service.NewTriggerService(store, fwd, cfg.Forward.Platform)
	httpHandler := handler.NewHandler(triggerService, authMiddleware)

	router := handler.NewRouter(httpHandler, logger, handler.RouterConfig{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Development:       cfg.Log.Level == "debug",
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().
			Str("addr", addr).
			Dur("cooldown", store.Window()).
			Str("cooldown_backend", cfg.Cooldown.Backend).
			Str("forwarder", fwd.Name()).
			Msg("trigger-service starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info().Msg("shutting down trigger-service")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("trigger-service stopped with error")
		return
	}
	logger.Info().Msg("trigger-service stopped")
}
