package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/acidjurassic/isla-toxica-commands/pkg/cooldown"
	"github.com/acidjurassic/isla-toxica-commands/pkg/forward"
	pkglog "github.com/acidjurassic/isla-toxica-commands/pkg/log"
	"github.com/acidjurassic/isla-toxica-commands/pkg/pubsub"
	"github.com/acidjurassic/isla-toxica-commands/pkg/storage"
	"github.com/acidjurassic/isla-toxica-commands/relay-service/internal/config"
	"github.com/acidjurassic/isla-toxica-commands/relay-service/internal/descriptor"
	"github.com/acidjurassic/isla-toxica-commands/relay-service/internal/handler"
	"github.com/acidjurassic/isla-toxica-commands/relay-service/internal/hub"
	"github.com/acidjurassic/isla-toxica-commands/relay-service/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize structured logger
	if err := pkglog.Init(pkglog.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, ServiceName: "relay-service"}); err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to init logger")
	}
	logger := pkglog.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = pkglog.WithLogger(ctx, logger)

	// Cooldown for socket triggers
	var store cooldown.Store
	if cfg.Relay.EnforceCooldown {
		store, err = cooldown.New(cfg.CooldownStore(), cfg.Cooldown.Window)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create cooldown store")
		}
		defer store.Close()
	}

	// Bot integration
	fwd, err := forward.New(cfg.Forwarder())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create forwarder")
	}
	if bus, ok := fwd.(*forward.Bus); ok {
		bus.WithSource(pubsub.SourceRealtime)
	}
	defer fwd.Close()

	h := hub.NewHub(cfg.WebSocket)
	go h.Run()

	opts := []service.Option{}
	var sub pubsub.PubSub
	if subCfg, ok := cfg.Subscription(); ok {
		sub, err = pubsub.NewPubSub(subCfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect event bus")
		}
		defer sub.Close()
		opts = append(opts, service.WithSubscriber(sub))
	}

	svc := service.NewRelayService(h, fwd, service.Config{
		Secret:   cfg.Relay.Secret,
		Platform: cfg.Relay.Platform,
		Cooldown: store,
	}, opts...)
	if err := svc.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start relay service")
	}

	// Publish the descriptor so polling panels follow this instance.
	if stCfg, ok := cfg.DescriptorStorage(); ok {
		st, err := storage.New(ctx, stCfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create descriptor storage")
		}
		if err := descriptor.NewPublisher(st, cfg.Descriptor.Key).Publish(ctx, cfg.Server.AdvertiseURL); err != nil {
			logger.Error().Err(err).Msg("failed to publish relay descriptor")
		}
	}

	wsHandler := handler.NewWSHandler(ctx, h, svc, cfg.WebSocket, cfg.Relay.Secret)
	httpHandler := handler.NewHTTPHandler(h, cfg.Server.AdvertiseURL)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     handler.NewRouter(wsHandler, httpHandler, logger, cfg.Log.Level == "debug"),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().
			Str("addr", addr).
			Str("advertise_url", cfg.Server.AdvertiseURL).
			Bool("enforce_cooldown", cfg.Relay.EnforceCooldown).
			Str("forwarder", fwd.Name()).
			Msg("relay-service listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info().Msg("shutting down relay-service")

		stop() // 1. stop the event bus relay
		<-svc.Done()

		h.Stop() // 2. close all sockets

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("relay-service stopped with error")
		return
	}
	logger.Info().Msg("relay-service stopped")
}
