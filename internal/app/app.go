package app

import (
	"context"
	"errors"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-notify/internal/auth"
	"github.com/vovakirdan/wirechat-notify/internal/config"
	"github.com/vovakirdan/wirechat-notify/internal/core"
	"github.com/vovakirdan/wirechat-notify/internal/listener"
	transporthttp "github.com/vovakirdan/wirechat-notify/internal/transport/http"
)

// App wires the change listener, registry, router, and HTTP transport.
type App struct {
	server          *stdhttp.Server
	listener        *listener.Listener
	shutdownTimeout time.Duration
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) *App {
	registry := core.NewRegistry(cfg.ChannelCapacity, cfg.EvictIdle)
	router := core.NewRouter(registry, logger)

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      24 * time.Hour,
	}
	verifier := auth.NewVerifier(jwtConfig)

	server := transporthttp.NewServer(registry, verifier, cfg, logger)
	lst := listener.New(cfg.DatabaseURL, cfg.NotifyChannel, router, logger)

	return &App{
		server:          server,
		listener:        lst,
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}
}

// Run starts the listener and HTTP server and blocks until context
// cancellation or fatal error. The listener reconnects on its own; only
// the HTTP server failing brings the process down.
func (a *App) Run(ctx context.Context) error {
	listenerCtx, stopListener := context.WithCancel(ctx)
	defer stopListener()

	go func() {
		if err := a.listener.Run(listenerCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Error().Err(err).Msg("change listener stopped")
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-serverErr
	}
}
