package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/strombreaker/widget/internal/config"
	"github.com/zhouzirui/strombreaker/widget/internal/events"
	"github.com/zhouzirui/strombreaker/widget/internal/handler"
	"github.com/zhouzirui/strombreaker/widget/internal/identity"
	"github.com/zhouzirui/strombreaker/widget/internal/logging"
	chatService "github.com/zhouzirui/strombreaker/widget/internal/service/chat"
	"github.com/zhouzirui/strombreaker/widget/internal/service/wellness"
	"github.com/zhouzirui/strombreaker/widget/internal/service/widget"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if err := logging.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatal().Err(err).Msg("failed to configure logging")
	}
	if envErr != nil {
		log.Debug().Err(envErr).Msg("no .env file, using system environment variables only")
	}

	store, closeStore, err := identity.Open(cfg.Identity.Backend, cfg.Identity.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open identity store")
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn().Err(err).Msg("identity store close failed")
		}
	}()

	api, err := wellness.NewClient(cfg.API.BaseURL, wellness.WithTimeout(cfg.API.Timeout()))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create wellness client")
	}

	bus, err := events.NewBus(events.Config{
		RedisAddr:  cfg.Events.RedisAddr,
		RedisGroup: cfg.Events.RedisGroup,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event bus")
	}
	defer func() {
		if err := bus.Close(); err != nil {
			log.Warn().Err(err).Msg("event bus close failed")
		}
	}()

	widgets := widget.NewService(api, store,
		widget.WithRequestTimeout(cfg.API.Timeout()),
		widget.WithListenerFactory(func(string) chatService.Listener { return bus.Sink() }),
	)
	defer widgets.CloseAll()

	router := handler.NewRouter(widgets, bus)

	log.Info().
		Str("backend", cfg.API.BaseURL).
		Str("identity", cfg.Identity.Backend).
		Bool("redis_events", cfg.Events.RedisAddr != "").
		Msg("widget host configured")

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("StromBreaker widget host listening")
	if err := runServer(ctx, srv); err != nil {
		log.Error().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
