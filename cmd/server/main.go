package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/loopcast/studio-signaling/internal/adapters/http"
	"github.com/loopcast/studio-signaling/internal/adapters/redisstore"
	sigws "github.com/loopcast/studio-signaling/internal/adapters/signal"
	"github.com/loopcast/studio-signaling/internal/app"
	"github.com/loopcast/studio-signaling/internal/auth"
	"github.com/loopcast/studio-signaling/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if cfg.Secret == "" {
		log.Fatal().Msg("secret must be configured")
	}

	store := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer store.Close()
	if err := store.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis not reachable at startup")
	}

	// Wire the registry, limiter and reaper with the controller.
	notifier := redisstore.NewNotifier(store)
	registry := app.NewRegistry()
	limiter := app.NewRateLimiter(cfg.RateLimitMessages, cfg.RateLimitWindow)
	reaper := &app.Reaper{Registry: registry, Interval: cfg.ReaperInterval, MaxIdle: cfg.MaxIdle}

	ctl := &sigws.Controller{
		Cfg:      cfg,
		Auth:     auth.NewTokenAuthenticator(cfg.Secret),
		Rooms:    store,
		Presence: notifier,
		Registry: registry,
		Limiter:  limiter,
		Policy:   app.KickSlowPolicy{},
	}

	go notifier.Run(ctx)
	go limiter.Run(ctx, cfg.RateLimitSweep)
	go reaper.Run(ctx)

	r := router.SetupRouter(ctx, cfg, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("signaling server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
