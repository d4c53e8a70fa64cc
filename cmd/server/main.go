package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Clark-Hu/lms-api/internal/auth"
	"github.com/Clark-Hu/lms-api/internal/config"
	httpserver "github.com/Clark-Hu/lms-api/internal/http"
	"github.com/Clark-Hu/lms-api/internal/logging"
	"github.com/Clark-Hu/lms-api/internal/metrics"
	"github.com/Clark-Hu/lms-api/internal/repository"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(os.Getenv("LMS_ENV_FILE")); err != nil {
		log.Fatal().Err(err).Msg("load env file")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}

	logger := logging.New(logging.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "lms-api",
	})

	dbCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	repo, backend, err := repository.Open(dbCtx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("open database")
	}
	defer backend.Close()

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, time.Duration(cfg.JWTTTLSecs)*time.Second)
	if err != nil {
		logger.Fatal().Err(err).Msg("init token manager")
	}

	if cfg.AdminToken == "" {
		logger.Info().Msg("ADMIN_TOKEN not set, course creation endpoint disabled")
	}

	server := httpserver.New(cfg, backend, repo, tokens, metrics.New(), logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("server error")
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
	logger.Info().Msg("server stopped")
}
