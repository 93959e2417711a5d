package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/99minutos/auth-service/internal/api"
	"github.com/99minutos/auth-service/internal/core/service"
	"github.com/99minutos/auth-service/internal/infrastructure/config"
	"github.com/99minutos/auth-service/internal/infrastructure/hashing"
	"github.com/99minutos/auth-service/internal/infrastructure/queue"
	"github.com/99minutos/auth-service/internal/infrastructure/token"
	"github.com/99minutos/auth-service/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  `Start the HTTP API. All settings are read from environment variables.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "authd",
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open account store")
		return err
	}
	defer be.close()

	issuer, err := token.NewJWTIssuer(cfg.Auth.JWTSecret, cfg.TokenTTL())
	if err != nil {
		return err
	}

	poolCtx, cancelPool := context.WithCancel(context.Background())
	pool := queue.NewHashPool(cfg.Auth.HashWorkers, hashing.NewBcryptHasher(cfg.Auth.BcryptCost), log)
	pool.Start(poolCtx)
	defer func() {
		cancelPool()
		pool.Wait()
	}()

	svc := service.NewAuthService(be.store, pool, issuer, cfg.Auth.RequestTimeout, log)
	if err := svc.Warmup(ctx); err != nil {
		// Retried on the first unknown-email login.
		log.Warn().Err(err).Msg("dummy hash warmup failed")
	}

	e := api.NewRouter(api.Deps{
		AuthService:      svc,
		Verifier:         issuer,
		Pingers:          be.pingers,
		Log:              log,
		CORSAllowOrigins: cfg.HTTP.CORSAllowOrigins,
		StaticDir:        cfg.HTTP.StaticDir,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	log.Info().
		Str("port", cfg.Port).
		Str("store", cfg.Store.Driver).
		Int("hash_workers", pool.Workers()).
		Msg("auth service listening")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		log.Error().Err(err).Msg("http server failed")
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
