package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"coinshelter/internal/amqp"
	"coinshelter/internal/auth"
	"coinshelter/internal/cli"
	apphttp "coinshelter/internal/http"
	"coinshelter/internal/log"
	"coinshelter/internal/shell"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	result := cli.InitBackend(context.Background(), logger, cfg)
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	provider := auth.NewProvider(result.Users, auth.Options{
		Secret:              []byte(cfg.JWTSecret),
		TokenTTL:            cfg.AccessTokenTTL,
		RequireConfirmation: cfg.SignupConfirmation,
	}, logger.WithComponent(log.ComponentAuth))

	// Change event publisher (optional)
	var publisher shell.ChangePublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, change events disabled", log.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange)
		}
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	sh := shell.New(result.Store, provider, publisher, logger.WithComponent(log.ComponentShell))
	srv := apphttp.NewServer(":"+cfg.Port, sh, provider, apphttp.RateLimits{
		PerMinute:       cfg.RateLimitPerMinute,
		StaleAfter:      cfg.RateLimitStaleAfter,
		CleanupInterval: cfg.RateLimitCleanupInterval,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting coinshelter server", "port", cfg.Port, log.FieldBackend, cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
