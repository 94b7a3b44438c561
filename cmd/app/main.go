// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"discount-pin-service/internal/application"
	"discount-pin-service/internal/config"
	"discount-pin-service/internal/infra/api"
	pg "discount-pin-service/internal/infra/db/postgres"
	"discount-pin-service/internal/infra/logging"
	"discount-pin-service/internal/infra/metrics"
	"discount-pin-service/internal/infra/sched"
)

// stamped via -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, in-memory store allowed)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit, time.Now())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Stores, caches, use cases ----
	c, err := application.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("startup failed")
	}
	defer c.Close()

	if c.Pool != nil {
		go pg.ReportPoolStats(ctx, c.Pool, 15*time.Second)
	}

	auth, err := api.NewAuthenticator(cfg.Security.JWTSecret)
	if err != nil {
		logger.Fatal().Err(err).Msg("jwt authenticator")
	}

	// ---- Renewal worker ----
	worker, err := sched.NewRenewalWorker(cfg.Scheduler, c.Renewals, c.RunLocker(), c.Reporter, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("renewal worker")
	}
	go func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("renewal worker stopped")
		}
	}()

	// ---- HTTP ----
	srv := api.NewServer(api.Deps{
		Redemptions:   c.Redemptions,
		Plans:         c.Plans,
		Family:        c.Family,
		Renewals:      worker,
		Auth:          auth,
		Limiter:       c.RateLimiter(),
		CodeRateLimit: cfg.HTTP.CodeRateLimit,
		Ready:         c.Ready,
		RedeemTimeout: cfg.HTTP.RedeemTimeout,
	}, logger)
	server := api.NewHTTPServer(fmt.Sprintf(":%d", cfg.HTTP.Port), srv.Router(), cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout)

	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Str("version", version).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	// ---- Graceful shutdown ----
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown requested")
	case err := <-errc:
		logger.Error().Err(err).Msg("http server error")
	}
	stop()

	sctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(sctx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
