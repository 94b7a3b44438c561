// File: cmd/renew/main.go
//
// renew runs a single renewal pass and exits. It is meant for external
// schedulers (cron, Kubernetes CronJob) when the app's own worker is disabled.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"discount-pin-service/internal/application"
	"discount-pin-service/internal/config"
	"discount-pin-service/internal/infra/logging"
	"discount-pin-service/internal/infra/sched"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Printf("config: %v", err)
		return 1
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := application.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("startup failed")
		return 1
	}
	defer c.Close()

	worker, err := sched.NewRenewalWorker(cfg.Scheduler, c.Renewals, c.RunLocker(), c.Reporter, logger)
	if err != nil {
		logger.Error().Err(err).Msg("renewal worker")
		return 1
	}

	report, err := worker.RunOnce(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("renewal run failed")
		return 1
	}
	if len(report.Failures) > 0 {
		logger.Error().Int("failed", len(report.Failures)).Msg("renewal finished with failures")
		return 1
	}
	return 0
}
