// File: cmd/migrate/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"discount-pin-service/internal/config"
	"discount-pin-service/internal/infra/db/migrations"
	"discount-pin-service/internal/infra/logging"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	dsn := flag.String("dsn", "", "database URL; overrides database.url from the config")
	cmd := flag.String("cmd", "up", "goose command: up|down|status|version|redo|reset")
	flag.Parse()

	logCfg := config.LogConfig{Level: "info", Format: "console"}
	url := *dsn
	if url == "" {
		cfg, err := config.LoadConfig(*cfgPath, false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
		url = cfg.Database.URL
		logCfg = cfg.Log
	}
	logger := logging.New(logCfg, false).With().Str("cmd", *cmd).Logger()

	db, err := migrations.Open(url)
	if err != nil {
		logger.Error().Err(err).Msg("open database")
		os.Exit(1)
	}
	defer db.Close()

	// remaining args go to goose, e.g. `-cmd=up-to 20261001000000`
	if err := migrations.Run(context.Background(), db, *cmd, flag.Args()...); err != nil {
		logger.Error().Err(err).Msg("migration failed")
		db.Close()
		os.Exit(1)
	}
	logger.Info().Msg("migrations done")
}
