package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"discount-pin-service/internal/config"
	"discount-pin-service/internal/infra/metrics"
)

// NewPool connects to Postgres and retries the initial ping a few times so the
// service can start alongside its database container.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, log *zerolog.Logger) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}

	var pool *pgxpool.Pool
	const attempts = 5
	for i := 1; i <= attempts; i++ {
		cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		pool, err = pgxpool.ConnectConfig(cctx, pcfg)
		if err == nil {
			err = pool.Ping(cctx)
		}
		cancel()
		if err == nil {
			return pool, nil
		}
		if pool != nil {
			pool.Close()
		}
		log.Warn().Err(err).Int("attempt", i).Msg("database not ready")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i) * time.Second):
		}
	}
	return nil, fmt.Errorf("connect postgres: %w", err)
}

// ReportPoolStats publishes pool gauges every interval until ctx is done.
func ReportPoolStats(ctx context.Context, pool *pgxpool.Pool, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		s := pool.Stat()
		metrics.SetDBPoolStats(metrics.PoolSnapshot{
			Total:       s.TotalConns(),
			Idle:        s.IdleConns(),
			Acquired:    s.AcquiredConns(),
			Max:         s.MaxConns(),
			AcquireWait: s.AcquireDuration(),
		})
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
