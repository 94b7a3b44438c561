package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"discount-pin-service/internal/domain/model"
	"discount-pin-service/internal/domain/ports/repository"
	"discount-pin-service/internal/infra/metrics"
	red "discount-pin-service/internal/infra/redis"
)

var _ repository.RedemptionRepository = (*redemptionRepoCacheDecorator)(nil)

// redemptionRepoCacheDecorator caches verification lookups. Records never
// change after insert, so there is nothing to invalidate.
type redemptionRepoCacheDecorator struct {
	inner repository.RedemptionRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewRedemptionRepoCacheDecorator(inner repository.RedemptionRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.RedemptionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	l := logger.With().Str("component", "redemption_cache").Logger()
	return &redemptionRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: &l}
}

func redemptionKey(code string) string { return fmt.Sprintf("redemption:%s", code) }

func (d *redemptionRepoCacheDecorator) Create(ctx context.Context, tx repository.Tx, rec *model.RedemptionRecord) error {
	// not cached here: the tx may still roll back
	return d.inner.Create(ctx, tx, rec)
}

func (d *redemptionRepoCacheDecorator) FindByVerificationCode(ctx context.Context, tx repository.Tx, code string) (*model.RedemptionRecord, error) {
	// reads inside a transaction go straight to the store
	if tx != nil {
		return d.inner.FindByVerificationCode(ctx, tx, code)
	}
	key := redemptionKey(code)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var rec model.RedemptionRecord
		if json.Unmarshal([]byte(val), &rec) == nil {
			metrics.IncCacheRequest("redemption", "hit")
			return &rec, nil
		}
	} else if !red.IsMiss(err) {
		metrics.IncCacheRequest("redemption", "error")
		d.log.Warn().Err(err).Msg("redis get failed")
	}

	metrics.IncCacheRequest("redemption", "miss")
	rec, err := d.inner.FindByVerificationCode(ctx, tx, code)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(rec); err == nil {
		if err := d.cache.Set(ctx, key, b, d.ttl); err != nil {
			d.log.Warn().Err(err).Msg("redis set failed")
		}
	}
	return rec, nil
}

func (d *redemptionRepoCacheDecorator) ListBySubscriber(ctx context.Context, tx repository.Tx, subscriberID string, limit int) ([]*model.RedemptionRecord, error) {
	return d.inner.ListBySubscriber(ctx, tx, subscriberID, limit)
}
