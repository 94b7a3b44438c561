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

var _ repository.UserRepository = (*userRepoCacheDecorator)(nil)

// userRepoCacheDecorator caches owner lookups used for receipts and previews.
// Entries expire after ttl; profile edits happen outside this service.
type userRepoCacheDecorator struct {
	inner repository.UserRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewUserRepoCacheDecorator(inner repository.UserRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.UserRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	l := logger.With().Str("component", "user_cache").Logger()
	return &userRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: &l}
}

func (d *userRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	if tx != nil {
		return d.inner.FindByID(ctx, tx, id)
	}
	key := fmt.Sprintf("user:id:%s", id)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var u model.User
		if json.Unmarshal([]byte(val), &u) == nil {
			metrics.IncCacheRequest("user", "hit")
			return &u, nil
		}
	} else if !red.IsMiss(err) {
		metrics.IncCacheRequest("user", "error")
		d.log.Warn().Err(err).Msg("redis get failed")
	}

	metrics.IncCacheRequest("user", "miss")
	u, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(u); err == nil {
		if err := d.cache.Set(ctx, key, b, d.ttl); err != nil {
			d.log.Warn().Err(err).Msg("redis set failed")
		}
	}
	return u, nil
}
