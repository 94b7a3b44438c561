// Package application wires stores, caches, notifiers and use cases from config.
package application

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"discount-pin-service/internal/config"
	"discount-pin-service/internal/domain/ports/adapter"
	"discount-pin-service/internal/domain/ports/repository"
	"discount-pin-service/internal/infra/adapters/telegram"
	"discount-pin-service/internal/infra/api"
	"discount-pin-service/internal/infra/db/memory"
	pg "discount-pin-service/internal/infra/db/postgres"
	red "discount-pin-service/internal/infra/redis"
	"discount-pin-service/internal/infra/sched"
	"discount-pin-service/internal/pincode"
	"discount-pin-service/internal/usecase"
)

// MemoryDSN selects the in-process store. Only honoured in dev mode.
const MemoryDSN = "memory"

type notifier interface {
	adapter.CodeNotifier
	adapter.ReportNotifier
}

type stores struct {
	plans       repository.PlanRepository
	users       repository.UserRepository
	offers      repository.OfferRepository
	redemptions repository.RedemptionRepository
	family      repository.FamilyRepository
	tm          repository.TransactionManager
	locker      repository.KeyLocker
}

// Container holds everything the commands need. Locker and Limiter are nil
// without Redis; Pool and Memory are mutually exclusive.
type Container struct {
	Codec  *pincode.Codec
	Hasher *pincode.Hasher

	Redemptions usecase.RedemptionUseCase
	Plans       usecase.PlanUseCase
	Family      usecase.FamilyUseCase
	Renewals    usecase.RenewalUseCase
	Reporter    adapter.ReportNotifier

	Pool    *pgxpool.Pool
	Memory  *memory.Store
	Redis   *red.Client
	Locker  *red.RedisLocker
	Limiter *red.RateLimiter

	closers []func()
}

func Build(ctx context.Context, cfg *config.Config, log *zerolog.Logger) (*Container, error) {
	c := &Container{}
	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	hasher, err := pincode.NewHasher(cfg.Security.CodeHashSecret)
	if err != nil {
		return nil, err
	}
	c.Hasher = hasher
	c.Codec = pincode.NewCodec(nil, cfg.Location())

	if cfg.Redis.URL != "" {
		rc, err := red.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		c.Redis = rc
		c.Locker = red.NewLocker(rc)
		c.Limiter = red.NewRateLimiter(rc)
		c.closers = append(c.closers, func() { _ = rc.Close() })
	}

	var s stores
	if cfg.Database.URL == MemoryDSN {
		if !cfg.Runtime.Dev {
			return nil, errors.New("the memory store is only available in dev mode")
		}
		log.Warn().Msg("using the in-memory store, data is lost on exit")
		c.Memory = memory.NewStore()
		s = stores{
			plans:       c.Memory.Plans(),
			users:       c.Memory.Users(),
			offers:      c.Memory.Offers(),
			redemptions: c.Memory.Redemptions(),
			family:      c.Memory.Family(),
			tm:          c.Memory,
			locker:      c.Memory,
		}
	} else {
		pool, err := pg.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return nil, err
		}
		c.Pool = pool
		c.closers = append(c.closers, pool.Close)
		tm := pg.NewTxManager(pool)
		s = stores{
			plans:       pg.NewPlanRepo(pool),
			users:       pg.NewUserRepo(pool),
			offers:      pg.NewOfferRepo(pool),
			redemptions: pg.NewRedemptionRepo(pool),
			family:      pg.NewFamilyRepo(pool),
			tm:          tm,
			locker:      tm,
		}
		if c.Redis != nil {
			s.redemptions = pg.NewRedemptionRepoCacheDecorator(s.redemptions, c.Redis, cfg.Redis.TTL, log)
			s.users = pg.NewUserRepoCacheDecorator(s.users, c.Redis, cfg.Redis.TTL, log)
		}
	}

	var n notifier
	if cfg.Notify.TelegramToken != "" {
		tn, err := telegram.NewNotifier(cfg.Notify.TelegramToken, cfg.Notify.AdminIDs, cfg.Notify.Language, log)
		if err != nil {
			return nil, err
		}
		n = tn
	} else {
		log.Info().Msg("no telegram token, notifications are logged only")
		n = telegram.NewNoopNotifier(log, cfg.Runtime.Dev)
	}
	c.Reporter = n

	c.Redemptions = usecase.NewRedemptionUseCase(s.plans, s.offers, s.redemptions, s.users, s.tm, s.locker, c.Codec, c.Hasher, log)
	c.Plans = usecase.NewPlanUseCase(s.plans, s.users, s.tm, s.locker, n, c.Codec, c.Hasher, log)
	c.Family = usecase.NewFamilyUseCase(s.plans, s.family, s.tm, c.Codec.Now, log)
	c.Renewals = usecase.NewRenewalUseCase(s.plans, s.users, n, c.Codec, c.Hasher, log)

	ok = true
	return c, nil
}

// RunLocker returns the renewal lock, or nil when Redis is not configured.
func (c *Container) RunLocker() sched.RunLocker {
	if c.Locker == nil {
		return nil
	}
	return c.Locker
}

// RateLimiter returns the request limiter, or nil when Redis is not configured.
func (c *Container) RateLimiter() api.Limiter {
	if c.Limiter == nil {
		return nil
	}
	return c.Limiter
}

// Ready pings every backing service.
func (c *Container) Ready(ctx context.Context) error {
	if c.Pool != nil {
		conn, err := c.Pool.Acquire(ctx)
		if err != nil {
			return err
		}
		defer conn.Release()
		if err := conn.Conn().Ping(ctx); err != nil {
			return err
		}
	}
	if c.Redis != nil {
		return c.Redis.Ping(ctx)
	}
	return nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
