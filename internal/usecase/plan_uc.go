package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"discount-pin-service/internal/domain"
	"discount-pin-service/internal/domain/model"
	"discount-pin-service/internal/domain/ports/adapter"
	"discount-pin-service/internal/domain/ports/repository"
	"discount-pin-service/internal/infra/logging"
	"discount-pin-service/internal/pincode"
)

// Compile-time check
var _ PlanUseCase = (*planUC)(nil)

// PlanUseCase manages a subscriber's plan and its first code.
type PlanUseCase interface {
	Get(ctx context.Context, ownerID string) (*model.Plan, error)
	EnsureFreePlan(ctx context.Context, ownerID string) (*model.Plan, error)
	// Upgrade moves the plan to a paid tier. The returned code is the plain
	// value of a newly issued code, or empty when the current one stays valid.
	Upgrade(ctx context.Context, ownerID string, tier model.PlanTier) (*model.Plan, string, error)
	Deactivate(ctx context.Context, ownerID string) error
}

type planUC struct {
	plans    repository.PlanRepository
	users    repository.UserRepository
	tm       repository.TransactionManager
	locker   repository.KeyLocker
	notifier adapter.CodeNotifier
	codec    *pincode.Codec
	hasher   *pincode.Hasher
	log      *zerolog.Logger
}

func NewPlanUseCase(
	plans repository.PlanRepository,
	users repository.UserRepository,
	tm repository.TransactionManager,
	locker repository.KeyLocker,
	notifier adapter.CodeNotifier,
	codec *pincode.Codec,
	hasher *pincode.Hasher,
	logger *zerolog.Logger,
) *planUC {
	l := logger.With().Str("component", "plan").Logger()
	return &planUC{
		plans:    plans,
		users:    users,
		tm:       tm,
		locker:   locker,
		notifier: notifier,
		codec:    codec,
		hasher:   hasher,
		log:      &l,
	}
}

func (u *planUC) Get(ctx context.Context, ownerID string) (*model.Plan, error) {
	defer logging.TraceDuration(u.log, "PlanUC.Get")()
	return u.plans.FindByOwner(ctx, repository.NoTX, ownerID)
}

// EnsureFreePlan returns the owner's plan, creating the free one on first call.
func (u *planUC) EnsureFreePlan(ctx context.Context, ownerID string) (*model.Plan, error) {
	defer logging.TraceDuration(u.log, "PlanUC.EnsureFreePlan")()

	var plan *model.Plan
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.locker.LockKey(ctx, tx, "plan-owner:"+ownerID); err != nil {
			return err
		}
		existing, err := u.plans.FindByOwner(ctx, tx, ownerID)
		if err == nil {
			plan = existing
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		p, err := model.NewFreePlan(ownerID)
		if err != nil {
			return err
		}
		if err := u.plans.Save(ctx, tx, p); err != nil {
			return err
		}
		plan = p
		return nil
	})
	return plan, err
}

// Upgrade changes the tier under the plan's row lock, then issues a code when
// the plan has none for the current month. Usage and seat counters are never
// written back from the value read here.
func (u *planUC) Upgrade(ctx context.Context, ownerID string, tier model.PlanTier) (*model.Plan, string, error) {
	defer logging.TraceDuration(u.log, "PlanUC.Upgrade")()
	log := logging.With(ctx, u.log)

	if !tier.IsPaid() {
		return nil, "", fmt.Errorf("%w: tier %q is not a paid tier", domain.ErrInvalidArgument, tier)
	}

	var plan *model.Plan
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.plans.FindByOwner(ctx, tx, ownerID)
		if err != nil {
			return err
		}
		if err := p.ApplyTier(tier); err != nil {
			return err
		}
		p.Active = true
		ok, err := u.plans.ChangeTier(ctx, tx, p)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrFamilySeatsInUse
		}
		plan = p
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	now := u.codec.Now()
	if plan.HasCode() && !u.codec.IsExpiredAt(plan.CodeIssuedAt, now) {
		log.Info().Str("plan_id", plan.ID).Str("tier", string(tier)).Msg("plan tier changed")
		return plan, "", nil
	}

	code, err := u.issueCode(ctx, plan, now)
	if err != nil {
		return nil, "", err
	}
	if code == "" {
		// a renewal rotated the code first and delivers it itself
		fresh, err := u.plans.FindByID(ctx, repository.NoTX, plan.ID)
		if err != nil {
			return nil, "", err
		}
		log.Info().Str("plan_id", plan.ID).Str("tier", string(tier)).Msg("plan upgraded, code issued concurrently")
		return fresh, "", nil
	}
	log.Info().Str("plan_id", plan.ID).Str("tier", string(tier)).Msg("plan upgraded, code issued")
	u.deliver(ctx, plan, code)
	return plan, code, nil
}

// issueCode swaps in a fresh code guarded by the issue time read under lock.
// A unique violation aborts a Postgres transaction, so each attempt is its own
// write. An empty code with a nil error means another writer rotated first.
func (u *planUC) issueCode(ctx context.Context, plan *model.Plan, now time.Time) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := pincode.Generate()
		if err != nil {
			return "", err
		}
		codeHash, err := u.hasher.Hash(code)
		if err != nil {
			return "", err
		}
		ok, err := u.plans.RotateCode(ctx, repository.NoTX, plan.ID, plan.CodeIssuedAt, codeHash, now)
		if errors.Is(err, domain.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return "", err
		}
		if !ok {
			return "", nil
		}
		issued := now
		plan.CodeHash = &codeHash
		plan.CodeIssuedAt = &issued
		plan.CodeUsageCount = 0
		return code, nil
	}
	return "", fmt.Errorf("%w: no unique code after %d attempts", domain.ErrOperationFailed, maxCodeAttempts)
}

// Deactivate switches the plan off. Plans are never deleted.
func (u *planUC) Deactivate(ctx context.Context, ownerID string) error {
	defer logging.TraceDuration(u.log, "PlanUC.Deactivate")()
	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		plan, err := u.plans.FindByOwner(ctx, tx, ownerID)
		if err != nil {
			return err
		}
		if !plan.Active {
			return nil
		}
		return u.plans.SetActive(ctx, tx, plan.ID, false)
	})
}

func (u *planUC) deliver(ctx context.Context, plan *model.Plan, code string) {
	if u.notifier == nil {
		return
	}
	owner, err := u.users.FindByID(ctx, repository.NoTX, plan.OwnerID)
	if err != nil {
		logging.With(ctx, u.log).Warn().Err(err).Str("plan_id", plan.ID).Msg("owner lookup failed, code not delivered")
		return
	}
	if err := u.notifier.NotifyCodeIssued(ctx, owner, code, u.codec.ExpiryInstant()); err != nil {
		logging.With(ctx, u.log).Warn().Err(err).Str("plan_id", plan.ID).Msg("code delivery failed")
	}
}
