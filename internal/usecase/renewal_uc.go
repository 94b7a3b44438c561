package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"discount-pin-service/internal/domain"
	"discount-pin-service/internal/domain/model"
	"discount-pin-service/internal/domain/ports/adapter"
	"discount-pin-service/internal/domain/ports/repository"
	"discount-pin-service/internal/infra/logging"
	"discount-pin-service/internal/pincode"
)

// maxCodeAttempts bounds regeneration when a fresh code collides with a live one.
const maxCodeAttempts = 5

// Compile-time check
var _ RenewalUseCase = (*renewalUC)(nil)

// RenewalUseCase rotates the monthly code of every paid plan.
type RenewalUseCase interface {
	RenewAll(ctx context.Context) (*model.RenewalReport, error)
}

type renewalUC struct {
	plans    repository.PlanRepository
	users    repository.UserRepository
	notifier adapter.CodeNotifier
	codec    *pincode.Codec
	hasher   *pincode.Hasher
	generate func() (string, error)
	log      *zerolog.Logger
}

func NewRenewalUseCase(
	plans repository.PlanRepository,
	users repository.UserRepository,
	notifier adapter.CodeNotifier,
	codec *pincode.Codec,
	hasher *pincode.Hasher,
	logger *zerolog.Logger,
) *renewalUC {
	l := logger.With().Str("component", "renewal").Logger()
	return &renewalUC{
		plans:    plans,
		users:    users,
		notifier: notifier,
		codec:    codec,
		hasher:   hasher,
		generate: pincode.Generate,
		log:      &l,
	}
}

// RenewAll issues a new code to every active paid plan whose code belongs to an
// earlier period. A failing plan is reported and the scan moves on. Running it
// twice in the same period renews nothing the second time.
func (u *renewalUC) RenewAll(ctx context.Context) (*model.RenewalReport, error) {
	defer logging.TraceDuration(u.log, "RenewalUC.RenewAll")()
	log := logging.With(ctx, u.log)

	now := u.codec.Now()
	report := &model.RenewalReport{
		Period:    u.codec.PeriodOf(now).String(),
		StartedAt: now,
	}

	plans, err := u.plans.ListRenewable(ctx, repository.NoTX)
	if err != nil {
		return nil, fmt.Errorf("list renewable plans: %w", err)
	}

	for i, p := range plans {
		if err := ctx.Err(); err != nil {
			for _, rest := range plans[i:] {
				report.Failures = append(report.Failures, model.PlanFailure{PlanID: rest.ID, Reason: err.Error()})
			}
			break
		}
		if !u.codec.IsExpiredAt(p.CodeIssuedAt, now) {
			report.Skipped++
			continue
		}

		code, rotated, err := u.rotate(ctx, p, now)
		if err != nil {
			log.Error().Err(err).Str("plan_id", p.ID).Msg("code renewal failed")
			report.Failures = append(report.Failures, model.PlanFailure{PlanID: p.ID, Reason: err.Error()})
			continue
		}
		if !rotated {
			// another renewer got there first
			report.Skipped++
			continue
		}
		report.Renewed++
		u.deliver(ctx, p, code)
	}

	report.FinishedAt = u.codec.Now()
	log.Info().
		Str("period", report.Period).
		Int("renewed", report.Renewed).
		Int("skipped", report.Skipped).
		Int("failed", len(report.Failures)).
		Dur("took", report.FinishedAt.Sub(report.StartedAt)).
		Msg("renewal run finished")
	return report, nil
}

// rotate swaps in a new code, guarded by the plan's previous issue timestamp.
func (u *renewalUC) rotate(ctx context.Context, p *model.Plan, now time.Time) (string, bool, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := u.generate()
		if err != nil {
			return "", false, fmt.Errorf("generate code: %w", err)
		}
		codeHash, err := u.hasher.Hash(code)
		if err != nil {
			return "", false, err
		}
		ok, err := u.plans.RotateCode(ctx, repository.NoTX, p.ID, p.CodeIssuedAt, codeHash, now)
		if errors.Is(err, domain.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return "", false, err
		}
		return code, ok, nil
	}
	return "", false, fmt.Errorf("%w: no unique code after %d attempts", domain.ErrOperationFailed, maxCodeAttempts)
}

func (u *renewalUC) deliver(ctx context.Context, p *model.Plan, code string) {
	if u.notifier == nil {
		return
	}
	log := logging.With(ctx, u.log)
	owner, err := u.users.FindByID(ctx, repository.NoTX, p.OwnerID)
	if err != nil {
		log.Warn().Err(err).Str("plan_id", p.ID).Msg("owner lookup failed, new code not delivered")
		return
	}
	if err := u.notifier.NotifyCodeIssued(ctx, owner, code, u.codec.ExpiryInstant()); err != nil {
		log.Warn().Err(err).Str("plan_id", p.ID).Msg("new code delivery failed")
	}
}
