package usecase

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"discount-pin-service/internal/domain"
	"discount-pin-service/internal/domain/model"
	"discount-pin-service/internal/domain/ports/repository"
	"discount-pin-service/internal/infra/logging"
)

// Compile-time check
var _ FamilyUseCase = (*familyUC)(nil)

// FamilyUseCase shares a paid plan with invited members.
type FamilyUseCase interface {
	Invite(ctx context.Context, ownerID, contact string) (*model.FamilyMembership, error)
	Accept(ctx context.Context, token, userID string) (*model.FamilyMembership, error)
	Members(ctx context.Context, ownerID string) ([]*model.FamilyMembership, error)
}

type familyUC struct {
	plans  repository.PlanRepository
	family repository.FamilyRepository
	tm     repository.TransactionManager
	now    func() time.Time
	log    *zerolog.Logger
}

func NewFamilyUseCase(plans repository.PlanRepository, family repository.FamilyRepository, tm repository.TransactionManager, now func() time.Time, logger *zerolog.Logger) *familyUC {
	if now == nil {
		now = time.Now
	}
	l := logger.With().Str("component", "family").Logger()
	return &familyUC{plans: plans, family: family, tm: tm, now: now, log: &l}
}

func (u *familyUC) Invite(ctx context.Context, ownerID, contact string) (*model.FamilyMembership, error) {
	defer logging.TraceDuration(u.log, "FamilyUC.Invite")()

	plan, err := u.plans.FindByOwner(ctx, repository.NoTX, ownerID)
	if err != nil {
		return nil, err
	}
	if !plan.Active || !plan.Tier.IsPaid() {
		return nil, domain.ErrPlanNotPaid
	}
	if plan.CurrentFamilyMembers >= plan.MaxFamilyMembers {
		return nil, domain.ErrFamilyFull
	}

	inv, err := model.NewFamilyInvitation(plan, contact, u.now())
	if err != nil {
		return nil, err
	}
	if err := u.family.Save(ctx, repository.NoTX, inv); err != nil {
		return nil, err
	}
	logging.With(ctx, u.log).Info().Str("plan_id", plan.ID).Str("membership_id", inv.ID).Msg("family invitation created")
	return inv, nil
}

// Accept binds userID to the invitation. An expired invitation is marked as
// such before ErrInvitationExpired is returned.
func (u *familyUC) Accept(ctx context.Context, token, userID string) (*model.FamilyMembership, error) {
	defer logging.TraceDuration(u.log, "FamilyUC.Accept")()
	if token == "" || userID == "" {
		return nil, domain.ErrInvalidArgument
	}

	now := u.now()
	var (
		out     *model.FamilyMembership
		expired bool
	)
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		m, err := u.family.FindByToken(ctx, tx, token)
		if err != nil {
			return err
		}
		if m.Status == model.MembershipAccepted {
			if m.MemberUserID != nil && *m.MemberUserID == userID {
				out = m
				return nil
			}
			return domain.ErrAlreadyExists
		}
		if m.IsExpired(now) {
			expired = true
			if m.Status == model.MembershipExpired {
				return nil
			}
			m.Status = model.MembershipExpired
			return u.family.Save(ctx, tx, m)
		}

		plan, err := u.plans.FindByID(ctx, tx, m.PlanID)
		if err != nil {
			return err
		}
		if plan.OwnerID == userID {
			return domain.ErrSelfInvitation
		}
		ok, err := u.plans.ReserveFamilySeat(ctx, tx, plan.ID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrFamilyFull
		}

		m.Status = model.MembershipAccepted
		m.MemberUserID = &userID
		m.AcceptedAt = &now
		if err := u.family.Save(ctx, tx, m); err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, domain.ErrInvitationExpired
	}
	return out, nil
}

func (u *familyUC) Members(ctx context.Context, ownerID string) ([]*model.FamilyMembership, error) {
	defer logging.TraceDuration(u.log, "FamilyUC.Members")()
	plan, err := u.plans.FindByOwner(ctx, repository.NoTX, ownerID)
	if err != nil {
		return nil, err
	}
	return u.family.ListByPlan(ctx, repository.NoTX, plan.ID)
}
