package repository

import (
	"context"
	"time"

	"discount-pin-service/internal/domain/model"
)

// PlanRepository is the port for subscription plans and their current code.
type PlanRepository interface {
	// Save inserts a plan or rewrites its descriptive columns. It never touches
	// the usage counter or the family member count.
	Save(ctx context.Context, tx Tx, plan *model.Plan) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Plan, error)
	FindByOwner(ctx context.Context, tx Tx, ownerID string) (*model.Plan, error)
	// FindActiveByCodeHash resolves an active plan by its code hash. Inside a
	// transaction the row stays locked until commit.
	FindActiveByCodeHash(ctx context.Context, tx Tx, codeHash string) (*model.Plan, error)
	// ListRenewable returns every active plan that is not on the free tier.
	ListRenewable(ctx context.Context, tx Tx) ([]*model.Plan, error)
	IncrementCodeUsage(ctx context.Context, tx Tx, planID string) error
	// ChangeTier writes the tier, capability flags and active flag. Moving to
	// the free tier also drops the code. It reports false, writing nothing,
	// when the plan has more family members than plan.MaxFamilyMembers.
	ChangeTier(ctx context.Context, tx Tx, plan *model.Plan) (bool, error)
	SetActive(ctx context.Context, tx Tx, planID string, active bool) error
	// RotateCode swaps in a new code hash only if the stored issue timestamp
	// still equals prevIssuedAt. It reports whether the swap happened.
	RotateCode(ctx context.Context, tx Tx, planID string, prevIssuedAt *time.Time, codeHash string, issuedAt time.Time) (bool, error)
	// ReserveFamilySeat increments the member count when a seat is free.
	ReserveFamilySeat(ctx context.Context, tx Tx, planID string) (bool, error)
}
