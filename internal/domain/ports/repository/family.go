package repository

import (
	"context"

	"discount-pin-service/internal/domain/model"
)

// FamilyRepository stores family invitations and memberships.
type FamilyRepository interface {
	Save(ctx context.Context, tx Tx, m *model.FamilyMembership) error
	FindByToken(ctx context.Context, tx Tx, token string) (*model.FamilyMembership, error)
	ListByPlan(ctx context.Context, tx Tx, planID string) ([]*model.FamilyMembership, error)
}
