package repository

import (
	"context"

	"discount-pin-service/internal/domain/model"
)

// RedemptionRepository stores immutable redemption records.
type RedemptionRepository interface {
	Create(ctx context.Context, tx Tx, rec *model.RedemptionRecord) error
	FindByVerificationCode(ctx context.Context, tx Tx, code string) (*model.RedemptionRecord, error)
	ListBySubscriber(ctx context.Context, tx Tx, subscriberID string, limit int) ([]*model.RedemptionRecord, error)
}
