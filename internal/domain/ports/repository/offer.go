package repository

import (
	"context"

	"discount-pin-service/internal/domain/model"
)

// OfferRepository is the port for offers and their usage history.
type OfferRepository interface {
	Save(ctx context.Context, tx Tx, offer *model.Offer) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Offer, error)
	// IncrementCounters bumps the aggregate redemption and conversion totals.
	IncrementCounters(ctx context.Context, tx Tx, offerID string) error
	ListUsage(ctx context.Context, tx Tx, offerID, subscriberID string) ([]*model.OfferUsage, error)
	SaveUsage(ctx context.Context, tx Tx, usage *model.OfferUsage) error
}
