package repository

import (
	"context"

	"discount-pin-service/internal/domain/model"
)

// UserRepository is the read-only port to the account directory.
type UserRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
}
