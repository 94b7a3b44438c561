package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"discount-pin-service/internal/domain/model"
	"discount-pin-service/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*userRepo)(nil)

// userRepo reads the account directory. Accounts are written by the signup
// flow, which lives outside this service.
type userRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

func (r *userRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	const q = `SELECT id, display_name, email, telegram_id, created_at FROM users WHERE id=$1`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, mapErr("find user", err)
	}
	var u model.User
	if err := row.Scan(&u.ID, &u.DisplayName, &u.Email, &u.TelegramID, &u.CreatedAt); err != nil {
		return nil, mapErr("find user", err)
	}
	return &u, nil
}

// Save upserts a user row. Used by seeding and integration tests.
func (r *userRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (id, display_name, email, telegram_id, created_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO UPDATE SET display_name=$2, email=$3, telegram_id=$4;`
	_, err := execSQL(ctx, r.pool, tx, q, u.ID, u.DisplayName, u.Email, u.TelegramID, u.CreatedAt)
	return mapErr("save user", err)
}
