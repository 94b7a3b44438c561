package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"discount-pin-service/internal/domain"
	"discount-pin-service/internal/domain/model"
	"discount-pin-service/internal/domain/ports/repository"
)

// Ensure interface compliance
var _ repository.PlanRepository = (*planRepo)(nil)

type planRepo struct {
	pool *pgxpool.Pool
}

func NewPlanRepo(pool *pgxpool.Pool) *planRepo {
	return &planRepo{pool: pool}
}

const planColumns = `id, owner_id, tier, includes_chat, includes_discounts, code_hash, code_issued_at,
       code_usage_count, max_family_members, current_family_members, active, created_at, updated_at`

func (r *planRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	const q = `
INSERT INTO plans (` + planColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (id) DO UPDATE SET
  tier=$3, includes_chat=$4, includes_discounts=$5, code_hash=$6, code_issued_at=$7,
  max_family_members=$9, active=$11, updated_at=$13;`

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p.UpdatedAt = time.Now()
	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.OwnerID, p.Tier, p.IncludesChat, p.IncludesDiscounts, p.CodeHash, p.CodeIssuedAt,
		p.CodeUsageCount, p.MaxFamilyMembers, p.CurrentFamilyMembers, p.Active, p.CreatedAt, p.UpdatedAt)
	return mapErr("save plan", err)
}

func (r *planRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	q := `SELECT ` + planColumns + ` FROM plans WHERE id=$1`
	return r.queryOne(ctx, tx, forUpdate(q, tx), id)
}

func (r *planRepo) FindByOwner(ctx context.Context, tx repository.Tx, ownerID string) (*model.Plan, error) {
	q := `SELECT ` + planColumns + ` FROM plans WHERE owner_id=$1`
	return r.queryOne(ctx, tx, forUpdate(q, tx), ownerID)
}

// FindActiveByCodeHash locks the plan row inside a transaction so a concurrent
// rotation or redemption on the same plan waits for this one to finish.
func (r *planRepo) FindActiveByCodeHash(ctx context.Context, tx repository.Tx, codeHash string) (*model.Plan, error) {
	q := `SELECT ` + planColumns + ` FROM plans WHERE code_hash=$1 AND active`
	return r.queryOne(ctx, tx, forUpdate(q, tx), codeHash)
}

func (r *planRepo) ListRenewable(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	const q = `SELECT ` + planColumns + ` FROM plans WHERE active AND tier <> 'free' ORDER BY id`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, mapErr("list renewable plans", err)
	}
	defer rows.Close()
	var out []*model.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("list renewable plans", err)
	}
	return out, nil
}

func (r *planRepo) IncrementCodeUsage(ctx context.Context, tx repository.Tx, planID string) error {
	const q = `UPDATE plans SET code_usage_count = code_usage_count + 1, updated_at = now() WHERE id=$1`
	ct, err := execSQL(ctx, r.pool, tx, q, planID)
	if err != nil {
		return mapErr("increment code usage", err)
	}
	if ct.RowsAffected() == 0 {
		return mapErr("increment code usage", pgx.ErrNoRows)
	}
	return nil
}

func (r *planRepo) ChangeTier(ctx context.Context, tx repository.Tx, p *model.Plan) (bool, error) {
	const q = `
UPDATE plans
   SET tier=$2, includes_chat=$3, includes_discounts=$4, max_family_members=$5, active=$6,
       code_hash        = CASE WHEN $2::text = 'free' THEN NULL ELSE code_hash END,
       code_issued_at   = CASE WHEN $2::text = 'free' THEN NULL ELSE code_issued_at END,
       code_usage_count = CASE WHEN $2::text = 'free' THEN 0 ELSE code_usage_count END,
       updated_at=now()
 WHERE id=$1 AND current_family_members <= $5`
	ct, err := execSQL(ctx, r.pool, tx, q, p.ID, string(p.Tier), p.IncludesChat, p.IncludesDiscounts, p.MaxFamilyMembers, p.Active)
	if err != nil {
		return false, mapErr("change plan tier", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *planRepo) SetActive(ctx context.Context, tx repository.Tx, planID string, active bool) error {
	const q = `UPDATE plans SET active=$2, updated_at=now() WHERE id=$1`
	ct, err := execSQL(ctx, r.pool, tx, q, planID, active)
	if err != nil {
		return mapErr("set plan active", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RotateCode is a compare-and-swap on code_issued_at. Two renewers that read
// the same previous timestamp cannot both rotate.
func (r *planRepo) RotateCode(ctx context.Context, tx repository.Tx, planID string, prevIssuedAt *time.Time, codeHash string, issuedAt time.Time) (bool, error) {
	const q = `
UPDATE plans
   SET code_hash=$2, code_issued_at=$3, code_usage_count=0, updated_at=now()
 WHERE id=$1 AND code_issued_at IS NOT DISTINCT FROM $4::timestamptz`
	ct, err := execSQL(ctx, r.pool, tx, q, planID, codeHash, issuedAt, prevIssuedAt)
	if err != nil {
		return false, mapErr("rotate code", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *planRepo) ReserveFamilySeat(ctx context.Context, tx repository.Tx, planID string) (bool, error) {
	const q = `
UPDATE plans
   SET current_family_members = current_family_members + 1, updated_at = now()
 WHERE id=$1 AND current_family_members < max_family_members`
	ct, err := execSQL(ctx, r.pool, tx, q, planID)
	if err != nil {
		return false, mapErr("reserve family seat", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *planRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Plan, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, mapErr("find plan", err)
	}
	return scanPlan(row)
}

func scanPlan(s scanner) (*model.Plan, error) {
	var p model.Plan
	err := s.Scan(&p.ID, &p.OwnerID, &p.Tier, &p.IncludesChat, &p.IncludesDiscounts, &p.CodeHash, &p.CodeIssuedAt,
		&p.CodeUsageCount, &p.MaxFamilyMembers, &p.CurrentFamilyMembers, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapErr("scan plan", err)
	}
	return &p, nil
}
