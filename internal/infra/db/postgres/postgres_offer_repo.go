package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"discount-pin-service/internal/domain/model"
	"discount-pin-service/internal/domain/ports/repository"
)

var _ repository.OfferRepository = (*offerRepo)(nil)

type offerRepo struct {
	pool *pgxpool.Pool
}

func NewOfferRepo(pool *pgxpool.Pool) *offerRepo {
	return &offerRepo{pool: pool}
}

const offerColumns = `id, title, target_type, service_ids, product_ids, discount_kind, discount_value,
       active_from, active_until, active, requires_paid_plan, is_exclusive,
       limit_lifetime, limit_daily, limit_monthly, limit_yearly,
       total_redemptions, conversions, created_at, updated_at`

func (r *offerRepo) Save(ctx context.Context, tx repository.Tx, o *model.Offer) error {
	const q = `
INSERT INTO offers (` + offerColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
ON CONFLICT (id) DO UPDATE SET
  title=$2, target_type=$3, service_ids=$4, product_ids=$5, discount_kind=$6, discount_value=$7,
  active_from=$8, active_until=$9, active=$10, requires_paid_plan=$11, is_exclusive=$12,
  limit_lifetime=$13, limit_daily=$14, limit_monthly=$15, limit_yearly=$16, updated_at=$20;`

	now := time.Now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	if o.ServiceIDs == nil {
		o.ServiceIDs = []string{}
	}
	if o.ProductIDs == nil {
		o.ProductIDs = []string{}
	}
	_, err := execSQL(ctx, r.pool, tx, q,
		o.ID, o.Title, o.TargetType, o.ServiceIDs, o.ProductIDs, o.DiscountKind, o.DiscountValue,
		o.ActiveFrom, o.ActiveUntil, o.Active, o.RequiresPaidPlan, o.IsExclusive,
		o.Limits.Lifetime, o.Limits.Daily, o.Limits.Monthly, o.Limits.Yearly,
		o.TotalRedemptions, o.Conversions, o.CreatedAt, o.UpdatedAt)
	return mapErr("save offer", err)
}

func (r *offerRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Offer, error) {
	const q = `SELECT ` + offerColumns + ` FROM offers WHERE id=$1`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, mapErr("find offer", err)
	}
	var o model.Offer
	err = row.Scan(&o.ID, &o.Title, &o.TargetType, &o.ServiceIDs, &o.ProductIDs, &o.DiscountKind, &o.DiscountValue,
		&o.ActiveFrom, &o.ActiveUntil, &o.Active, &o.RequiresPaidPlan, &o.IsExclusive,
		&o.Limits.Lifetime, &o.Limits.Daily, &o.Limits.Monthly, &o.Limits.Yearly,
		&o.TotalRedemptions, &o.Conversions, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, mapErr("find offer", err)
	}
	return &o, nil
}

// IncrementCounters is a store-side +1 so concurrent redemptions never lose an update.
func (r *offerRepo) IncrementCounters(ctx context.Context, tx repository.Tx, offerID string) error {
	const q = `
UPDATE offers
   SET total_redemptions = total_redemptions + 1, conversions = conversions + 1, updated_at = now()
 WHERE id=$1`
	ct, err := execSQL(ctx, r.pool, tx, q, offerID)
	if err != nil {
		return mapErr("increment offer counters", err)
	}
	if ct.RowsAffected() == 0 {
		return mapErr("increment offer counters", pgx.ErrNoRows)
	}
	return nil
}

func (r *offerRepo) ListUsage(ctx context.Context, tx repository.Tx, offerID, subscriberID string) ([]*model.OfferUsage, error) {
	const q = `
SELECT id, offer_id, subscriber_id, redemption_id, used_at
  FROM offer_usages
 WHERE offer_id=$1 AND subscriber_id=$2
 ORDER BY used_at`
	rows, err := queryRows(ctx, r.pool, tx, q, offerID, subscriberID)
	if err != nil {
		return nil, mapErr("list offer usage", err)
	}
	defer rows.Close()
	var out []*model.OfferUsage
	for rows.Next() {
		var u model.OfferUsage
		if err := rows.Scan(&u.ID, &u.OfferID, &u.SubscriberID, &u.RedemptionID, &u.UsedAt); err != nil {
			return nil, mapErr("scan offer usage", err)
		}
		out = append(out, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("list offer usage", err)
	}
	return out, nil
}

func (r *offerRepo) SaveUsage(ctx context.Context, tx repository.Tx, u *model.OfferUsage) error {
	const q = `
INSERT INTO offer_usages (id, offer_id, subscriber_id, redemption_id, used_at)
VALUES ($1,$2,$3,$4,$5)`
	_, err := execSQL(ctx, r.pool, tx, q, u.ID, u.OfferID, u.SubscriberID, u.RedemptionID, u.UsedAt)
	return mapErr("save offer usage", err)
}
