package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v4/pgxpool"

	"discount-pin-service/internal/domain/model"
	"discount-pin-service/internal/domain/ports/repository"
)

var _ repository.RedemptionRepository = (*redemptionRepo)(nil)

type redemptionRepo struct {
	pool *pgxpool.Pool
}

func NewRedemptionRepo(pool *pgxpool.Pool) *redemptionRepo {
	return &redemptionRepo{pool: pool}
}

const redemptionColumns = `id, plan_id, subscriber_id, provider_id, verification_code, code_masked, period_key,
       original_amount, discount_amount, final_amount, discount_percent,
       service_id, product_id, shop_id, offer_id, context, status, created_at`

func (r *redemptionRepo) Create(ctx context.Context, tx repository.Tx, rec *model.RedemptionRecord) error {
	const q = `
INSERT INTO redemptions (` + redemptionColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`

	rc, err := json.Marshal(rec.Context)
	if err != nil {
		return err
	}
	_, err = execSQL(ctx, r.pool, tx, q,
		rec.ID, rec.PlanID, rec.SubscriberID, rec.ProviderID, rec.VerificationCode, rec.CodeMasked, rec.PeriodKey,
		rec.OriginalAmount, rec.DiscountAmount, rec.FinalAmount, rec.DiscountPercent,
		rec.Target.ServiceID, rec.Target.ProductID, rec.Target.ShopID, rec.OfferID, rc, rec.Status, rec.CreatedAt)
	return mapErr("create redemption", err)
}

func (r *redemptionRepo) FindByVerificationCode(ctx context.Context, tx repository.Tx, code string) (*model.RedemptionRecord, error) {
	const q = `SELECT ` + redemptionColumns + ` FROM redemptions WHERE verification_code=$1`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, mapErr("find redemption", err)
	}
	return scanRedemption(row)
}

func (r *redemptionRepo) ListBySubscriber(ctx context.Context, tx repository.Tx, subscriberID string, limit int) ([]*model.RedemptionRecord, error) {
	const q = `SELECT ` + redemptionColumns + `
  FROM redemptions
 WHERE subscriber_id=$1
 ORDER BY created_at DESC, id DESC
 LIMIT $2`
	rows, err := queryRows(ctx, r.pool, tx, q, subscriberID, limit)
	if err != nil {
		return nil, mapErr("list redemptions", err)
	}
	defer rows.Close()
	var out []*model.RedemptionRecord
	for rows.Next() {
		rec, err := scanRedemption(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("list redemptions", err)
	}
	return out, nil
}

func scanRedemption(s scanner) (*model.RedemptionRecord, error) {
	var (
		rec model.RedemptionRecord
		rc  []byte
	)
	err := s.Scan(&rec.ID, &rec.PlanID, &rec.SubscriberID, &rec.ProviderID, &rec.VerificationCode, &rec.CodeMasked, &rec.PeriodKey,
		&rec.OriginalAmount, &rec.DiscountAmount, &rec.FinalAmount, &rec.DiscountPercent,
		&rec.Target.ServiceID, &rec.Target.ProductID, &rec.Target.ShopID, &rec.OfferID, &rc, &rec.Status, &rec.CreatedAt)
	if err != nil {
		return nil, mapErr("scan redemption", err)
	}
	if len(rc) > 0 {
		if err := json.Unmarshal(rc, &rec.Context); err != nil {
			return nil, mapErr("decode redemption context", err)
		}
	}
	return &rec, nil
}
