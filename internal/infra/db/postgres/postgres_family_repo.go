package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"discount-pin-service/internal/domain/model"
	"discount-pin-service/internal/domain/ports/repository"
)

var _ repository.FamilyRepository = (*familyRepo)(nil)

type familyRepo struct {
	pool *pgxpool.Pool
}

func NewFamilyRepo(pool *pgxpool.Pool) *familyRepo {
	return &familyRepo{pool: pool}
}

const familyColumns = `id, plan_id, invitee_contact, token, status, member_user_id, can_chat, can_redeem,
       expires_at, created_at, accepted_at`

func (r *familyRepo) Save(ctx context.Context, tx repository.Tx, m *model.FamilyMembership) error {
	const q = `
INSERT INTO family_memberships (` + familyColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
  status=$5, member_user_id=$6, can_chat=$7, can_redeem=$8, accepted_at=$11;`
	_, err := execSQL(ctx, r.pool, tx, q,
		m.ID, m.PlanID, m.InviteeContact, m.Token, m.Status, m.MemberUserID, m.CanChat, m.CanRedeem,
		m.ExpiresAt, m.CreatedAt, m.AcceptedAt)
	return mapErr("save family membership", err)
}

func (r *familyRepo) FindByToken(ctx context.Context, tx repository.Tx, token string) (*model.FamilyMembership, error) {
	q := `SELECT ` + familyColumns + ` FROM family_memberships WHERE token=$1`
	row, err := pickRow(ctx, r.pool, tx, forUpdate(q, tx), token)
	if err != nil {
		return nil, mapErr("find family membership", err)
	}
	return scanMembership(row)
}

func (r *familyRepo) ListByPlan(ctx context.Context, tx repository.Tx, planID string) ([]*model.FamilyMembership, error) {
	const q = `SELECT ` + familyColumns + ` FROM family_memberships WHERE plan_id=$1 ORDER BY created_at`
	rows, err := queryRows(ctx, r.pool, tx, q, planID)
	if err != nil {
		return nil, mapErr("list family memberships", err)
	}
	defer rows.Close()
	var out []*model.FamilyMembership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("list family memberships", err)
	}
	return out, nil
}

func scanMembership(s scanner) (*model.FamilyMembership, error) {
	var m model.FamilyMembership
	err := s.Scan(&m.ID, &m.PlanID, &m.InviteeContact, &m.Token, &m.Status, &m.MemberUserID, &m.CanChat, &m.CanRedeem,
		&m.ExpiresAt, &m.CreatedAt, &m.AcceptedAt)
	if err != nil {
		return nil, mapErr("scan family membership", err)
	}
	return &m, nil
}
