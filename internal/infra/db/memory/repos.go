package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"discount-pin-service/internal/domain"
	"discount-pin-service/internal/domain/model"
	"discount-pin-service/internal/domain/ports/repository"
)

var (
	_ repository.PlanRepository       = (*PlanRepo)(nil)
	_ repository.UserRepository       = (*UserRepo)(nil)
	_ repository.OfferRepository      = (*OfferRepo)(nil)
	_ repository.RedemptionRepository = (*RedemptionRepo)(nil)
	_ repository.FamilyRepository     = (*FamilyRepo)(nil)
)

// ---- plans ----

type PlanRepo struct{ s *Store }

func (r *PlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	return r.s.run(tx, func() error {
		if err := r.s.fault("plans.save", p.ID); err != nil {
			return err
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.CodeHash != nil {
			for id, other := range r.s.st.plans {
				if id != p.ID && other.CodeHash != nil && *other.CodeHash == *p.CodeHash {
					return domain.ErrAlreadyExists
				}
			}
		}
		cp := *p
		if existing, ok := r.s.st.plans[p.ID]; ok {
			cp.CodeUsageCount = existing.CodeUsageCount
			cp.CurrentFamilyMembers = existing.CurrentFamilyMembers
		}
		r.s.st.plans[p.ID] = &cp
		return nil
	})
}

func (r *PlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	var out *model.Plan
	err := r.s.run(tx, func() error {
		p, ok := r.s.st.plans[id]
		if !ok {
			return domain.ErrNotFound
		}
		cp := *p
		out = &cp
		return nil
	})
	return out, err
}

func (r *PlanRepo) FindByOwner(ctx context.Context, tx repository.Tx, ownerID string) (*model.Plan, error) {
	var out *model.Plan
	err := r.s.run(tx, func() error {
		for _, p := range r.s.st.plans {
			if p.OwnerID == ownerID {
				cp := *p
				out = &cp
				return nil
			}
		}
		return domain.ErrNotFound
	})
	return out, err
}

func (r *PlanRepo) FindActiveByCodeHash(ctx context.Context, tx repository.Tx, codeHash string) (*model.Plan, error) {
	var out *model.Plan
	err := r.s.run(tx, func() error {
		if err := r.s.fault("plans.find_by_code", codeHash); err != nil {
			return err
		}
		for _, p := range r.s.st.plans {
			if p.Active && p.CodeHash != nil && *p.CodeHash == codeHash {
				cp := *p
				out = &cp
				return nil
			}
		}
		return domain.ErrNotFound
	})
	return out, err
}

func (r *PlanRepo) ListRenewable(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	var out []*model.Plan
	err := r.s.run(tx, func() error {
		if err := r.s.fault("plans.list_renewable", ""); err != nil {
			return err
		}
		for _, p := range r.s.st.plans {
			if p.Active && p.Tier.IsPaid() {
				cp := *p
				out = append(out, &cp)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (r *PlanRepo) IncrementCodeUsage(ctx context.Context, tx repository.Tx, planID string) error {
	return r.s.run(tx, func() error {
		if err := r.s.fault("plans.increment_usage", planID); err != nil {
			return err
		}
		p, ok := r.s.st.plans[planID]
		if !ok {
			return domain.ErrNotFound
		}
		cp := *p
		cp.CodeUsageCount++
		cp.UpdatedAt = time.Now()
		r.s.st.plans[planID] = &cp
		return nil
	})
}

func (r *PlanRepo) ChangeTier(ctx context.Context, tx repository.Tx, p *model.Plan) (bool, error) {
	var ok bool
	err := r.s.run(tx, func() error {
		if err := r.s.fault("plans.change_tier", p.ID); err != nil {
			return err
		}
		cur, found := r.s.st.plans[p.ID]
		if !found || cur.CurrentFamilyMembers > p.MaxFamilyMembers {
			return nil
		}
		cp := *cur
		cp.Tier = p.Tier
		cp.IncludesChat = p.IncludesChat
		cp.IncludesDiscounts = p.IncludesDiscounts
		cp.MaxFamilyMembers = p.MaxFamilyMembers
		cp.Active = p.Active
		if !p.Tier.IsPaid() {
			cp.CodeHash = nil
			cp.CodeIssuedAt = nil
			cp.CodeUsageCount = 0
		}
		cp.UpdatedAt = time.Now()
		r.s.st.plans[p.ID] = &cp
		ok = true
		return nil
	})
	return ok, err
}

func (r *PlanRepo) SetActive(ctx context.Context, tx repository.Tx, planID string, active bool) error {
	return r.s.run(tx, func() error {
		p, ok := r.s.st.plans[planID]
		if !ok {
			return domain.ErrNotFound
		}
		cp := *p
		cp.Active = active
		cp.UpdatedAt = time.Now()
		r.s.st.plans[planID] = &cp
		return nil
	})
}

func (r *PlanRepo) RotateCode(ctx context.Context, tx repository.Tx, planID string, prevIssuedAt *time.Time, codeHash string, issuedAt time.Time) (bool, error) {
	var swapped bool
	err := r.s.run(tx, func() error {
		if err := r.s.fault("plans.rotate", planID); err != nil {
			return err
		}
		p, ok := r.s.st.plans[planID]
		if !ok {
			return domain.ErrNotFound
		}
		if !sameInstant(p.CodeIssuedAt, prevIssuedAt) {
			return nil
		}
		for id, other := range r.s.st.plans {
			if id != planID && other.CodeHash != nil && *other.CodeHash == codeHash {
				return domain.ErrAlreadyExists
			}
		}
		cp := *p
		h := codeHash
		at := issuedAt
		cp.CodeHash = &h
		cp.CodeIssuedAt = &at
		cp.CodeUsageCount = 0
		cp.UpdatedAt = time.Now()
		r.s.st.plans[planID] = &cp
		swapped = true
		return nil
	})
	return swapped, err
}

func (r *PlanRepo) ReserveFamilySeat(ctx context.Context, tx repository.Tx, planID string) (bool, error) {
	var ok bool
	err := r.s.run(tx, func() error {
		p, found := r.s.st.plans[planID]
		if !found {
			return domain.ErrNotFound
		}
		if p.CurrentFamilyMembers >= p.MaxFamilyMembers {
			return nil
		}
		cp := *p
		cp.CurrentFamilyMembers++
		r.s.st.plans[planID] = &cp
		ok = true
		return nil
	})
	return ok, err
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// ---- users ----

type UserRepo struct{ s *Store }

// Put seeds a user; the service itself never writes users.
func (r *UserRepo) Put(u *model.User) {
	_ = r.s.run(nil, func() error {
		cp := *u
		r.s.st.users[u.ID] = &cp
		return nil
	})
}

func (r *UserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	var out *model.User
	err := r.s.run(tx, func() error {
		u, ok := r.s.st.users[id]
		if !ok {
			return domain.ErrNotFound
		}
		cp := *u
		out = &cp
		return nil
	})
	return out, err
}

// ---- offers ----

type OfferRepo struct{ s *Store }

func (r *OfferRepo) Save(ctx context.Context, tx repository.Tx, o *model.Offer) error {
	return r.s.run(tx, func() error {
		if o.ID == "" {
			o.ID = uuid.NewString()
		}
		cp := *o
		r.s.st.offers[o.ID] = &cp
		return nil
	})
}

func (r *OfferRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Offer, error) {
	var out *model.Offer
	err := r.s.run(tx, func() error {
		o, ok := r.s.st.offers[id]
		if !ok {
			return domain.ErrNotFound
		}
		cp := *o
		out = &cp
		return nil
	})
	return out, err
}

func (r *OfferRepo) IncrementCounters(ctx context.Context, tx repository.Tx, offerID string) error {
	return r.s.run(tx, func() error {
		if err := r.s.fault("offers.increment", offerID); err != nil {
			return err
		}
		o, ok := r.s.st.offers[offerID]
		if !ok {
			return domain.ErrNotFound
		}
		cp := *o
		cp.TotalRedemptions++
		cp.Conversions++
		r.s.st.offers[offerID] = &cp
		return nil
	})
}

func (r *OfferRepo) ListUsage(ctx context.Context, tx repository.Tx, offerID, subscriberID string) ([]*model.OfferUsage, error) {
	var out []*model.OfferUsage
	err := r.s.run(tx, func() error {
		for _, u := range r.s.st.usages {
			if u.OfferID == offerID && u.SubscriberID == subscriberID {
				cp := *u
				out = append(out, &cp)
			}
		}
		return nil
	})
	return out, err
}

func (r *OfferRepo) SaveUsage(ctx context.Context, tx repository.Tx, u *model.OfferUsage) error {
	return r.s.run(tx, func() error {
		if err := r.s.fault("offers.save_usage", u.OfferID); err != nil {
			return err
		}
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		cp := *u
		r.s.st.usages = append(r.s.st.usages, &cp)
		return nil
	})
}

// ---- redemptions ----

type RedemptionRepo struct{ s *Store }

func (r *RedemptionRepo) Create(ctx context.Context, tx repository.Tx, rec *model.RedemptionRecord) error {
	return r.s.run(tx, func() error {
		if err := r.s.fault("redemptions.create", rec.PlanID); err != nil {
			return err
		}
		if _, dup := r.s.st.records[rec.VerificationCode]; dup {
			return domain.ErrAlreadyExists
		}
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		cp := *rec
		r.s.st.records[rec.VerificationCode] = &cp
		r.s.st.order = append(r.s.st.order, rec.VerificationCode)
		return nil
	})
}

func (r *RedemptionRepo) FindByVerificationCode(ctx context.Context, tx repository.Tx, code string) (*model.RedemptionRecord, error) {
	var out *model.RedemptionRecord
	err := r.s.run(tx, func() error {
		rec, ok := r.s.st.records[code]
		if !ok {
			return domain.ErrNotFound
		}
		cp := *rec
		out = &cp
		return nil
	})
	return out, err
}

func (r *RedemptionRepo) ListBySubscriber(ctx context.Context, tx repository.Tx, subscriberID string, limit int) ([]*model.RedemptionRecord, error) {
	var out []*model.RedemptionRecord
	err := r.s.run(tx, func() error {
		for i := len(r.s.st.order) - 1; i >= 0; i-- {
			rec := r.s.st.records[r.s.st.order[i]]
			if rec.SubscriberID != subscriberID {
				continue
			}
			cp := *rec
			out = append(out, &cp)
			if limit > 0 && len(out) == limit {
				break
			}
		}
		return nil
	})
	return out, err
}

// Count returns the number of stored redemption records.
func (r *RedemptionRepo) Count() int {
	var n int
	_ = r.s.run(nil, func() error {
		n = len(r.s.st.records)
		return nil
	})
	return n
}

// ---- family ----

type FamilyRepo struct{ s *Store }

func (r *FamilyRepo) Save(ctx context.Context, tx repository.Tx, m *model.FamilyMembership) error {
	return r.s.run(tx, func() error {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		cp := *m
		r.s.st.family[m.Token] = &cp
		return nil
	})
}

func (r *FamilyRepo) FindByToken(ctx context.Context, tx repository.Tx, token string) (*model.FamilyMembership, error) {
	var out *model.FamilyMembership
	err := r.s.run(tx, func() error {
		m, ok := r.s.st.family[token]
		if !ok {
			return domain.ErrNotFound
		}
		cp := *m
		out = &cp
		return nil
	})
	return out, err
}

func (r *FamilyRepo) ListByPlan(ctx context.Context, tx repository.Tx, planID string) ([]*model.FamilyMembership, error) {
	var out []*model.FamilyMembership
	err := r.s.run(tx, func() error {
		for _, m := range r.s.st.family {
			if m.PlanID == planID {
				cp := *m
				out = append(out, &cp)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
		return nil
	})
	return out, err
}
