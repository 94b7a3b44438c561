package model

import (
	"time"

	"discount-pin-service/internal/domain"

	"github.com/google/uuid"
)

// PlanTier is the subscription level of a plan.
type PlanTier string

const (
	PlanTierFree           PlanTier = "free"
	PlanTierSingleCategory PlanTier = "single_category"
	PlanTierAllCategories  PlanTier = "all_categories"
)

func (t PlanTier) Valid() bool {
	switch t {
	case PlanTierFree, PlanTierSingleCategory, PlanTierAllCategories:
		return true
	}
	return false
}

func (t PlanTier) IsPaid() bool { return t == PlanTierSingleCategory || t == PlanTierAllCategories }

// TierCapabilities describes what a tier grants.
type TierCapabilities struct {
	IncludesChat      bool
	IncludesDiscounts bool
	MaxFamilyMembers  int
}

// Capabilities returns the capability set granted by t.
func (t PlanTier) Capabilities() TierCapabilities {
	switch t {
	case PlanTierSingleCategory:
		return TierCapabilities{IncludesDiscounts: true, MaxFamilyMembers: 1}
	case PlanTierAllCategories:
		return TierCapabilities{IncludesChat: true, IncludesDiscounts: true, MaxFamilyMembers: 4}
	default:
		return TierCapabilities{}
	}
}

// Plan is the subscription of one user. Only the hash of the current code is kept.
type Plan struct {
	ID                   string
	OwnerID              string
	Tier                 PlanTier
	IncludesChat         bool
	IncludesDiscounts    bool
	CodeHash             *string    // nil on free plans
	CodeIssuedAt         *time.Time // nil until first issuance
	CodeUsageCount       int
	MaxFamilyMembers     int
	CurrentFamilyMembers int
	Active               bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

// HasCode reports whether a code has been issued for the plan.
func (p *Plan) HasCode() bool { return p != nil && p.CodeHash != nil && *p.CodeHash != "" }

// NewFreePlan constructs the plan every user gets at signup.
func NewFreePlan(ownerID string) (*Plan, error) {
	if ownerID == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Plan{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Tier:      PlanTierFree,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ApplyTier switches the plan to tier and copies the tier's capability flags.
// A tier with fewer family seats than the plan already uses is refused.
func (p *Plan) ApplyTier(tier PlanTier) error {
	if !tier.Valid() {
		return domain.ErrInvalidArgument
	}
	caps := tier.Capabilities()
	if p.CurrentFamilyMembers > caps.MaxFamilyMembers {
		return domain.ErrFamilySeatsInUse
	}
	p.Tier = tier
	p.IncludesChat = caps.IncludesChat
	p.IncludesDiscounts = caps.IncludesDiscounts
	p.MaxFamilyMembers = caps.MaxFamilyMembers
	if !tier.IsPaid() {
		p.CodeHash = nil
		p.CodeIssuedAt = nil
		p.CodeUsageCount = 0
	}
	p.UpdatedAt = time.Now()
	return nil
}
