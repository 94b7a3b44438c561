package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OfferTargetType string

const (
	OfferTargetService OfferTargetType = "service"
	OfferTargetProduct OfferTargetType = "product"
	OfferTargetBoth    OfferTargetType = "both"
)

type DiscountKind string

const (
	DiscountKindPercentage  DiscountKind = "percentage"
	DiscountKindFixedAmount DiscountKind = "fixed_amount"
)

// UsageLimits caps how often one subscriber may use an offer. Nil means unbounded.
type UsageLimits struct {
	Lifetime *int
	Daily    *int
	Monthly  *int
	Yearly   *int
}

// Offer is a promotion independent of any single plan.
type Offer struct {
	ID               string
	Title            string
	TargetType       OfferTargetType
	ServiceIDs       []string
	ProductIDs       []string
	DiscountKind     DiscountKind
	DiscountValue    decimal.Decimal
	ActiveFrom       *time.Time
	ActiveUntil      *time.Time
	Active           bool
	RequiresPaidPlan bool
	IsExclusive      bool
	Limits           UsageLimits
	TotalRedemptions int64
	Conversions      int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Target identifies what a redemption is applied to.
type Target struct {
	ServiceID string
	ProductID string
	ShopID    string
}

func (t Target) Empty() bool { return t.ServiceID == "" && t.ProductID == "" }

// OfferUsage is written once per redemption that used an offer.
type OfferUsage struct {
	ID           string
	OfferID      string
	SubscriberID string
	RedemptionID string
	UsedAt       time.Time
}
