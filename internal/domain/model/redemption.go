package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type RedemptionStatus string

const (
	RedemptionStatusCompleted RedemptionStatus = "COMPLETED"
)

// RedemptionContext is free text captured by the provider.
type RedemptionContext struct {
	CustomerName  string `json:"customer_name,omitempty"`
	ReceiptNumber string `json:"receipt_number,omitempty"`
	Location      string `json:"location,omitempty"`
}

// RedemptionRecord is the immutable receipt of one successful redemption.
type RedemptionRecord struct {
	ID               string
	PlanID           string
	SubscriberID     string
	ProviderID       string
	VerificationCode string
	CodeMasked       string
	PeriodKey        string
	OriginalAmount   decimal.Decimal
	DiscountAmount   decimal.Decimal
	FinalAmount      decimal.Decimal
	DiscountPercent  decimal.Decimal
	Target           Target
	OfferID          *string
	Context          RedemptionContext
	Status           RedemptionStatus
	CreatedAt        time.Time
}

// Receipt is what the redeeming provider gets back.
type Receipt struct {
	VerificationCode string
	SubscriberName   string
	PlanTier         PlanTier
	OriginalAmount   decimal.Decimal
	DiscountAmount   decimal.Decimal
	FinalAmount      decimal.Decimal
	DiscountPercent  decimal.Decimal
	OfferID          *string
	OfferLabel       string
	RedeemedAt       time.Time
}

// CodePreview is returned when a provider checks a code before a transaction.
type CodePreview struct {
	Valid            bool
	OwnerDisplayName string
	PlanTier         PlanTier
	UsageCount       int
	ExpiresAt        time.Time
}
