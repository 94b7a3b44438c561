package api

import (
	"time"

	"github.com/shopspring/decimal"

	"discount-pin-service/internal/domain/model"
)

type redeemRequest struct {
	Code           string          `json:"code" validate:"required,max=32"`
	ServiceID      string          `json:"service_id" validate:"required_without=ProductID,max=64"`
	ProductID      string          `json:"product_id" validate:"required_without=ServiceID,max=64"`
	ShopID         string          `json:"shop_id" validate:"max=64"`
	OriginalAmount decimal.Decimal `json:"original_amount"`
	OfferID        string          `json:"offer_id" validate:"max=64"`
	CustomerName   string          `json:"customer_name" validate:"max=120"`
	ReceiptNumber  string          `json:"receipt_number" validate:"max=64"`
	Location       string          `json:"location" validate:"max=120"`
}

type previewRequest struct {
	Code string `json:"code" validate:"required,max=32"`
}

type upgradeRequest struct {
	Tier string `json:"tier" validate:"required,oneof=single_category all_categories"`
}

type inviteRequest struct {
	Contact string `json:"contact" validate:"required,max=254"`
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

type receiptResponse struct {
	VerificationCode string    `json:"verification_code"`
	SubscriberName   string    `json:"subscriber_name"`
	PlanTier         string    `json:"plan_tier"`
	OriginalAmount   string    `json:"original_amount"`
	DiscountAmount   string    `json:"discount_amount"`
	FinalAmount      string    `json:"final_amount"`
	DiscountPercent  string    `json:"discount_percent"`
	OfferID          *string   `json:"offer_id,omitempty"`
	OfferLabel       string    `json:"offer_label"`
	RedeemedAt       time.Time `json:"redeemed_at"`
}

func toReceipt(r *model.Receipt) receiptResponse {
	return receiptResponse{
		VerificationCode: r.VerificationCode,
		SubscriberName:   r.SubscriberName,
		PlanTier:         string(r.PlanTier),
		OriginalAmount:   money(r.OriginalAmount),
		DiscountAmount:   money(r.DiscountAmount),
		FinalAmount:      money(r.FinalAmount),
		DiscountPercent:  money(r.DiscountPercent),
		OfferID:          r.OfferID,
		OfferLabel:       r.OfferLabel,
		RedeemedAt:       r.RedeemedAt,
	}
}

type recordResponse struct {
	VerificationCode string    `json:"verification_code"`
	CodeMasked       string    `json:"code_masked"`
	ProviderID       string    `json:"provider_id,omitempty"`
	Period           string    `json:"period"`
	OriginalAmount   string    `json:"original_amount"`
	DiscountAmount   string    `json:"discount_amount"`
	FinalAmount      string    `json:"final_amount"`
	DiscountPercent  string    `json:"discount_percent"`
	ServiceID        string    `json:"service_id,omitempty"`
	ProductID        string    `json:"product_id,omitempty"`
	ShopID           string    `json:"shop_id,omitempty"`
	OfferID          *string   `json:"offer_id,omitempty"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

func toRecord(r *model.RedemptionRecord) recordResponse {
	return recordResponse{
		VerificationCode: r.VerificationCode,
		CodeMasked:       r.CodeMasked,
		ProviderID:       r.ProviderID,
		Period:           r.PeriodKey,
		OriginalAmount:   money(r.OriginalAmount),
		DiscountAmount:   money(r.DiscountAmount),
		FinalAmount:      money(r.FinalAmount),
		DiscountPercent:  money(r.DiscountPercent),
		ServiceID:        r.Target.ServiceID,
		ProductID:        r.Target.ProductID,
		ShopID:           r.Target.ShopID,
		OfferID:          r.OfferID,
		Status:           string(r.Status),
		CreatedAt:        r.CreatedAt,
	}
}

type previewResponse struct {
	Valid      bool      `json:"valid"`
	OwnerName  string    `json:"owner_name"`
	PlanTier   string    `json:"plan_tier"`
	UsageCount int       `json:"usage_count"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type planResponse struct {
	ID                   string     `json:"id"`
	Tier                 string     `json:"tier"`
	IncludesChat         bool       `json:"includes_chat"`
	IncludesDiscounts    bool       `json:"includes_discounts"`
	CodeIssuedAt         *time.Time `json:"code_issued_at,omitempty"`
	CodeUsageCount       int        `json:"code_usage_count"`
	MaxFamilyMembers     int        `json:"max_family_members"`
	CurrentFamilyMembers int        `json:"current_family_members"`
	Active               bool       `json:"active"`
	// set only when this request issued a new code
	Code string `json:"code,omitempty"`
}

func toPlan(p *model.Plan, code string) planResponse {
	return planResponse{
		ID:                   p.ID,
		Tier:                 string(p.Tier),
		IncludesChat:         p.IncludesChat,
		IncludesDiscounts:    p.IncludesDiscounts,
		CodeIssuedAt:         p.CodeIssuedAt,
		CodeUsageCount:       p.CodeUsageCount,
		MaxFamilyMembers:     p.MaxFamilyMembers,
		CurrentFamilyMembers: p.CurrentFamilyMembers,
		Active:               p.Active,
		Code:                 code,
	}
}

type membershipResponse struct {
	ID         string     `json:"id"`
	Contact    string     `json:"contact"`
	Token      string     `json:"token,omitempty"`
	Status     string     `json:"status"`
	CanChat    bool       `json:"can_chat"`
	CanRedeem  bool       `json:"can_redeem"`
	ExpiresAt  time.Time  `json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
}

func toMembership(m *model.FamilyMembership, withToken bool) membershipResponse {
	out := membershipResponse{
		ID:         m.ID,
		Contact:    m.InviteeContact,
		Status:     string(m.Status),
		CanChat:    m.CanChat,
		CanRedeem:  m.CanRedeem,
		ExpiresAt:  m.ExpiresAt,
		AcceptedAt: m.AcceptedAt,
	}
	if withToken {
		out.Token = m.Token
	}
	return out
}

type failureResponse struct {
	PlanID string `json:"plan_id"`
	Reason string `json:"reason"`
}

type reportResponse struct {
	Period     string            `json:"period"`
	Renewed    int               `json:"renewed"`
	Skipped    int               `json:"skipped"`
	Failures   []failureResponse `json:"failures"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

func toReport(r *model.RenewalReport) reportResponse {
	out := reportResponse{
		Period:     r.Period,
		Renewed:    r.Renewed,
		Skipped:    r.Skipped,
		Failures:   make([]failureResponse, 0, len(r.Failures)),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
	for _, f := range r.Failures {
		out.Failures = append(out.Failures, failureResponse{PlanID: f.PlanID, Reason: f.Reason})
	}
	return out
}
