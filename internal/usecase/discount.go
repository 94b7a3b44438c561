package usecase

import (
	"discount-pin-service/internal/domain/model"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)

	// DefaultDiscount applies when a code is redeemed without an offer.
	DefaultDiscount = DiscountRule{Kind: model.DiscountKindPercentage, Value: decimal.NewFromInt(10), Label: "default discount"}
)

// DiscountRule is one of the calculator's rule variants.
type DiscountRule struct {
	Kind  model.DiscountKind
	Value decimal.Decimal
	Label string
}

func PercentageRule(v decimal.Decimal) DiscountRule {
	return DiscountRule{Kind: model.DiscountKindPercentage, Value: v}
}

func FixedAmountRule(v decimal.Decimal) DiscountRule {
	return DiscountRule{Kind: model.DiscountKindFixedAmount, Value: v}
}

// RuleForOffer returns the offer's rule, or DefaultDiscount for nil.
func RuleForOffer(o *model.Offer) DiscountRule {
	if o == nil {
		return DefaultDiscount
	}
	return DiscountRule{Kind: o.DiscountKind, Value: o.DiscountValue, Label: o.Title}
}

// DiscountResult holds the three reported amounts, rounded to cents.
type DiscountResult struct {
	DiscountAmount  decimal.Decimal
	FinalAmount     decimal.Decimal
	DiscountPercent decimal.Decimal
}

// Calculate applies rule to original. Percentages are clamped to [0,100] and
// fixed amounts to [0,original]; an unknown rule kind falls back to DefaultDiscount.
func Calculate(original decimal.Decimal, rule DiscountRule) DiscountResult {
	if original.IsNegative() {
		original = decimal.Zero
	}

	var discount, percent decimal.Decimal
	switch rule.Kind {
	case model.DiscountKindFixedAmount:
		discount = clamp(rule.Value, decimal.Zero, original)
		if original.IsPositive() {
			percent = discount.Div(original).Mul(hundred)
		}
	case model.DiscountKindPercentage:
		percent = clamp(rule.Value, decimal.Zero, hundred)
		discount = original.Mul(percent).Div(hundred)
	default:
		return Calculate(original, DefaultDiscount)
	}

	final := original.Sub(discount)
	if final.IsNegative() {
		final = decimal.Zero
	}
	return DiscountResult{
		DiscountAmount:  discount.Round(2),
		FinalAmount:     final.Round(2),
		DiscountPercent: percent.Round(2),
	}
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
