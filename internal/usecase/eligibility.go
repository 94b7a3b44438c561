package usecase

import (
	"slices"
	"time"

	"discount-pin-service/internal/domain"
	"discount-pin-service/internal/domain/model"
)

// EligibilityEngine decides whether an offer may be applied right now. It has
// no side effects; the caller supplies the usage history.
type EligibilityEngine struct {
	loc *time.Location
}

func NewEligibilityEngine(loc *time.Location) *EligibilityEngine {
	if loc == nil {
		loc = time.UTC
	}
	return &EligibilityEngine{loc: loc}
}

type dayKey struct {
	year  int
	month time.Month
	day   int
}

// Check runs the ordered eligibility rules and returns the first failing one.
func (e *EligibilityEngine) Check(offer *model.Offer, plan *model.Plan, target model.Target, history []*model.OfferUsage, now time.Time) error {
	if offer == nil {
		return domain.ErrOfferNotFound
	}
	if !offer.Active {
		return domain.ErrOfferInactive
	}
	if offer.ActiveFrom != nil && now.Before(*offer.ActiveFrom) {
		return domain.ErrOfferNotYetStarted
	}
	if offer.ActiveUntil != nil && now.After(*offer.ActiveUntil) {
		return domain.ErrOfferExpired
	}
	if plan == nil {
		return domain.ErrInvalidArgument
	}
	if offer.RequiresPaidPlan && !plan.Tier.IsPaid() {
		return domain.ErrPlanTierInsufficient
	}
	if offer.IsExclusive && plan.Tier != model.PlanTierAllCategories {
		return domain.ErrExclusiveOfferRestricted
	}
	if !appliesTo(offer, target) {
		return domain.ErrOfferNotApplicableToTarget
	}
	return e.checkLimits(offer.Limits, history, now)
}

func appliesTo(offer *model.Offer, target model.Target) bool {
	service := target.ServiceID != "" && slices.Contains(offer.ServiceIDs, target.ServiceID)
	product := target.ProductID != "" && slices.Contains(offer.ProductIDs, target.ProductID)
	switch offer.TargetType {
	case model.OfferTargetService:
		return service
	case model.OfferTargetProduct:
		return product
	case model.OfferTargetBoth:
		return service || product
	}
	return false
}

// checkLimits counts history once against period keys derived from the single now.
func (e *EligibilityEngine) checkLimits(limits model.UsageLimits, history []*model.OfferUsage, now time.Time) error {
	today := e.key(now)

	var lifetime, daily, monthly, yearly int
	for _, u := range history {
		if u == nil {
			continue
		}
		lifetime++
		k := e.key(u.UsedAt)
		if k.year != today.year {
			continue
		}
		yearly++
		if k.month != today.month {
			continue
		}
		monthly++
		if k.day == today.day {
			daily++
		}
	}

	checks := []struct {
		scope domain.LimitScope
		max   *int
		count int
	}{
		{domain.LimitLifetime, limits.Lifetime, lifetime},
		{domain.LimitDaily, limits.Daily, daily},
		{domain.LimitMonthly, limits.Monthly, monthly},
		{domain.LimitYearly, limits.Yearly, yearly},
	}
	for _, c := range checks {
		if c.max != nil && c.count >= *c.max {
			return &domain.UsageLimitError{Scope: c.scope, Max: *c.max}
		}
	}
	return nil
}

func (e *EligibilityEngine) key(t time.Time) dayKey {
	y, m, d := t.In(e.loc).Date()
	return dayKey{year: y, month: m, day: d}
}
