//go:build !integration

package model

import (
	"errors"
	"testing"
	"time"

	"discount-pin-service/internal/domain"
)

// --- Plan Model Tests ---

func TestNewFreePlan(t *testing.T) {
	t.Run("should create an active free plan without a code", func(t *testing.T) {
		plan, err := NewFreePlan("user-1")

		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if plan.ID == "" || plan.OwnerID != "user-1" {
			t.Errorf("unexpected identity: %+v", plan)
		}
		if plan.Tier != PlanTierFree || !plan.Active {
			t.Errorf("expected an active free plan, got tier=%s active=%v", plan.Tier, plan.Active)
		}
		if plan.HasCode() {
			t.Error("expected a free plan to have no code")
		}
	})

	t.Run("should fail without an owner", func(t *testing.T) {
		plan, err := NewFreePlan("")
		if plan != nil || !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got plan=%v err=%v", plan, err)
		}
	})
}

func TestPlan_ApplyTier(t *testing.T) {
	t.Run("should copy the capabilities of a paid tier", func(t *testing.T) {
		plan, _ := NewFreePlan("user-1")

		if err := plan.ApplyTier(PlanTierAllCategories); err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if !plan.IncludesChat || !plan.IncludesDiscounts || plan.MaxFamilyMembers != 4 {
			t.Errorf("unexpected capabilities: %+v", plan)
		}
	})

	t.Run("should drop the code when downgraded to free", func(t *testing.T) {
		plan, _ := NewFreePlan("user-1")
		_ = plan.ApplyTier(PlanTierSingleCategory)
		hash, now := "h", time.Now()
		plan.CodeHash, plan.CodeIssuedAt, plan.CodeUsageCount = &hash, &now, 3

		if err := plan.ApplyTier(PlanTierFree); err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if plan.HasCode() || plan.CodeIssuedAt != nil || plan.CodeUsageCount != 0 {
			t.Errorf("expected code state cleared, got %+v", plan)
		}
		if plan.IncludesDiscounts {
			t.Error("expected free tier without discounts")
		}
	})

	t.Run("should refuse a tier with fewer seats than members in use", func(t *testing.T) {
		plan, _ := NewFreePlan("user-1")
		_ = plan.ApplyTier(PlanTierAllCategories)
		plan.CurrentFamilyMembers = 3

		if err := plan.ApplyTier(PlanTierSingleCategory); !errors.Is(err, domain.ErrFamilySeatsInUse) {
			t.Fatalf("expected ErrFamilySeatsInUse, got %v", err)
		}
		if plan.Tier != PlanTierAllCategories || plan.MaxFamilyMembers != 4 {
			t.Errorf("plan changed: %+v", plan)
		}
	})

	t.Run("should reject an unknown tier", func(t *testing.T) {
		plan, _ := NewFreePlan("user-1")
		if err := plan.ApplyTier("gold"); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if plan.Tier != PlanTierFree {
			t.Errorf("tier changed to %s", plan.Tier)
		}
	})
}

// --- Family Model Tests ---

func TestNewFamilyInvitation(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	plan, _ := NewFreePlan("owner-1")
	_ = plan.ApplyTier(PlanTierSingleCategory)

	t.Run("should inherit the plan's capabilities and expire after a week", func(t *testing.T) {
		m, err := NewFamilyInvitation(plan, "kid@example.com", now)

		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if m.Status != MembershipPending || m.Token == "" || m.PlanID != plan.ID {
			t.Errorf("unexpected invitation: %+v", m)
		}
		if m.CanChat || !m.CanRedeem {
			t.Errorf("expected redeem-only rights, got chat=%v redeem=%v", m.CanChat, m.CanRedeem)
		}
		if !m.ExpiresAt.Equal(now.Add(InvitationTTL)) {
			t.Errorf("expires at %s", m.ExpiresAt)
		}
		if m.IsExpired(now.Add(InvitationTTL - time.Second)) {
			t.Error("expected invitation to be valid just before its expiry")
		}
		if !m.IsExpired(now.Add(InvitationTTL + time.Second)) {
			t.Error("expected invitation to be expired after its expiry")
		}
	})

	t.Run("should fail without a contact", func(t *testing.T) {
		if _, err := NewFamilyInvitation(plan, "", now); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

// --- User / Report Tests ---

func TestUser_Name(t *testing.T) {
	t.Run("should prefer the display name", func(t *testing.T) {
		u := &User{DisplayName: "Ana", Email: "ana@example.com"}
		if u.Name() != "Ana" {
			t.Errorf("got %q", u.Name())
		}
	})

	t.Run("should fall back to the email local part", func(t *testing.T) {
		u := &User{Email: "bo@example.com"}
		if u.Name() != "bo" {
			t.Errorf("got %q", u.Name())
		}
	})
}

func TestRenewalReport_FailedPlanIDs(t *testing.T) {
	r := &RenewalReport{Failures: []PlanFailure{{PlanID: "p-1"}, {PlanID: "p-2"}}}
	ids := r.FailedPlanIDs()
	if len(ids) != 2 || ids[0] != "p-1" || ids[1] != "p-2" {
		t.Errorf("got %v", ids)
	}
}
