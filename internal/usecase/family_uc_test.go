//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"discount-pin-service/internal/domain"
	"discount-pin-service/internal/domain/model"
	"discount-pin-service/internal/usecase"
)

func (f *fixture) familyUC() usecase.FamilyUseCase {
	return usecase.NewFamilyUseCase(f.store.Plans(), f.store.Family(), f.store, f.clock.Now, newTestLogger())
}

func TestFamilyUseCase(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

	t.Run("should invite and accept a member", func(t *testing.T) {
		// --- Arrange ---
		f := newFixture(t, now)
		plan := f.seedPlan(t, "owner", model.PlanTierAllCategories, "1234-5678", now)
		uc := f.familyUC()

		// --- Act ---
		inv, err := uc.Invite(ctx, "owner", "kid@example.com")
		if err != nil {
			t.Fatalf("invite: %v", err)
		}
		m, err := uc.Accept(ctx, inv.Token, "kid")

		// --- Assert ---
		if err != nil {
			t.Fatalf("accept: %v", err)
		}
		if m.Status != model.MembershipAccepted || m.MemberUserID == nil || *m.MemberUserID != "kid" {
			t.Errorf("unexpected membership: %+v", m)
		}
		if !m.CanChat || !m.CanRedeem {
			t.Error("expected capabilities copied from the plan")
		}
		if !inv.ExpiresAt.Equal(now.Add(7 * 24 * time.Hour)) {
			t.Errorf("unexpected expiry %v", inv.ExpiresAt)
		}
		if got := f.plan(t, plan.ID).CurrentFamilyMembers; got != 1 {
			t.Errorf("expected 1 member, got %d", got)
		}

		again, err := uc.Accept(ctx, inv.Token, "kid")
		if err != nil || again.ID != m.ID {
			t.Errorf("accepting twice should be a no-op, got %v", err)
		}
		if got := f.plan(t, plan.ID).CurrentFamilyMembers; got != 1 {
			t.Errorf("expected still 1 member, got %d", got)
		}
		members, _ := uc.Members(ctx, "owner")
		if len(members) != 1 {
			t.Errorf("expected 1 membership, got %d", len(members))
		}
	})

	t.Run("should reject accepting your own invitation", func(t *testing.T) {
		f := newFixture(t, now)
		f.seedPlan(t, "owner", model.PlanTierSingleCategory, "1234-5678", now)
		uc := f.familyUC()
		inv, _ := uc.Invite(ctx, "owner", "me@example.com")

		if _, err := uc.Accept(ctx, inv.Token, "owner"); !errors.Is(err, domain.ErrSelfInvitation) {
			t.Errorf("expected ErrSelfInvitation, got %v", err)
		}
	})

	t.Run("should expire stale invitations", func(t *testing.T) {
		f := newFixture(t, now)
		f.seedPlan(t, "owner", model.PlanTierSingleCategory, "1234-5678", now)
		uc := f.familyUC()
		inv, _ := uc.Invite(ctx, "owner", "late@example.com")

		f.clock.Set(now.Add(8 * 24 * time.Hour))
		if _, err := uc.Accept(ctx, inv.Token, "late"); !errors.Is(err, domain.ErrInvitationExpired) {
			t.Fatalf("expected ErrInvitationExpired, got %v", err)
		}
		stored, _ := f.store.Family().FindByToken(ctx, nil, inv.Token)
		if stored.Status != model.MembershipExpired {
			t.Errorf("expected status expired, got %s", stored.Status)
		}
	})

	t.Run("should never exceed the seat count", func(t *testing.T) {
		f := newFixture(t, now)
		f.seedPlan(t, "owner", model.PlanTierSingleCategory, "1234-5678", now)
		uc := f.familyUC()

		first, _ := uc.Invite(ctx, "owner", "a@example.com")
		second, err := uc.Invite(ctx, "owner", "b@example.com")
		if err != nil {
			t.Fatalf("pending invitations do not use seats: %v", err)
		}
		if _, err := uc.Accept(ctx, first.Token, "a"); err != nil {
			t.Fatalf("accept: %v", err)
		}
		if _, err := uc.Accept(ctx, second.Token, "b"); !errors.Is(err, domain.ErrFamilyFull) {
			t.Errorf("expected ErrFamilyFull, got %v", err)
		}
		if _, err := uc.Invite(ctx, "owner", "c@example.com"); !errors.Is(err, domain.ErrFamilyFull) {
			t.Errorf("expected ErrFamilyFull on invite, got %v", err)
		}
	})

	t.Run("should require a paid plan to invite", func(t *testing.T) {
		f := newFixture(t, now)
		f.seedPlan(t, "owner", model.PlanTierFree, "", time.Time{})
		if _, err := f.familyUC().Invite(ctx, "owner", "x@example.com"); !errors.Is(err, domain.ErrPlanNotPaid) {
			t.Errorf("expected ErrPlanNotPaid, got %v", err)
		}
	})

	t.Run("should return not found for unknown tokens", func(t *testing.T) {
		f := newFixture(t, now)
		if _, err := f.familyUC().Accept(ctx, "nope", "someone"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
