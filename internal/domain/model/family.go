package model

import (
	"time"

	"discount-pin-service/internal/domain"

	"github.com/google/uuid"
)

type MembershipStatus string

const (
	MembershipPending  MembershipStatus = "pending"
	MembershipAccepted MembershipStatus = "accepted"
	MembershipExpired  MembershipStatus = "expired"
)

// InvitationTTL is how long a family invitation stays acceptable.
const InvitationTTL = 7 * 24 * time.Hour

// FamilyMembership is an invitation from a plan owner to another user.
type FamilyMembership struct {
	ID             string
	PlanID         string
	InviteeContact string
	Token          string
	Status         MembershipStatus
	MemberUserID   *string
	CanChat        bool
	CanRedeem      bool
	ExpiresAt      time.Time
	CreatedAt      time.Time
	AcceptedAt     *time.Time
}

// NewFamilyInvitation creates a pending invitation inheriting the plan's capabilities.
func NewFamilyInvitation(plan *Plan, contact string, now time.Time) (*FamilyMembership, error) {
	if plan.IsZero() || contact == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &FamilyMembership{
		ID:             uuid.NewString(),
		PlanID:         plan.ID,
		InviteeContact: contact,
		Token:          uuid.NewString(),
		Status:         MembershipPending,
		CanChat:        plan.IncludesChat,
		CanRedeem:      plan.IncludesDiscounts,
		ExpiresAt:      now.Add(InvitationTTL),
		CreatedAt:      now,
	}, nil
}

func (m *FamilyMembership) IsExpired(now time.Time) bool {
	return m.Status == MembershipExpired || now.After(m.ExpiresAt)
}
