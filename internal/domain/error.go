package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")

	// Redemption code errors
	ErrMalformedCode        = errors.New("code must contain exactly 8 digits")
	ErrCodeNotFound         = errors.New("no active plan matches this code")
	ErrCodeExpired          = errors.New("code belongs to a previous month")
	ErrDiscountsNotIncluded = errors.New("plan does not include discount redemption")

	// Offer errors
	ErrOfferNotFound              = errors.New("offer not found")
	ErrOfferInactive              = errors.New("offer is not active")
	ErrOfferNotYetStarted         = errors.New("offer has not started yet")
	ErrOfferExpired               = errors.New("offer has ended")
	ErrPlanTierInsufficient       = errors.New("offer requires a paid plan")
	ErrExclusiveOfferRestricted   = errors.New("offer is exclusive to the top plan tier")
	ErrOfferNotApplicableToTarget = errors.New("offer does not apply to this service or product")
	ErrUsageLimitExceeded         = errors.New("offer usage limit exceeded")

	// Family errors
	ErrInvitationExpired = errors.New("invitation has expired")
	ErrSelfInvitation    = errors.New("cannot accept an invitation to your own plan")
	ErrFamilyFull        = errors.New("plan has no free family seats")
	ErrPlanNotPaid       = errors.New("plan is on the free tier")
	ErrFamilySeatsInUse  = errors.New("plan has more family members than the requested tier allows")

	// ErrPersistenceFailure is the retryable store failure raised during a redemption write.
	ErrPersistenceFailure = errors.New("persistence failure")
)

// LimitScope names one of the four offer usage windows.
type LimitScope string

const (
	LimitLifetime LimitScope = "lifetime"
	LimitDaily    LimitScope = "daily"
	LimitMonthly  LimitScope = "monthly"
	LimitYearly   LimitScope = "yearly"
)

// UsageLimitError reports which usage window rejected an offer.
type UsageLimitError struct {
	Scope LimitScope
	Max   int
}

func (e *UsageLimitError) Error() string {
	return fmt.Sprintf("offer usage limit exceeded: %s max %d", e.Scope, e.Max)
}

func (e *UsageLimitError) Is(target error) bool { return target == ErrUsageLimitExceeded }

// PersistenceError wraps a store error that aborted an atomic write.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistenceFailure }

// Retryable is always true: callers should look the receipt up before retrying.
func (e *PersistenceError) Retryable() bool { return true }

// NewPersistenceError wraps err unless it already is a PersistenceError.
func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
