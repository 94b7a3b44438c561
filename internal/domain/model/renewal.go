package model

import "time"

// PlanFailure records why one plan could not be renewed.
type PlanFailure struct {
	PlanID string
	Reason string
}

// RenewalReport summarises one RenewAll run.
type RenewalReport struct {
	Period     string
	Renewed    int
	Skipped    int
	Failures   []PlanFailure
	StartedAt  time.Time
	FinishedAt time.Time
}

// FailedPlanIDs lists the IDs of plans that failed to renew.
func (r *RenewalReport) FailedPlanIDs() []string {
	ids := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		ids = append(ids, f.PlanID)
	}
	return ids
}
