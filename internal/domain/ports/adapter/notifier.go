package adapter

import (
	"context"
	"time"

	"discount-pin-service/internal/domain/model"
)

// CodeNotifier delivers a freshly issued plain code to its owner. Codes are
// only stored hashed, so this is the one place the plain value leaves the service.
type CodeNotifier interface {
	NotifyCodeIssued(ctx context.Context, owner *model.User, code string, validUntil time.Time) error
}

// ReportNotifier sends the outcome of a renewal run to operators.
type ReportNotifier interface {
	NotifyRenewalReport(ctx context.Context, report *model.RenewalReport) error
}
