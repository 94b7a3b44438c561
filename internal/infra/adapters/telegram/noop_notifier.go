package telegram

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"discount-pin-service/internal/domain/model"
	"discount-pin-service/internal/domain/ports/adapter"
	"discount-pin-service/internal/infra/logging"
)

var (
	_ adapter.CodeNotifier   = (*NoopNotifier)(nil)
	_ adapter.ReportNotifier = (*NoopNotifier)(nil)
)

// NoopNotifier logs instead of sending. Used when no bot token is configured.
type NoopNotifier struct {
	log *zerolog.Logger
	dev bool
}

func NewNoopNotifier(logger *zerolog.Logger, dev bool) *NoopNotifier {
	l := logger.With().Str("component", "noop_notifier").Logger()
	return &NoopNotifier{log: &l, dev: dev}
}

func (n *NoopNotifier) NotifyCodeIssued(ctx context.Context, owner *model.User, code string, validUntil time.Time) error {
	n.log.Info().
		Str("owner_id", owner.ID).
		Str("code", logging.Redact(code, n.dev)).
		Time("valid_until", validUntil).
		Msg("code issued")
	return nil
}

func (n *NoopNotifier) NotifyRenewalReport(ctx context.Context, r *model.RenewalReport) error {
	n.log.Info().
		Str("period", r.Period).
		Int("renewed", r.Renewed).
		Int("skipped", r.Skipped).
		Int("failed", len(r.Failures)).
		Msg("renewal report")
	return nil
}
