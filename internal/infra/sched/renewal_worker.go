package sched

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"discount-pin-service/internal/config"
	"discount-pin-service/internal/domain/model"
	"discount-pin-service/internal/domain/ports/adapter"
	"discount-pin-service/internal/infra/metrics"
	"discount-pin-service/internal/usecase"
)

const renewalLockKey = "lock:pin-renewal"

// ErrRunSkipped is returned by RunOnce when another instance holds the run lock.
var ErrRunSkipped = errors.New("renewal run already in progress")

// RunLocker is the distributed lock taken around a run. The Redis locker satisfies it.
type RunLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, key, token string) error
}

// RenewalWorker runs RenewAll on a cron schedule and reports each run.
type RenewalWorker struct {
	spec       string
	lockTTL    time.Duration
	runTimeout time.Duration
	renewals   usecase.RenewalUseCase
	locker     RunLocker
	reporter   adapter.ReportNotifier
	log        *zerolog.Logger
}

// NewRenewalWorker validates the five-field cron expression up front. locker and
// reporter may be nil.
func NewRenewalWorker(cfg config.SchedulerConfig, renewals usecase.RenewalUseCase, locker RunLocker, reporter adapter.ReportNotifier, logger *zerolog.Logger) (*RenewalWorker, error) {
	if _, err := cron.ParseStandard(cfg.RenewalCron); err != nil {
		return nil, fmt.Errorf("renewal cron %q: %w", cfg.RenewalCron, err)
	}
	l := logger.With().Str("component", "RenewalWorker").Logger()
	w := &RenewalWorker{
		spec:       cfg.RenewalCron,
		lockTTL:    cfg.LockTTL,
		runTimeout: cfg.RunTimeout,
		renewals:   renewals,
		locker:     locker,
		reporter:   reporter,
		log:        &l,
	}
	if w.lockTTL <= 0 {
		w.lockTTL = 15 * time.Minute
	}
	if w.runTimeout <= 0 {
		w.runTimeout = 10 * time.Minute
	}
	return w, nil
}

// Run blocks until ctx is cancelled, then waits for an in-flight run to finish.
func (w *RenewalWorker) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(w.spec, func() {
		if _, err := w.RunOnce(ctx); err != nil && !errors.Is(err, ErrRunSkipped) {
			w.log.Error().Err(err).Msg("scheduled renewal failed")
		}
	}); err != nil {
		return err
	}

	w.log.Info().Str("cron", w.spec).Msg("Starting renewal worker")
	c.Start()
	<-ctx.Done()
	w.log.Info().Msg("Stopping renewal worker")
	<-c.Stop().Done()
	return ctx.Err()
}

// RunOnce performs a single locked renewal run and publishes its outcome.
func (w *RenewalWorker) RunOnce(ctx context.Context) (*model.RenewalReport, error) {
	if w.locker != nil {
		token, err := w.locker.TryLock(ctx, renewalLockKey, w.lockTTL)
		if err != nil {
			w.log.Info().Err(err).Msg("renewal lock not acquired, skipping run")
			return nil, fmt.Errorf("%w: %v", ErrRunSkipped, err)
		}
		defer func() {
			// the run ctx may already be done; release with a fresh one
			uctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := w.locker.Unlock(uctx, renewalLockKey, token); err != nil {
				w.log.Warn().Err(err).Msg("renewal lock release failed")
			}
		}()
	}

	runCtx, cancel := context.WithTimeout(ctx, w.runTimeout)
	defer cancel()

	report, err := w.renewals.RenewAll(runCtx)
	if err != nil {
		return nil, err
	}
	metrics.ObserveRenewalRun(report.Renewed, report.Skipped, len(report.Failures),
		report.FinishedAt.Sub(report.StartedAt), report.FinishedAt)

	if w.reporter != nil {
		if err := w.reporter.NotifyRenewalReport(ctx, report); err != nil {
			w.log.Warn().Err(err).Msg("renewal report delivery failed")
		}
	}
	return report, nil
}
