package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"discount-pin-service/internal/domain"
	"discount-pin-service/internal/domain/model"
	"discount-pin-service/internal/domain/ports/repository"
	"discount-pin-service/internal/infra/logging"
	"discount-pin-service/internal/pincode"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// Compile-time check
var _ RedemptionUseCase = (*redemptionUC)(nil)

// RedeemInput is what a provider submits alongside the subscriber's code.
type RedeemInput struct {
	ServiceID      string
	ProductID      string
	ShopID         string
	OriginalAmount decimal.Decimal
	OfferID        string
	CustomerName   string
	ReceiptNumber  string
	Location       string
}

// RedemptionUseCase verifies codes and records redemptions.
type RedemptionUseCase interface {
	Redeem(ctx context.Context, code, providerID string, in RedeemInput) (*model.Receipt, error)
	LookupByVerificationCode(ctx context.Context, verificationCode string) (*model.RedemptionRecord, error)
	History(ctx context.Context, subscriberID string, limit int) ([]*model.RedemptionRecord, error)
	PreviewCode(ctx context.Context, code string) (*model.CodePreview, error)
}

type redemptionUC struct {
	plans       repository.PlanRepository
	offers      repository.OfferRepository
	redemptions repository.RedemptionRepository
	users       repository.UserRepository
	tm          repository.TransactionManager
	locker      repository.KeyLocker
	codec       *pincode.Codec
	hasher      *pincode.Hasher
	engine      *EligibilityEngine
	log         *zerolog.Logger
}

func NewRedemptionUseCase(
	plans repository.PlanRepository,
	offers repository.OfferRepository,
	redemptions repository.RedemptionRepository,
	users repository.UserRepository,
	tm repository.TransactionManager,
	locker repository.KeyLocker,
	codec *pincode.Codec,
	hasher *pincode.Hasher,
	logger *zerolog.Logger,
) *redemptionUC {
	l := logger.With().Str("component", "redemption").Logger()
	return &redemptionUC{
		plans:       plans,
		offers:      offers,
		redemptions: redemptions,
		users:       users,
		tm:          tm,
		locker:      locker,
		codec:       codec,
		hasher:      hasher,
		engine:      NewEligibilityEngine(codec.Location()),
		log:         &l,
	}
}

// redemption is what the transactional part hands back for the receipt.
type redemption struct {
	record *model.RedemptionRecord
	plan   *model.Plan
	rule   DiscountRule
}

func (u *redemptionUC) Redeem(ctx context.Context, code, providerID string, in RedeemInput) (*model.Receipt, error) {
	defer logging.TraceDuration(u.log, "RedemptionUC.Redeem")()
	log := logging.With(ctx, u.log)

	canonical, err := pincode.Format(code)
	if err != nil {
		return nil, err
	}
	if err := validateRedeemInput(providerID, in); err != nil {
		return nil, err
	}
	codeHash, err := u.hasher.Hash(canonical)
	if err != nil {
		return nil, err
	}

	now := u.codec.Now()
	var (
		out   *redemption
		fnErr error
	)
	err = u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		out, fnErr = u.redeemTx(ctx, tx, canonical, codeHash, providerID, in, now)
		return fnErr
	})
	if err != nil {
		if fnErr == nil {
			// fn succeeded, so the transaction itself failed to begin or commit
			err = domain.NewPersistenceError("commit redemption", err)
		}
		if errors.Is(err, domain.ErrPersistenceFailure) {
			log.Error().Err(err).
				Str("code", pincode.Mask(canonical)).
				Str("provider_id", providerID).
				Str("offer_id", in.OfferID).
				Str("amount", in.OriginalAmount.String()).
				Msg("redemption rolled back")
		} else {
			log.Info().Err(err).Str("code", pincode.Mask(canonical)).Msg("redemption rejected")
		}
		return nil, err
	}

	rec := out.record
	var name string
	if owner, err := u.users.FindByID(ctx, repository.NoTX, out.plan.OwnerID); err != nil {
		log.Warn().Err(err).Str("subscriber_id", out.plan.OwnerID).Msg("subscriber lookup failed after redemption")
	} else {
		name = owner.Name()
	}

	label := out.rule.Label
	if label == "" {
		label = DefaultDiscount.Label
	}

	log.Info().
		Str("verification_code", rec.VerificationCode).
		Str("plan_id", rec.PlanID).
		Str("final_amount", rec.FinalAmount.StringFixed(2)).
		Msg("redemption completed")

	return &model.Receipt{
		VerificationCode: rec.VerificationCode,
		SubscriberName:   name,
		PlanTier:         out.plan.Tier,
		OriginalAmount:   rec.OriginalAmount,
		DiscountAmount:   rec.DiscountAmount,
		FinalAmount:      rec.FinalAmount,
		DiscountPercent:  rec.DiscountPercent,
		OfferID:          rec.OfferID,
		OfferLabel:       label,
		RedeemedAt:       rec.CreatedAt,
	}, nil
}

func (u *redemptionUC) redeemTx(ctx context.Context, tx repository.Tx, canonical, codeHash, providerID string, in RedeemInput, now time.Time) (*redemption, error) {
	plan, err := u.plans.FindActiveByCodeHash(ctx, tx, codeHash)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrCodeNotFound
	}
	if err != nil {
		return nil, domain.NewPersistenceError("find plan by code", err)
	}
	if u.codec.IsExpiredAt(plan.CodeIssuedAt, now) {
		return nil, domain.ErrCodeExpired
	}
	if !plan.Tier.IsPaid() || !plan.IncludesDiscounts {
		return nil, domain.ErrDiscountsNotIncluded
	}
	if plan.OwnerID == providerID {
		logging.With(ctx, u.log).Warn().Str("plan_id", plan.ID).Msg("provider redeemed own code")
	}

	target := model.Target{ServiceID: in.ServiceID, ProductID: in.ProductID, ShopID: in.ShopID}
	rule := DefaultDiscount
	var offer *model.Offer
	if in.OfferID != "" {
		if offer, err = u.checkOffer(ctx, tx, in.OfferID, plan, target, now); err != nil {
			return nil, err
		}
		rule = RuleForOffer(offer)
	}

	res := Calculate(in.OriginalAmount, rule)

	vcode, err := newVerificationCode(now)
	if err != nil {
		return nil, fmt.Errorf("%w: verification code: %v", domain.ErrOperationFailed, err)
	}

	rec := &model.RedemptionRecord{
		ID:               uuid.NewString(),
		PlanID:           plan.ID,
		SubscriberID:     plan.OwnerID,
		ProviderID:       providerID,
		VerificationCode: vcode,
		CodeMasked:       pincode.Mask(canonical),
		PeriodKey:        u.codec.PeriodOf(now).String(),
		OriginalAmount:   in.OriginalAmount.Round(2),
		DiscountAmount:   res.DiscountAmount,
		FinalAmount:      res.FinalAmount,
		DiscountPercent:  res.DiscountPercent,
		Target:           target,
		Context: model.RedemptionContext{
			CustomerName:  in.CustomerName,
			ReceiptNumber: in.ReceiptNumber,
			Location:      in.Location,
		},
		Status:    model.RedemptionStatusCompleted,
		CreatedAt: now,
	}
	if offer != nil {
		id := offer.ID
		rec.OfferID = &id
	}

	if err := u.redemptions.Create(ctx, tx, rec); err != nil {
		return nil, domain.NewPersistenceError("create redemption", err)
	}
	if err := u.plans.IncrementCodeUsage(ctx, tx, plan.ID); err != nil {
		return nil, domain.NewPersistenceError("increment code usage", err)
	}
	if offer != nil {
		usage := &model.OfferUsage{
			ID:           uuid.NewString(),
			OfferID:      offer.ID,
			SubscriberID: plan.OwnerID,
			RedemptionID: rec.ID,
			UsedAt:       now,
		}
		if err := u.offers.SaveUsage(ctx, tx, usage); err != nil {
			return nil, domain.NewPersistenceError("save offer usage", err)
		}
		if err := u.offers.IncrementCounters(ctx, tx, offer.ID); err != nil {
			return nil, domain.NewPersistenceError("increment offer counters", err)
		}
	}
	return &redemption{record: rec, plan: plan, rule: rule}, nil
}

// checkOffer loads the offer and the subscriber's history under a lock on
// (offer, subscriber) so the limit check and the usage write cannot interleave.
func (u *redemptionUC) checkOffer(ctx context.Context, tx repository.Tx, offerID string, plan *model.Plan, target model.Target, now time.Time) (*model.Offer, error) {
	if err := u.locker.LockKey(ctx, tx, "offer:"+offerID+"|"+plan.OwnerID); err != nil {
		return nil, domain.NewPersistenceError("lock offer usage", err)
	}
	offer, err := u.offers.FindByID(ctx, tx, offerID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrOfferNotFound
	}
	if err != nil {
		return nil, domain.NewPersistenceError("find offer", err)
	}
	history, err := u.offers.ListUsage(ctx, tx, offerID, plan.OwnerID)
	if err != nil {
		return nil, domain.NewPersistenceError("list offer usage", err)
	}
	if err := u.engine.Check(offer, plan, target, history, now); err != nil {
		return nil, err
	}
	return offer, nil
}

func validateRedeemInput(providerID string, in RedeemInput) error {
	if providerID == "" {
		return fmt.Errorf("%w: provider id is required", domain.ErrInvalidArgument)
	}
	if !in.OriginalAmount.IsPositive() {
		return fmt.Errorf("%w: original amount must be positive", domain.ErrInvalidArgument)
	}
	if !in.OriginalAmount.Equal(in.OriginalAmount.Round(2)) {
		return fmt.Errorf("%w: original amount has more than 2 decimal places", domain.ErrInvalidArgument)
	}
	if in.ServiceID == "" && in.ProductID == "" {
		return fmt.Errorf("%w: service or product id is required", domain.ErrInvalidArgument)
	}
	return nil
}

func (u *redemptionUC) LookupByVerificationCode(ctx context.Context, verificationCode string) (*model.RedemptionRecord, error) {
	defer logging.TraceDuration(u.log, "RedemptionUC.LookupByVerificationCode")()
	if verificationCode == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.redemptions.FindByVerificationCode(ctx, repository.NoTX, verificationCode)
}

// History returns the subscriber's most recent redemptions with provider
// identity removed. Only the masked code is ever stored, so nothing else needs hiding.
func (u *redemptionUC) History(ctx context.Context, subscriberID string, limit int) ([]*model.RedemptionRecord, error) {
	defer logging.TraceDuration(u.log, "RedemptionUC.History")()
	if subscriberID == "" {
		return nil, domain.ErrInvalidArgument
	}
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	recs, err := u.redemptions.ListBySubscriber(ctx, repository.NoTX, subscriberID, limit)
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		r.ProviderID = ""
	}
	return recs, nil
}

// PreviewCode resolves a code without applying anything. A code that exists
// but cannot be redeemed right now comes back with Valid=false.
func (u *redemptionUC) PreviewCode(ctx context.Context, code string) (*model.CodePreview, error) {
	defer logging.TraceDuration(u.log, "RedemptionUC.PreviewCode")()

	canonical, err := pincode.Format(code)
	if err != nil {
		return nil, err
	}
	codeHash, err := u.hasher.Hash(canonical)
	if err != nil {
		return nil, err
	}
	plan, err := u.plans.FindActiveByCodeHash(ctx, repository.NoTX, codeHash)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrCodeNotFound
	}
	if err != nil {
		return nil, err
	}

	preview := &model.CodePreview{
		Valid:      !u.codec.IsExpired(plan.CodeIssuedAt) && plan.Tier.IsPaid() && plan.IncludesDiscounts,
		PlanTier:   plan.Tier,
		UsageCount: plan.CodeUsageCount,
		ExpiresAt:  u.codec.ExpiryInstant(),
	}
	if owner, err := u.users.FindByID(ctx, repository.NoTX, plan.OwnerID); err == nil {
		preview.OwnerDisplayName = owner.Name()
	} else {
		logging.With(ctx, u.log).Warn().Err(err).Str("plan_id", plan.ID).Msg("owner lookup failed for preview")
	}
	return preview, nil
}
