package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"discount-pin-service/internal/domain"
	"discount-pin-service/internal/domain/model"
	"discount-pin-service/internal/infra/metrics"
	"discount-pin-service/internal/infra/sched"
	"discount-pin-service/internal/usecase"
)

func (s *Server) redeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if !decodeJSON(w, r, &req) {
		metrics.IncRedemption("bad_request")
		return
	}
	provider := claimsFrom(r.Context()).Subject

	receipt, err := s.d.Redemptions.Redeem(r.Context(), req.Code, provider, usecase.RedeemInput{
		ServiceID:      req.ServiceID,
		ProductID:      req.ProductID,
		ShopID:         req.ShopID,
		OriginalAmount: req.OriginalAmount,
		OfferID:        req.OfferID,
		CustomerName:   req.CustomerName,
		ReceiptNumber:  req.ReceiptNumber,
		Location:       req.Location,
	})
	if err != nil {
		code, _ := errorCode(err)
		metrics.IncRedemption(code)
		if isOfferRejection(err) {
			metrics.IncOfferRejection(code)
		}
		writeError(w, r, s.log, err)
		return
	}

	metrics.IncRedemption("completed")
	metrics.AddRedemptionAmounts(
		receipt.OriginalAmount.InexactFloat64(),
		receipt.DiscountAmount.InexactFloat64(),
		receipt.FinalAmount.InexactFloat64(),
	)
	writeJSON(w, http.StatusCreated, toReceipt(receipt))
}

var offerRejections = []error{
	domain.ErrOfferNotFound,
	domain.ErrOfferInactive,
	domain.ErrOfferNotYetStarted,
	domain.ErrOfferExpired,
	domain.ErrPlanTierInsufficient,
	domain.ErrExclusiveOfferRestricted,
	domain.ErrOfferNotApplicableToTarget,
	domain.ErrUsageLimitExceeded,
}

func isOfferRejection(err error) bool {
	for _, e := range offerRejections {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(chi.URLParam(r, "verificationCode"))
	rec, err := s.d.Redemptions.LookupByVerificationCode(r.Context(), code)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	// providers only see their own receipts
	c := claimsFrom(r.Context())
	if c.Role == RoleProvider && rec.ProviderID != c.Subject {
		writeError(w, r, s.log, domain.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toRecord(rec))
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, r, s.log, domain.ErrInvalidArgument)
			return
		}
		limit = n
	}
	recs, err := s.d.Redemptions.History(r.Context(), claimsFrom(r.Context()).Subject, limit)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	out := make([]recordResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toRecord(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := s.d.Redemptions.PreviewCode(r.Context(), req.Code)
	if err != nil {
		code, _ := errorCode(err)
		metrics.IncCodePreview(code)
		writeError(w, r, s.log, err)
		return
	}
	if p.Valid {
		metrics.IncCodePreview("valid")
	} else {
		metrics.IncCodePreview("invalid")
	}
	writeJSON(w, http.StatusOK, previewResponse{
		Valid:      p.Valid,
		OwnerName:  p.OwnerDisplayName,
		PlanTier:   string(p.PlanTier),
		UsageCount: p.UsageCount,
		ExpiresAt:  p.ExpiresAt,
	})
}

func (s *Server) getPlan(w http.ResponseWriter, r *http.Request) {
	p, err := s.d.Plans.Get(r.Context(), claimsFrom(r.Context()).Subject)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlan(p, ""))
}

func (s *Server) upgrade(w http.ResponseWriter, r *http.Request) {
	var req upgradeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, code, err := s.d.Plans.Upgrade(r.Context(), claimsFrom(r.Context()).Subject, model.PlanTier(req.Tier))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, toPlan(p, code))
}

func (s *Server) members(w http.ResponseWriter, r *http.Request) {
	ms, err := s.d.Family.Members(r.Context(), claimsFrom(r.Context()).Subject)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	out := make([]membershipResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, toMembership(m, false))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (s *Server) invite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := s.d.Family.Invite(r.Context(), claimsFrom(r.Context()).Subject, req.Contact)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMembership(m, true))
}

func (s *Server) accept(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	m, err := s.d.Family.Accept(r.Context(), token, claimsFrom(r.Context()).Subject)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toMembership(m, false))
}

func (s *Server) renew(w http.ResponseWriter, r *http.Request) {
	report, err := s.d.Renewals.RunOnce(r.Context())
	if errors.Is(err, sched.ErrRunSkipped) {
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Code: "renewal_in_progress"})
		return
	}
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toReport(report))
}
