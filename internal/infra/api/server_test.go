//go:build !integration

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discount-pin-service/internal/domain/model"
	"discount-pin-service/internal/infra/api"
	"discount-pin-service/internal/infra/db/memory"
	"discount-pin-service/internal/infra/sched"
	"discount-pin-service/internal/pincode"
	"discount-pin-service/internal/usecase"
)

const (
	jwtSecret = "jwt-secret-0123456789"
	planCode  = "1234-5678"
)

func mustDec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

type fakeRenewer struct {
	report *model.RenewalReport
	err    error
}

func (f *fakeRenewer) RunOnce(ctx context.Context) (*model.RenewalReport, error) {
	return f.report, f.err
}

type fakeLimiter struct{ allow bool }

func (f *fakeLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return f.allow, nil
}

type env struct {
	t      *testing.T
	store  *memory.Store
	auth   *api.Authenticator
	h      http.Handler
	plan   *model.Plan
	offer  *model.Offer
	renew  *fakeRenewer
	ready  error
	limitr *fakeLimiter
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := newLogger()
	store := memory.NewStore()
	codec := pincode.NewCodec(time.Now, time.UTC)
	hasher, err := pincode.NewHasher("code-secret-0123456789")
	require.NoError(t, err)
	auth, err := api.NewAuthenticator(jwtSecret)
	require.NoError(t, err)

	store.Users().Put(&model.User{ID: "sub-1", DisplayName: "Ana"})
	store.Users().Put(&model.User{ID: "sub-2", DisplayName: "Bo"})
	p, err := model.NewFreePlan("sub-1")
	require.NoError(t, err)
	require.NoError(t, p.ApplyTier(model.PlanTierAllCategories))
	h, err := hasher.Hash(planCode)
	require.NoError(t, err)
	now := time.Now().UTC()
	p.CodeHash, p.CodeIssuedAt = &h, &now
	require.NoError(t, store.Plans().Save(context.Background(), nil, p))

	lifetime := 1
	offer := &model.Offer{
		ID: "offer-1", Title: "Spa 20%", TargetType: model.OfferTargetService, ServiceIDs: []string{"svc-1"},
		DiscountKind: model.DiscountKindPercentage, DiscountValue: mustDec("20"), Active: true,
		Limits: model.UsageLimits{Lifetime: &lifetime},
	}
	require.NoError(t, store.Offers().Save(context.Background(), nil, offer))

	redemptions := usecase.NewRedemptionUseCase(store.Plans(), store.Offers(), store.Redemptions(), store.Users(),
		store, store, codec, hasher, log)
	plans := usecase.NewPlanUseCase(store.Plans(), store.Users(), store, store, nil, codec, hasher, log)
	family := usecase.NewFamilyUseCase(store.Plans(), store.Family(), store, time.Now, log)
	_, err = plans.EnsureFreePlan(context.Background(), "sub-2")
	require.NoError(t, err)

	e := &env{t: t, store: store, auth: auth, plan: p, offer: offer, renew: &fakeRenewer{}, limitr: &fakeLimiter{allow: true}}
	srv := api.NewServer(api.Deps{
		Redemptions:   redemptions,
		Plans:         plans,
		Family:        family,
		Renewals:      e.renew,
		Auth:          auth,
		Limiter:       e.limitr,
		CodeRateLimit: 5,
		Ready:         func(ctx context.Context) error { return e.ready },
	}, log)
	e.h = srv.Router()
	return e
}

func (e *env) do(method, path, subject string, role api.Role, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if subject != "" {
		tok, err := e.auth.Mint(subject, role, time.Minute)
		require.NoError(e.t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func redeemBody(code string) map[string]any {
	return map[string]any{"code": code, "service_id": "svc-1", "original_amount": "200", "offer_id": "offer-1"}
}

func TestRedeemEndpoint(t *testing.T) {
	t.Run("should redeem and return the receipt", func(t *testing.T) {
		e := newEnv(t)

		rec := e.do(http.MethodPost, "/api/v1/redemptions", "prov-1", api.RoleProvider, redeemBody("12345678"))

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		body := decode(t, rec)
		assert.Equal(t, "40.00", body["discount_amount"])
		assert.Equal(t, "160.00", body["final_amount"])
		assert.Equal(t, "20.00", body["discount_percent"])
		assert.Equal(t, "Ana", body["subscriber_name"])
		assert.Equal(t, "Spa 20%", body["offer_label"])
		assert.Regexp(t, `^RDM-[0-9A-Z]{26}$`, body["verification_code"])
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("should require a token and the provider role", func(t *testing.T) {
		e := newEnv(t)

		assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodPost, "/api/v1/redemptions", "", "", redeemBody(planCode)).Code)
		assert.Equal(t, http.StatusForbidden, e.do(http.MethodPost, "/api/v1/redemptions", "sub-1", api.RoleSubscriber, redeemBody(planCode)).Code)
	})

	t.Run("should reject a token signed with another secret", func(t *testing.T) {
		e := newEnv(t)
		other, err := api.NewAuthenticator("another-secret-987654321")
		require.NoError(t, err)
		tok, err := other.Mint("prov-1", api.RoleProvider, time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/redemptions", bytes.NewBufferString(`{}`))
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		e.h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("should map an unknown code to 422", func(t *testing.T) {
		e := newEnv(t)

		rec := e.do(http.MethodPost, "/api/v1/redemptions", "prov-1", api.RoleProvider, redeemBody("8765-4321"))

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "code_not_found", decode(t, rec)["code"])
	})

	t.Run("should report the limit scope and max", func(t *testing.T) {
		e := newEnv(t)
		require.Equal(t, http.StatusCreated, e.do(http.MethodPost, "/api/v1/redemptions", "prov-1", api.RoleProvider, redeemBody(planCode)).Code)

		rec := e.do(http.MethodPost, "/api/v1/redemptions", "prov-1", api.RoleProvider, redeemBody(planCode))

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "usage_limit_exceeded", body["code"])
		assert.Equal(t, "lifetime", body["scope"])
		assert.EqualValues(t, 1, body["max"])
	})

	t.Run("should answer 503 with retryable on a store failure", func(t *testing.T) {
		e := newEnv(t)
		e.store.SetFault("redemptions.create", func(string) error { return errors.New("disk full") })

		rec := e.do(http.MethodPost, "/api/v1/redemptions", "prov-1", api.RoleProvider, redeemBody(planCode))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "persistence_failure", body["code"])
		assert.Equal(t, true, body["retryable"])
		assert.Equal(t, 0, e.store.Redemptions().Count())
	})

	t.Run("should list field errors for an invalid body", func(t *testing.T) {
		e := newEnv(t)

		rec := e.do(http.MethodPost, "/api/v1/redemptions", "prov-1", api.RoleProvider, map[string]any{"original_amount": "10"})

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		fields := decode(t, rec)["fields"].(map[string]any)
		assert.Contains(t, fields, "code")
		assert.Contains(t, fields, "service_id")
	})

	t.Run("should refuse unknown fields", func(t *testing.T) {
		e := newEnv(t)
		body := redeemBody(planCode)
		body["discount"] = "99"

		rec := e.do(http.MethodPost, "/api/v1/redemptions", "prov-1", api.RoleProvider, body)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("should rate limit code routes", func(t *testing.T) {
		e := newEnv(t)
		e.limitr.allow = false

		rec := e.do(http.MethodPost, "/api/v1/redemptions", "prov-1", api.RoleProvider, redeemBody(planCode))

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	})
}

func TestLookupAndHistoryEndpoints(t *testing.T) {
	e := newEnv(t)
	rec := e.do(http.MethodPost, "/api/v1/redemptions", "prov-1", api.RoleProvider, redeemBody(planCode))
	require.Equal(t, http.StatusCreated, rec.Code)
	vc := decode(t, rec)["verification_code"].(string)

	t.Run("should let the redeeming provider look the receipt up", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/api/v1/redemptions/"+vc, "prov-1", api.RoleProvider, nil)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "12**-**78", body["code_masked"])
		assert.Equal(t, "160.00", body["final_amount"])
	})

	t.Run("should hide the receipt from other providers", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/api/v1/redemptions/"+vc, "prov-2", api.RoleProvider, nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("should let admins look any receipt up", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/api/v1/redemptions/"+vc, "root", api.RoleAdmin, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("should return 404 for an unknown verification code", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/api/v1/redemptions/RDM-NOPE", "root", api.RoleAdmin, nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not_found", decode(t, rec)["code"])
	})

	t.Run("should list the subscriber's history without provider ids", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/api/v1/me/redemptions?limit=5", "sub-1", api.RoleSubscriber, nil)

		require.Equal(t, http.StatusOK, rec.Code)
		items := decode(t, rec)["items"].([]any)
		require.Len(t, items, 1)
		item := items[0].(map[string]any)
		assert.NotContains(t, item, "provider_id")
		assert.Equal(t, "12**-**78", item["code_masked"])
	})

	t.Run("should reject a bad limit", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/api/v1/me/redemptions?limit=abc", "sub-1", api.RoleSubscriber, nil)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestPreviewEndpoint(t *testing.T) {
	e := newEnv(t)

	t.Run("should preview a valid code", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/api/v1/codes/preview", "prov-1", api.RoleProvider, map[string]string{"code": planCode})

		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, true, body["valid"])
		assert.Equal(t, "Ana", body["owner_name"])
		assert.Equal(t, "all_categories", body["plan_tier"])
	})

	t.Run("should reject malformed codes", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/api/v1/codes/preview", "prov-1", api.RoleProvider, map[string]string{"code": "12-34"})

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "malformed_code", decode(t, rec)["code"])
	})
}

func TestPlanAndFamilyEndpoints(t *testing.T) {
	t.Run("should upgrade a new subscriber and return the code once", func(t *testing.T) {
		e := newEnv(t)

		rec := e.do(http.MethodPost, "/api/v1/me/plan/upgrade", "sub-2", api.RoleSubscriber, map[string]string{"tier": "single_category"})

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decode(t, rec)
		assert.Equal(t, "single_category", body["tier"])
		assert.Regexp(t, `^\d{4}-\d{4}$`, body["code"])
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

		rec = e.do(http.MethodGet, "/api/v1/me/plan", "sub-2", api.RoleSubscriber, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, decode(t, rec), "code")
	})

	t.Run("should reject an unknown tier", func(t *testing.T) {
		e := newEnv(t)

		rec := e.do(http.MethodPost, "/api/v1/me/plan/upgrade", "sub-2", api.RoleSubscriber, map[string]string{"tier": "free"})

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("should invite and accept a family member", func(t *testing.T) {
		e := newEnv(t)

		rec := e.do(http.MethodPost, "/api/v1/me/family/invitations", "sub-1", api.RoleSubscriber, map[string]string{"contact": "bo@example.com"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		token := decode(t, rec)["token"].(string)

		self := e.do(http.MethodPost, "/api/v1/family/invitations/"+token+"/accept", "sub-1", api.RoleSubscriber, nil)
		assert.Equal(t, "self_invitation", decode(t, self)["code"])

		rec = e.do(http.MethodPost, "/api/v1/family/invitations/"+token+"/accept", "sub-2", api.RoleSubscriber, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "accepted", decode(t, rec)["status"])

		rec = e.do(http.MethodGet, "/api/v1/me/family", "sub-1", api.RoleSubscriber, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode(t, rec)["items"].([]any), 1)
	})
}

func TestAdminRenewalsEndpoint(t *testing.T) {
	t.Run("should return the run report", func(t *testing.T) {
		e := newEnv(t)
		e.renew.report = &model.RenewalReport{Period: "2026-10", Renewed: 3, Failures: []model.PlanFailure{{PlanID: "p-1", Reason: "boom"}}}

		rec := e.do(http.MethodPost, "/api/v1/admin/renewals", "root", api.RoleAdmin, nil)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.EqualValues(t, 3, body["renewed"])
		assert.Len(t, body["failures"].([]any), 1)
	})

	t.Run("should answer 409 while another run holds the lock", func(t *testing.T) {
		e := newEnv(t)
		e.renew.err = sched.ErrRunSkipped

		rec := e.do(http.MethodPost, "/api/v1/admin/renewals", "root", api.RoleAdmin, nil)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("should be admin only", func(t *testing.T) {
		e := newEnv(t)

		rec := e.do(http.MethodPost, "/api/v1/admin/renewals", "prov-1", api.RoleProvider, nil)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestHealthEndpoint(t *testing.T) {
	e := newEnv(t)

	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/health", "", "", nil).Code)

	e.ready = errors.New("db down")
	assert.Equal(t, http.StatusServiceUnavailable, e.do(http.MethodGet, "/health", "", "", nil).Code)
}
