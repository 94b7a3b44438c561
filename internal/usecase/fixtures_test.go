//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"discount-pin-service/internal/domain/model"
	"discount-pin-service/internal/infra/db/memory"
	"discount-pin-service/internal/pincode"
)

const testSecret = "test-secret-0123456789"

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// testClock is a settable clock shared by the codec and the test.
type testClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration // added after every read when set
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

func (c *testClock) Tick(step time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.step = step
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// mockCodeNotifier records delivered codes; NotifyFunc overrides the behaviour.
type mockCodeNotifier struct {
	mu         sync.Mutex
	Delivered  map[string]string // owner id -> code
	NotifyFunc func(ctx context.Context, owner *model.User, code string, validUntil time.Time) error
}

func newMockCodeNotifier() *mockCodeNotifier {
	return &mockCodeNotifier{Delivered: map[string]string{}}
}

func (m *mockCodeNotifier) NotifyCodeIssued(ctx context.Context, owner *model.User, code string, validUntil time.Time) error {
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, owner, code, validUntil)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Delivered[owner.ID] = code
	return nil
}

type fixture struct {
	store  *memory.Store
	clock  *testClock
	codec  *pincode.Codec
	hasher *pincode.Hasher
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	h, err := pincode.NewHasher(testSecret)
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	clock := &testClock{t: now}
	return &fixture{
		store:  memory.NewStore(),
		clock:  clock,
		codec:  pincode.NewCodec(clock.Now, time.UTC),
		hasher: h,
	}
}

// seedPlan stores an active plan of tier owned by ownerID holding code issued at issuedAt.
func (f *fixture) seedPlan(t *testing.T, ownerID string, tier model.PlanTier, code string, issuedAt time.Time) *model.Plan {
	t.Helper()
	f.store.Users().Put(&model.User{ID: ownerID, DisplayName: "Sub " + ownerID, Email: ownerID + "@example.com"})

	p, err := model.NewFreePlan(ownerID)
	if err != nil {
		t.Fatalf("new plan: %v", err)
	}
	if err := p.ApplyTier(tier); err != nil {
		t.Fatalf("apply tier: %v", err)
	}
	if code != "" {
		h, err := f.hasher.Hash(code)
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
		at := issuedAt
		p.CodeHash = &h
		p.CodeIssuedAt = &at
	}
	if err := f.store.Plans().Save(context.Background(), nil, p); err != nil {
		t.Fatalf("save plan: %v", err)
	}
	return p
}

func (f *fixture) seedOffer(t *testing.T, o *model.Offer) *model.Offer {
	t.Helper()
	if err := f.store.Offers().Save(context.Background(), nil, o); err != nil {
		t.Fatalf("save offer: %v", err)
	}
	return o
}

func (f *fixture) plan(t *testing.T, id string) *model.Plan {
	t.Helper()
	p, err := f.store.Plans().FindByID(context.Background(), nil, id)
	if err != nil {
		t.Fatalf("find plan: %v", err)
	}
	return p
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func intPtr(i int) *int { return &i }
