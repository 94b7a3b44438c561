//go:build !integration

package postgres

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"discount-pin-service/internal/domain/model"
	"discount-pin-service/internal/domain/ports/repository"
	red "discount-pin-service/internal/infra/redis"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// mockInnerRedemptionRepo mocks the store the redemption decorator wraps.
type mockInnerRedemptionRepo struct {
	CreateFunc                 func(ctx context.Context, tx repository.Tx, rec *model.RedemptionRecord) error
	FindByVerificationCodeFunc func(ctx context.Context, tx repository.Tx, code string) (*model.RedemptionRecord, error)
	ListBySubscriberFunc       func(ctx context.Context, tx repository.Tx, subscriberID string, limit int) ([]*model.RedemptionRecord, error)
}

func (m *mockInnerRedemptionRepo) Create(ctx context.Context, tx repository.Tx, rec *model.RedemptionRecord) error {
	return m.CreateFunc(ctx, tx, rec)
}
func (m *mockInnerRedemptionRepo) FindByVerificationCode(ctx context.Context, tx repository.Tx, code string) (*model.RedemptionRecord, error) {
	return m.FindByVerificationCodeFunc(ctx, tx, code)
}
func (m *mockInnerRedemptionRepo) ListBySubscriber(ctx context.Context, tx repository.Tx, subscriberID string, limit int) ([]*model.RedemptionRecord, error) {
	return m.ListBySubscriberFunc(ctx, tx, subscriberID, limit)
}

// mockInnerUserRepo mocks the store the user decorator wraps.
type mockInnerUserRepo struct {
	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.User, error)
}

func (m *mockInnerUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	return m.FindByIDFunc(ctx, tx, id)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc    func(ctx context.Context, keys ...string) error
	PingFunc   func(ctx context.Context) error
	IncrFunc   func(ctx context.Context, key string) (int64, error)
	ExpireFunc func(ctx context.Context, key string, expiration time.Duration) error
	CloseFunc  func() error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return m.PingFunc(ctx) }
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return m.IncrFunc(ctx, key)
}
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return m.ExpireFunc(ctx, key, expiration)
}
func (m *mockRedisClient) Close() error { return m.CloseFunc() }
