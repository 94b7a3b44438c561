//go:build !integration

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"

	"discount-pin-service/internal/domain"
	"discount-pin-service/internal/domain/model"
	"discount-pin-service/internal/domain/ports/repository"
)

func TestRedemptionRepoCacheDecorator(t *testing.T) {
	ctx := context.Background()
	rec := &model.RedemptionRecord{
		ID:               "rec-1",
		VerificationCode: "RDM-01HZX",
		OriginalAmount:   decimal.RequireFromString("200"),
		FinalAmount:      decimal.RequireFromString("160"),
		Status:           model.RedemptionStatusCompleted,
	}

	t.Run("should fetch from the store and warm the cache on a miss", func(t *testing.T) {
		// Arrange
		var setKey string
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) { return "", redis.Nil },
			SetFunc: func(ctx context.Context, key string, value interface{}, exp time.Duration) error {
				setKey = key
				return nil
			},
		}
		innerCalled := false
		inner := &mockInnerRedemptionRepo{
			FindByVerificationCodeFunc: func(ctx context.Context, tx repository.Tx, code string) (*model.RedemptionRecord, error) {
				innerCalled = true
				return rec, nil
			},
		}
		d := NewRedemptionRepoCacheDecorator(inner, mockRedis, time.Minute, newTestLogger())

		// Act
		got, err := d.FindByVerificationCode(ctx, nil, rec.VerificationCode)

		// Assert
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !innerCalled {
			t.Error("inner repository should be called on a miss")
		}
		if setKey != "redemption:RDM-01HZX" {
			t.Errorf("unexpected cache key %q", setKey)
		}
		if got.ID != rec.ID {
			t.Errorf("expected %s, got %s", rec.ID, got.ID)
		}
	})

	t.Run("should serve a hit without touching the store", func(t *testing.T) {
		// Arrange
		b, _ := json.Marshal(rec)
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) { return string(b), nil },
		}
		inner := &mockInnerRedemptionRepo{
			FindByVerificationCodeFunc: func(ctx context.Context, tx repository.Tx, code string) (*model.RedemptionRecord, error) {
				t.Fatal("inner repository must not be called on a hit")
				return nil, nil
			},
		}
		d := NewRedemptionRepoCacheDecorator(inner, mockRedis, time.Minute, newTestLogger())

		// Act
		got, err := d.FindByVerificationCode(ctx, nil, rec.VerificationCode)

		// Assert
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !got.FinalAmount.Equal(rec.FinalAmount) {
			t.Errorf("expected final amount %s, got %s", rec.FinalAmount, got.FinalAmount)
		}
	})

	t.Run("should fall through to the store when redis fails", func(t *testing.T) {
		// Arrange
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) { return "", errors.New("conn refused") },
			SetFunc: func(ctx context.Context, key string, value interface{}, exp time.Duration) error {
				return errors.New("conn refused")
			},
		}
		inner := &mockInnerRedemptionRepo{
			FindByVerificationCodeFunc: func(ctx context.Context, tx repository.Tx, code string) (*model.RedemptionRecord, error) {
				return rec, nil
			},
		}
		d := NewRedemptionRepoCacheDecorator(inner, mockRedis, time.Minute, newTestLogger())

		// Act
		got, err := d.FindByVerificationCode(ctx, nil, rec.VerificationCode)

		// Assert
		if err != nil || got == nil {
			t.Fatalf("expected the store result, got %v, %v", got, err)
		}
	})

	t.Run("should not cache a not-found result", func(t *testing.T) {
		// Arrange
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) { return "", redis.Nil },
			SetFunc: func(ctx context.Context, key string, value interface{}, exp time.Duration) error {
				t.Fatal("a miss in the store must not be cached")
				return nil
			},
		}
		inner := &mockInnerRedemptionRepo{
			FindByVerificationCodeFunc: func(ctx context.Context, tx repository.Tx, code string) (*model.RedemptionRecord, error) {
				return nil, domain.ErrNotFound
			},
		}
		d := NewRedemptionRepoCacheDecorator(inner, mockRedis, time.Minute, newTestLogger())

		// Act
		_, err := d.FindByVerificationCode(ctx, nil, "RDM-NOPE")

		// Assert
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestUserRepoCacheDecorator(t *testing.T) {
	ctx := context.Background()

	t.Run("should bypass the cache inside a transaction", func(t *testing.T) {
		// Arrange
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) {
				t.Fatal("cache must not be read inside a transaction")
				return "", nil
			},
		}
		inner := &mockInnerUserRepo{
			FindByIDFunc: func(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
				return &model.User{ID: id, DisplayName: "Ana"}, nil
			},
		}
		d := NewUserRepoCacheDecorator(inner, mockRedis, time.Minute, newTestLogger())

		// Act
		u, err := d.FindByID(ctx, struct{}{}, "u-1")

		// Assert
		if err != nil || u.Name() != "Ana" {
			t.Fatalf("unexpected result %v, %v", u, err)
		}
	})

	t.Run("should store the user under its id key on a miss", func(t *testing.T) {
		// Arrange
		var setKey string
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) { return "", redis.Nil },
			SetFunc: func(ctx context.Context, key string, value interface{}, exp time.Duration) error {
				setKey = key
				return nil
			},
		}
		inner := &mockInnerUserRepo{
			FindByIDFunc: func(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
				return &model.User{ID: id}, nil
			},
		}
		d := NewUserRepoCacheDecorator(inner, mockRedis, time.Minute, newTestLogger())

		// Act
		_, err := d.FindByID(ctx, nil, "u-2")

		// Assert
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if setKey != "user:id:u-2" {
			t.Errorf("unexpected cache key %q", setKey)
		}
	})
}
