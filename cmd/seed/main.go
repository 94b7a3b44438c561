package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"discount-pin-service/internal/config"
	"discount-pin-service/internal/domain"
	"discount-pin-service/internal/domain/model"
	"discount-pin-service/internal/domain/ports/repository"
	"discount-pin-service/internal/infra/adapters/telegram"
	"discount-pin-service/internal/infra/api"
	pg "discount-pin-service/internal/infra/db/postgres"
	"discount-pin-service/internal/infra/logging"
	"discount-pin-service/internal/pincode"
	"discount-pin-service/internal/usecase"
)

// seed loads a provider, a subscriber with a paid plan and one offer, then
// prints the plan code and bearer tokens for trying the API by hand.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	users := pg.NewUserRepo(pool)
	offers := pg.NewOfferRepo(pool)
	plans := pg.NewPlanRepo(pool)
	tm := pg.NewTxManager(pool)

	hasher, err := pincode.NewHasher(cfg.Security.CodeHashSecret)
	if err != nil {
		log.Fatalf("hasher: %v", err)
	}
	codec := pincode.NewCodec(nil, cfg.Location())
	planUC := usecase.NewPlanUseCase(plans, users, tm, tm, telegram.NewNoopNotifier(logger, true), codec, hasher, logger)

	seedUsers := []*model.User{
		{ID: "demo-provider", DisplayName: "Demo Shop", Email: "shop@example.com"},
		{ID: "demo-subscriber", DisplayName: "Demo Subscriber", Email: "sub@example.com"},
		{ID: "demo-admin", DisplayName: "Demo Admin", Email: "admin@example.com"},
	}
	for _, u := range seedUsers {
		if _, err := users.FindByID(ctx, repository.NoTX, u.ID); err == nil {
			continue
		} else if !errors.Is(err, domain.ErrNotFound) {
			log.Fatalf("find user %s: %v", u.ID, err)
		}
		u.CreatedAt = time.Now()
		if err := users.Save(ctx, repository.NoTX, u); err != nil {
			log.Fatalf("save user %s: %v", u.ID, err)
		}
		fmt.Printf("user %s created\n", u.ID)
	}

	if _, err := offers.FindByID(ctx, repository.NoTX, "demo-offer"); errors.Is(err, domain.ErrNotFound) {
		lifetime := 3
		o := &model.Offer{
			ID:            "demo-offer",
			Title:         "Spring 15%",
			TargetType:    model.OfferTargetService,
			ServiceIDs:    []string{"svc-demo"},
			DiscountKind:  model.DiscountKindPercentage,
			DiscountValue: decimal.NewFromInt(15),
			Active:        true,
			Limits:        model.UsageLimits{Lifetime: &lifetime},
		}
		if err := offers.Save(ctx, repository.NoTX, o); err != nil {
			log.Fatalf("save offer: %v", err)
		}
		fmt.Println("offer demo-offer created")
	} else if err != nil {
		log.Fatalf("find offer: %v", err)
	}

	if _, err := planUC.EnsureFreePlan(ctx, "demo-subscriber"); err != nil {
		log.Fatalf("free plan: %v", err)
	}
	plan, code, err := planUC.Upgrade(ctx, "demo-subscriber", model.PlanTierAllCategories)
	if err != nil {
		log.Fatalf("upgrade: %v", err)
	}
	if code != "" {
		fmt.Printf("plan %s code: %s (valid until %s)\n", plan.ID, code, codec.ExpiryInstant().Format(time.RFC3339))
	} else {
		fmt.Printf("plan %s already holds a valid code; not reissued\n", plan.ID)
	}

	if cfg.Security.JWTSecret == "" {
		return
	}
	auth, err := api.NewAuthenticator(cfg.Security.JWTSecret)
	if err != nil {
		log.Fatalf("authenticator: %v", err)
	}
	for _, t := range []struct {
		sub  string
		role api.Role
	}{
		{"demo-provider", api.RoleProvider},
		{"demo-subscriber", api.RoleSubscriber},
		{"demo-admin", api.RoleAdmin},
	} {
		tok, err := auth.Mint(t.sub, t.role, 24*time.Hour)
		if err != nil {
			log.Fatalf("mint token: %v", err)
		}
		fmt.Printf("%-10s %s\n", t.role, tok)
	}
}
