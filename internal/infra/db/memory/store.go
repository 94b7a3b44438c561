// Package memory is an in-process implementation of the repository ports.
// Transactions are serialised under one mutex and rolled back by restoring a
// snapshot, which gives the same all-or-nothing behaviour as the Postgres
// store. It backs unit tests and dev runs without a database.
package memory

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v4"

	"discount-pin-service/internal/domain"
	"discount-pin-service/internal/domain/model"
	"discount-pin-service/internal/domain/ports/repository"
)

var (
	_ repository.TransactionManager = (*Store)(nil)
	_ repository.KeyLocker          = (*Store)(nil)
)

// Fault lets tests fail a named store operation. id is the primary key the
// operation touches.
type Fault func(id string) error

type txHandle struct {
	store *Store
}

type state struct {
	plans   map[string]*model.Plan
	users   map[string]*model.User
	offers  map[string]*model.Offer
	usages  []*model.OfferUsage
	records map[string]*model.RedemptionRecord // by verification code
	order   []string
	family  map[string]*model.FamilyMembership // by token
}

func (s state) clone() state {
	c := state{
		plans:   make(map[string]*model.Plan, len(s.plans)),
		users:   make(map[string]*model.User, len(s.users)),
		offers:  make(map[string]*model.Offer, len(s.offers)),
		usages:  append([]*model.OfferUsage(nil), s.usages...),
		records: make(map[string]*model.RedemptionRecord, len(s.records)),
		order:   append([]string(nil), s.order...),
		family:  make(map[string]*model.FamilyMembership, len(s.family)),
	}
	for k, v := range s.plans {
		c.plans[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.offers {
		c.offers[k] = v
	}
	for k, v := range s.records {
		c.records[k] = v
	}
	for k, v := range s.family {
		c.family[k] = v
	}
	return c
}

// Store holds every collection. Stored values are never mutated in place:
// writers replace the pointer, so a shallow snapshot is a full snapshot.
type Store struct {
	mu     sync.Mutex
	st     state
	faults map[string]Fault
	fmu    sync.RWMutex
}

func NewStore() *Store {
	return &Store{
		st: state{
			plans:   map[string]*model.Plan{},
			users:   map[string]*model.User{},
			offers:  map[string]*model.Offer{},
			records: map[string]*model.RedemptionRecord{},
			family:  map[string]*model.FamilyMembership{},
		},
		faults: map[string]Fault{},
	}
}

// SetFault installs f for op (e.g. "redemptions.create"); nil removes it.
func (s *Store) SetFault(op string, f Fault) {
	s.fmu.Lock()
	defer s.fmu.Unlock()
	if f == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = f
}

func (s *Store) fault(op, id string) error {
	s.fmu.RLock()
	f := s.faults[op]
	s.fmu.RUnlock()
	if f == nil {
		return nil
	}
	return f(id)
}

// WithTx runs fn with exclusive access and restores the snapshot on error.
func (s *Store) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(ctx, &txHandle{store: s}); err != nil {
		s.st = snapshot
		return err
	}
	if err := s.fault("tx.commit", ""); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// LockKey is a no-op: transactions are already serialised.
func (s *Store) LockKey(ctx context.Context, tx repository.Tx, key string) error {
	if _, ok := tx.(*txHandle); !ok {
		return domain.ErrInvalidExecContext
	}
	return s.fault("lock", key)
}

// run executes fn under the store lock unless tx is already this store's transaction.
func (s *Store) run(tx repository.Tx, fn func() error) error {
	switch h := tx.(type) {
	case *txHandle:
		if h.store != s {
			return domain.ErrInvalidExecContext
		}
		return fn()
	case nil:
		s.mu.Lock()
		defer s.mu.Unlock()
		return fn()
	default:
		return domain.ErrInvalidExecContext
	}
}

func (s *Store) Plans() *PlanRepo             { return &PlanRepo{s: s} }
func (s *Store) Users() *UserRepo             { return &UserRepo{s: s} }
func (s *Store) Offers() *OfferRepo           { return &OfferRepo{s: s} }
func (s *Store) Redemptions() *RedemptionRepo { return &RedemptionRepo{s: s} }
func (s *Store) Family() *FamilyRepo          { return &FamilyRepo{s: s} }
