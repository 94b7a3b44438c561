package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager executes fn inside a store transaction and passes the
// store-specific handle as tx. If fn returns an error everything written
// through tx is rolled back.
//
// Repositories MUST accept a nil tx (non-transactional path). When tx is
// non-nil they run on it, which is how row locks (SELECT ... FOR UPDATE) and
// counter increments end up in one atomic unit.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}

// KeyLocker serialises work on an arbitrary key for the lifetime of tx.
// The Postgres implementation uses pg_advisory_xact_lock.
type KeyLocker interface {
	LockKey(ctx context.Context, tx Tx, key string) error
}
