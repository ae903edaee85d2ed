// Package postgres adapts the domain storage ports to Postgres via
// Squirrel-built SQL over jackc/pgx's stdlib driver, following the shape of
// components/ledger/internal/adapters/database/postgres/account.postgresql.go.
package postgres

import (
	"context"

	"github.com/poolcard/ledger-core/pkg/dbtx"
	"github.com/poolcard/ledger-core/pkg/mpostgres"
)

// TxRunner implements postingengine.TxRunner on top of pkg/dbtx, giving the
// posting engine a single caller-managed transaction per Post call.
type TxRunner struct {
	Connection *mpostgres.Connection
}

// RunInTransaction begins a transaction on the primary connection and runs
// fn with it attached to ctx via dbtx.ContextWithTx.
func (r *TxRunner) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	db, err := r.Connection.Primary(ctx)
	if err != nil {
		return err
	}

	return dbtx.RunInTransaction(ctx, db, fn)
}
