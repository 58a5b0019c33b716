// Package postgres implements the session and chat store interfaces on a
// pgx connection pool.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/movedesk/chatbot/integration/database/pg"
)

// querier is the subset of pgx shared by pools and transactions.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// db returns the transaction bound to ctx when one is present, the pool
// otherwise. Lets callers compose store operations into one transaction.
func db(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx, ok := pg.TxFromContext(ctx); ok {
		return tx
	}
	return pool
}
