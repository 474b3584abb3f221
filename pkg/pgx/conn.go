package pgx

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Conn is the query surface shared by *pgx.Conn, *pgxpool.Pool, *pgxpool.Conn and pgx.Tx,
// so schema and query helpers run unchanged inside or outside a transaction.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	// QueryRow defers errors until Scan is called on the returned row.
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	// Begin starts a transaction, or a savepoint when called on a pgx.Tx.
	Begin(ctx context.Context) (pgx.Tx, error)
}

// InTx runs fn inside a transaction on conn, committing when fn returns nil
// and rolling back otherwise.
func InTx(ctx context.Context, conn Conn, fn func(tx pgx.Tx) error) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(context.WithoutCancel(ctx))
		return err
	}
	return tx.Commit(ctx)
}
