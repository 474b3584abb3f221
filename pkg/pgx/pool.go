package pgx

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool describes how to build a *pgxpool.Pool.
type Pool struct {
	Config     *pgxpool.Config // Takes precedence over ConnString
	ConnString string          // Used if Config is nil
	// AfterConnect, when set, runs on every new physical connection
	AfterConnect func(context.Context, *pgx.Conn) error
	MaxConns     int32
}

var ErrNoConnConfig = errors.New("either Config or ConnString must be provided")

// NewPool creates a connection pool and verifies it with a ping. The pool is
// closed again when the ping fails.
func NewPool(ctx context.Context, cfg Pool) (*pgxpool.Pool, error) {
	var poolConfig *pgxpool.Config
	var err error

	switch {
	case cfg.Config != nil:
		poolConfig = cfg.Config
	case cfg.ConnString != "":
		poolConfig, err = pgxpool.ParseConfig(cfg.ConnString)
		if err != nil {
			return nil, fmt.Errorf("pgx: parse config: %w", err)
		}
	default:
		return nil, fmt.Errorf("pgx: %w", ErrNoConnConfig)
	}

	if cfg.AfterConnect != nil {
		poolConfig.AfterConnect = cfg.AfterConnect
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("pgx: creating pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgx: ping connection: %w", err)
	}

	return pool, nil
}
