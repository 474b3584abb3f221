package pgx

import (
	"context"
	"testing"

	"github.com/edgeflare/pgrag/internal/testutil/pgtest"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPoolRequiresConfig(t *testing.T) {
	_, err := NewPool(context.Background(), Pool{})
	assert.ErrorIs(t, err, ErrNoConnConfig)
}

func TestNewPoolInvalidConnString(t *testing.T) {
	_, err := NewPool(context.Background(), Pool{ConnString: "postgres://%zz"})
	assert.Error(t, err)
}

func TestNewPool(t *testing.T) {
	connString := pgtest.ConnString(t)
	ctx := context.Background()

	t.Run("ConnString", func(t *testing.T) {
		var connected bool
		pool, err := NewPool(ctx, Pool{
			ConnString: connString,
			MaxConns:   2,
			AfterConnect: func(ctx context.Context, c *pgx.Conn) error {
				connected = true
				return nil
			},
		})
		require.NoError(t, err)
		t.Cleanup(pool.Close)

		assert.True(t, connected)
		assert.Equal(t, int32(2), pool.Config().MaxConns)
		require.NoError(t, pool.Ping(ctx))
	})

	t.Run("Config", func(t *testing.T) {
		poolConfig, err := pgxpool.ParseConfig(connString)
		require.NoError(t, err)

		pool, err := NewPool(ctx, Pool{Config: poolConfig})
		require.NoError(t, err)
		t.Cleanup(pool.Close)

		var one int
		require.NoError(t, pool.QueryRow(ctx, "SELECT 1").Scan(&one))
		assert.Equal(t, 1, one)
	})
}
