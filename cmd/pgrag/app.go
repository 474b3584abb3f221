package pgrag

import (
	"context"
	"fmt"

	pg "github.com/edgeflare/pgrag/pkg/pgx"
	"github.com/edgeflare/pgrag/pkg/rag"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// app holds the components shared by the subcommands.
type app struct {
	pool     *pgxpool.Pool
	store    *rag.PGVectorStore
	pipeline *rag.Pipeline
}

func newApp(ctx context.Context) (*app, error) {
	pool, err := pg.NewPool(ctx, pg.Pool{ConnString: cfg.Postgres.DSN()})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", rag.ErrServiceUnavailable, err)
	}
	logger.Debug("connected to database", zap.String("host", pool.Config().ConnConfig.Host))

	store := rag.NewPGVectorStore(pool, cfg.Store, logger)
	pipeline := rag.NewPipeline(
		rag.NewOllamaEmbedder(cfg.Embedding, logger.Named("embedding")),
		rag.NewOllamaGenerator(cfg.Generation, logger.Named("generation")),
		store,
		cfg.Pipeline,
		logger,
	)

	return &app{pool: pool, store: store, pipeline: pipeline}, nil
}

func (a *app) Close() {
	a.pool.Close()
}
