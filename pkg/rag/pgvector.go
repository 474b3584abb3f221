package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pg "github.com/edgeflare/pgrag/pkg/pgx"
	"github.com/edgeflare/pgrag/pkg/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Store persists documents and ranks them by similarity to a query embedding.
type Store interface {
	InsertBatch(ctx context.Context, docs []Document) error
	Search(ctx context.Context, query []float32, k int) ([]Result, error)
}

// maxRowsPerStatement keeps a multi-row INSERT (3 parameters per row) under
// PostgreSQL's 65535 bind parameter limit.
const maxRowsPerStatement = 65535 / 3

// PGVectorStore stores documents in a PostgreSQL table with a vector column
//
//	CREATE TABLE documents (id SERIAL PRIMARY KEY, title TEXT, content TEXT, embedding VECTOR(384))
//
// and ranks them with the cosine distance operator <=>.
type PGVectorStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	config StoreConfig
	table  string
}

// NewPGVectorStore creates a store on pool. It does not touch the database; call EnsureSchema for that.
func NewPGVectorStore(pool *pgxpool.Pool, config StoreConfig, loggers ...*zap.Logger) *PGVectorStore {
	return &PGVectorStore{
		pool:   pool,
		config: config,
		logger: pickLogger(loggers),
		table:  pg.TableIdentifier(config.Table),
	}
}

// EnsureSchema creates the vector extension and the documents table if missing, and verifies
// that an existing table declares the configured embedding dimension. It runs in one
// transaction, so a mismatch leaves no new objects behind.
func (s *PGVectorStore) EnsureSchema(ctx context.Context) error {
	err := pg.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		return ensureSchema(ctx, tx, s.config, s.logger)
	})
	if err != nil && !errors.Is(err, ErrStore) && !errors.Is(err, ErrDimensionMismatch) {
		return fmt.Errorf("%w: ensure schema: %w", ErrServiceUnavailable, err)
	}
	return err
}

func ensureSchema(ctx context.Context, conn pg.Conn, config StoreConfig, logger *zap.Logger) error {
	table := pg.TableIdentifier(config.Table)
	logger.Info("ensuring table configuration", zap.String("table", config.Table), zap.Int("dimensions", config.Dimensions))

	if _, err := conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("%w: create vector extension: %w", ErrStore, err)
	}

	schema, _ := pg.SplitSchemaTableName(config.Table)
	if schema != "public" {
		if _, err := conn.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", pg.Identifier(schema))); err != nil {
			return fmt.Errorf("%w: create schema: %w", ErrStore, err)
		}
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id SERIAL PRIMARY KEY,
			title TEXT,
			content TEXT,
			embedding VECTOR(%d)
		)`, table, config.Dimensions)
	if _, err := conn.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("%w: create table: %w", ErrStore, err)
	}

	// for the vector type atttypmod holds the declared dimension
	var declared int
	err := conn.QueryRow(ctx,
		"SELECT atttypmod FROM pg_attribute WHERE attrelid = $1::text::regclass AND attname = 'embedding' AND NOT attisdropped",
		table,
	).Scan(&declared)
	if err != nil {
		return fmt.Errorf("%w: read embedding column: %w", ErrStore, err)
	}
	if declared != config.Dimensions {
		return fmt.Errorf("%w: table %s declares vector(%d), configured %d", ErrDimensionMismatch, config.Table, declared, config.Dimensions)
	}

	if config.CreateIndex {
		_, name := pg.SplitSchemaTableName(config.Table)
		createIndex := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)",
			pg.Identifier(name+"_embedding_idx"), table)
		if _, err := conn.Exec(ctx, createIndex); err != nil {
			return fmt.Errorf("%w: create index: %w", ErrStore, err)
		}
	}

	logger.Info("table configuration ensured", zap.String("table", config.Table))
	return nil
}

// InsertBatch inserts docs in a single transaction on one pooled connection. Either every
// document is committed or, on any failure, the transaction is rolled back and nothing is.
// The connection is released on every return path.
func (s *PGVectorStore) InsertBatch(ctx context.Context, docs []Document) (err error) {
	if len(docs) == 0 {
		return nil
	}
	for i, doc := range docs {
		if err := CheckDimensions(doc.Embedding.Slice(), s.config.Dimensions); err != nil {
			return fmt.Errorf("document %d (%q): %w", i, doc.Title, err)
		}
	}

	began := time.Now()
	defer func() {
		metrics.StoreOperationDuration.WithLabelValues("insert", metrics.Outcome(err)).Observe(time.Since(began).Seconds())
	}()

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("%w: acquire connection: %w", ErrServiceUnavailable, err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", ErrStore, err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Error("failed to roll back insert batch", zap.Error(rbErr))
		}
		s.logger.Error("insert batch rolled back", zap.Int("documents", len(docs)), zap.Error(err))
	}()

	for _, chunk := range chunkDocuments(docs, s.config.BatchSize) {
		query, args := s.insertStatement(chunk)
		if _, err = tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("%w: insert documents: %w", ErrStore, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrStore, err)
	}

	metrics.DocumentsIngested.Add(float64(len(docs)))
	s.logger.Info("inserted documents", zap.String("table", s.config.Table), zap.Int("documents", len(docs)))
	return nil
}

// insertStatement builds a multi-row INSERT; embeddings are bound as vector text literals.
func (s *PGVectorStore) insertStatement(docs []Document) (string, []any) {
	values := make([]string, 0, len(docs))
	args := make([]any, 0, len(docs)*3)
	for i, doc := range docs {
		n := i * 3
		values = append(values, fmt.Sprintf("($%d, $%d, $%d::vector)", n+1, n+2, n+3))
		args = append(args, doc.Title, doc.Content, VectorLiteral(doc.Embedding.Slice()))
	}
	query := fmt.Sprintf("INSERT INTO %s (title, content, embedding) VALUES %s", s.table, strings.Join(values, ", "))
	return query, args
}

func chunkDocuments(docs []Document, size int) [][]Document {
	if size <= 0 || size > maxRowsPerStatement {
		size = maxRowsPerStatement
	}
	chunks := make([][]Document, 0, (len(docs)+size-1)/size)
	for start := 0; start < len(docs); start += size {
		end := min(start+size, len(docs))
		chunks = append(chunks, docs[start:end])
	}
	return chunks
}

// Search returns at most k documents ordered by descending cosine similarity to query.
func (s *PGVectorStore) Search(ctx context.Context, query []float32, k int) (results []Result, err error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrEmptyInput, k)
	}
	if err := CheckDimensions(query, s.config.Dimensions); err != nil {
		return nil, err
	}

	began := time.Now()
	defer func() {
		metrics.StoreOperationDuration.WithLabelValues("search", metrics.Outcome(err)).Observe(time.Since(began).Seconds())
	}()

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: acquire connection: %w", ErrServiceUnavailable, err)
	}
	defer conn.Release()

	queryStr := fmt.Sprintf(`
		SELECT title, content, 1 - (embedding <=> $1::vector) AS similarity
		FROM %s
		ORDER BY embedding <=> $1::vector
		LIMIT $2`, s.table)

	rows, err := conn.Query(ctx, queryStr, VectorLiteral(query), k)
	if err != nil {
		return nil, fmt.Errorf("%w: execute search: %w", ErrStore, err)
	}
	defer rows.Close()

	results = make([]Result, 0, k)
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Title, &r.Content, &r.Similarity); err != nil {
			return nil, fmt.Errorf("%w: scan row: %w", ErrStore, err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read rows: %w", ErrStore, err)
	}

	return results, nil
}

// Count returns the number of stored documents.
func (s *PGVectorStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s", s.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count documents: %w", ErrStore, err)
	}
	return n, nil
}

// Truncate removes all documents and resets the id sequence.
func (s *PGVectorStore) Truncate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, fmt.Sprintf("TRUNCATE %s RESTART IDENTITY", s.table)); err != nil {
		return fmt.Errorf("%w: truncate: %w", ErrStore, err)
	}
	s.logger.Info("truncated documents", zap.String("table", s.config.Table))
	return nil
}
