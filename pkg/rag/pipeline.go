package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
)

// Pipeline wires an Embedder, a Store and a Generator into the ingestion and
// retrieval-augmented generation flows. Every run is a straight sequence of calls;
// the first failing stage aborts the run.
type Pipeline struct {
	embedder  Embedder
	generator Generator
	store     Store
	logger    *zap.Logger
	config    PipelineConfig
}

// NewPipeline creates a Pipeline. A non-positive TopK falls back to 5 and an empty
// Instruction to DefaultInstruction.
func NewPipeline(embedder Embedder, generator Generator, store Store, config PipelineConfig, loggers ...*zap.Logger) *Pipeline {
	if config.TopK <= 0 {
		config.TopK = DefaultPipelineConfig().TopK
	}
	if config.Instruction == "" {
		config.Instruction = DefaultInstruction
	}
	return &Pipeline{
		embedder:  embedder,
		generator: generator,
		store:     store,
		config:    config,
		logger:    pickLogger(loggers),
	}
}

// Ingest embeds every source and inserts all of them with a single InsertBatch call.
// When any embedding fails the batch is abandoned before the store is touched.
// It returns the number of documents inserted.
func (p *Pipeline) Ingest(ctx context.Context, sources []Source) (int, error) {
	logger := p.logger.With(zap.String("run_id", uuid.NewString()))
	if len(sources) == 0 {
		logger.Info("nothing to ingest")
		return 0, nil
	}

	docs := make([]Document, 0, len(sources))
	for i, src := range sources {
		if strings.TrimSpace(src.Content) == "" {
			return 0, fmt.Errorf("document %d (%q): %w: content", i, src.Title, ErrEmptyInput)
		}
		embedding, err := p.embedder.Embed(ctx, src.Content)
		if err != nil {
			logger.Error("embedding failed, abandoning batch", zap.Int("index", i), zap.String("title", src.Title), zap.Error(err))
			return 0, fmt.Errorf("embed document %d (%q): %w", i, src.Title, err)
		}
		docs = append(docs, Document{
			Title:     src.Title,
			Content:   src.Content,
			Embedding: pgvector.NewVector(embedding),
		})
	}

	if err := p.store.InsertBatch(ctx, docs); err != nil {
		return 0, fmt.Errorf("insert batch: %w", err)
	}

	logger.Info("ingested documents", zap.Int("documents", len(docs)))
	return len(docs), nil
}

// Retrieve embeds query and returns the k most similar documents.
func (p *Pipeline) Retrieve(ctx context.Context, query string, k int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query", ErrEmptyInput)
	}

	embedding, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := p.store.Search(ctx, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return results, nil
}

// Ask retrieves the top-K documents for query, builds the context block and prompt,
// and returns the generated answer.
func (p *Pipeline) Ask(ctx context.Context, query string) (*Answer, error) {
	results, err := p.Retrieve(ctx, query, p.config.TopK)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("retrieved context", zap.String("query", query), zap.Int("results", len(results)))

	prompt := BuildPrompt(p.config.Instruction, query, BuildContext(results))

	response, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	return &Answer{
		Query:    query,
		Prompt:   prompt,
		Response: response,
		Results:  results,
	}, nil
}
