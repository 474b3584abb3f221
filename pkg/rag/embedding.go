package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingRequest is the request body for the /api/embeddings endpoint
type EmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// OllamaEmbedder calls an Ollama-compatible /api/embeddings endpoint.
// https://github.com/ollama/ollama/blob/main/docs/api.md#generate-embeddings
type OllamaEmbedder struct {
	logger *zap.Logger
	config ServiceConfig
}

// NewOllamaEmbedder creates an embedder for the configured endpoint and model.
func NewOllamaEmbedder(config ServiceConfig, loggers ...*zap.Logger) *OllamaEmbedder {
	return &OllamaEmbedder{
		config: config,
		logger: pickLogger(loggers),
	}
}

// Embed returns the embedding vector for text, unmodified.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text to embed", ErrEmptyInput)
	}

	body, err := post(ctx, serviceEmbedding, e.config, EmbeddingRequest{
		Model:  e.config.Model,
		Prompt: text,
	}, e.logger)
	if err != nil {
		return nil, err
	}

	embedding, err := ParseEmbedding(body)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("embedding", zap.String("model", e.config.Model), zap.Int("dimensions", len(embedding)))
	return embedding, nil
}

// ParseEmbedding extracts the numeric "embedding" array from an embeddings response body.
func ParseEmbedding(body []byte) ([]float32, error) {
	var raw struct {
		Embedding json.RawMessage `json:"embedding"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode embedding response: %w", ErrMalformedResponse, err)
	}
	if len(raw.Embedding) == 0 || string(raw.Embedding) == "null" {
		return nil, fmt.Errorf("%w: embedding field missing", ErrMalformedResponse)
	}

	var embedding []float32
	if err := json.Unmarshal(raw.Embedding, &embedding); err != nil {
		return nil, fmt.Errorf("%w: embedding is not a numeric array: %w", ErrMalformedResponse, err)
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("%w: embedding is empty", ErrMalformedResponse)
	}

	return embedding, nil
}
