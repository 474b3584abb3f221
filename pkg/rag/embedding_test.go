package rag

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func embeddingServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		var req EmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "all-minilm", req.Model)
		assert.NotEmpty(t, req.Prompt)
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestEmbedder(url string) *OllamaEmbedder {
	cfg := DefaultEmbedderConfig()
	cfg.BaseURL = url
	return NewOllamaEmbedder(cfg, zap.NewNop())
}

func TestOllamaEmbedder(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the embedding unmodified", func(t *testing.T) {
		srv := embeddingServer(t, http.StatusOK, `{"embedding":[0.25,-1.5,3]}`)
		embedding, err := newTestEmbedder(srv.URL).Embed(ctx, "Seoul landmarks")
		require.NoError(t, err)
		assert.Equal(t, []float32{0.25, -1.5, 3}, embedding)
	})

	t.Run("missing field is malformed", func(t *testing.T) {
		srv := embeddingServer(t, http.StatusOK, `{"data":[]}`)
		_, err := newTestEmbedder(srv.URL).Embed(ctx, "text")
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("non-numeric field is malformed", func(t *testing.T) {
		srv := embeddingServer(t, http.StatusOK, `{"embedding":["a","b"]}`)
		_, err := newTestEmbedder(srv.URL).Embed(ctx, "text")
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("error status is service unavailable", func(t *testing.T) {
		srv := embeddingServer(t, http.StatusInternalServerError, `{"error":"model not loaded"}`)
		_, err := newTestEmbedder(srv.URL).Embed(ctx, "text")
		assert.ErrorIs(t, err, ErrServiceUnavailable)
		assert.NotErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("unreachable endpoint is service unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := newTestEmbedder(url).Embed(ctx, "text")
		assert.ErrorIs(t, err, ErrServiceUnavailable)
	})

	t.Run("empty text is rejected without a request", func(t *testing.T) {
		_, err := newTestEmbedder("http://127.0.0.1:1").Embed(ctx, "  ")
		assert.ErrorIs(t, err, ErrEmptyInput)
	})
}

func TestParseEmbedding(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    []float32
		wantErr bool
	}{
		{name: "valid", body: `{"embedding":[1,2,3]}`, want: []float32{1, 2, 3}},
		{name: "extra fields ignored", body: `{"model":"all-minilm","embedding":[0.5]}`, want: []float32{0.5}},
		{name: "not json", body: `<html>`, wantErr: true},
		{name: "null", body: `{"embedding":null}`, wantErr: true},
		{name: "empty array", body: `{"embedding":[]}`, wantErr: true},
		{name: "object", body: `{"embedding":{"x":1}}`, wantErr: true},
		{name: "mixed", body: `{"embedding":[1,"2"]}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEmbedding([]byte(tt.body))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
