package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/edgeflare/pgrag/internal/testutil/ragtest"
	"github.com/edgeflare/pgrag/pkg/httputil"
	"github.com/edgeflare/pgrag/pkg/rag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) (*httptest.Server, *ragtest.MemoryStore, *ragtest.StubGenerator) {
	t.Helper()
	store := ragtest.NewMemoryStore(384)
	generator := &ragtest.StubGenerator{Response: "Namsan"}
	pipeline := rag.NewPipeline(ragtest.NewHashEmbedder(384), generator, store, rag.DefaultPipelineConfig(), zap.NewNop())

	srv := httptest.NewServer(NewServer(pipeline, WithLogger(zap.NewNop())).Handler())
	t.Cleanup(srv.Close)
	return srv, store, generator
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func ingestSamples(t *testing.T, url string) {
	t.Helper()
	body, err := json.Marshal(ingestRequest{Documents: rag.SampleSources()})
	require.NoError(t, err)
	resp := do(t, http.MethodPost, url+"/api/documents", string(body))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 5, decode[ingestResponse](t, resp).Inserted)
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp := do(t, http.MethodGet, srv.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
	assert.Equal(t, map[string]string{"status": "ok"}, decode[map[string]string](t, resp))
}

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthWithPinger(t *testing.T) {
	s := NewServer(nil, WithPinger(pingerFunc(func(context.Context) error { return errors.New("connection refused") })))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestIngest(t *testing.T) {
	srv, store, _ := newTestServer(t)
	ingestSamples(t, srv.URL)
	assert.Len(t, store.Documents(), 5)

	t.Run("invalid json", func(t *testing.T) {
		resp := do(t, http.MethodPost, srv.URL+"/api/documents", "{")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("no documents", func(t *testing.T) {
		resp := do(t, http.MethodPost, srv.URL+"/api/documents", `{"documents":[]}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("empty content", func(t *testing.T) {
		resp := do(t, http.MethodPost, srv.URL+"/api/documents", `{"documents":[{"title":"x","content":""}]}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Len(t, store.Documents(), 5)
	})

	t.Run("wrong method", func(t *testing.T) {
		resp := do(t, http.MethodGet, srv.URL+"/api/documents", "")
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestSearch(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ingestSamples(t, srv.URL)

	t.Run("default k", func(t *testing.T) {
		resp := do(t, http.MethodGet, srv.URL+"/api/search?q=palace", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, decode[[]rag.Result](t, resp), 5)
	})

	t.Run("exact content ranks first", func(t *testing.T) {
		src := rag.SampleSources()[4]
		resp := do(t, http.MethodGet, srv.URL+"/api/search?k=2&q="+strings.ReplaceAll(src.Content, " ", "+"), "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		results := decode[[]rag.Result](t, resp)
		require.Len(t, results, 2)
		assert.Equal(t, src.Title, results[0].Title)
		assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
	})

	for _, query := range []string{"", "?q=", "?q=tower&k=0", "?q=tower&k=abc", "?q=tower&k=101"} {
		t.Run(fmt.Sprintf("bad request %q", query), func(t *testing.T) {
			resp := do(t, http.MethodGet, srv.URL+"/api/search"+query, "")
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, http.StatusBadRequest, decode[httputil.ErrorResponse](t, resp).Code)
		})
	}
}

func TestQuery(t *testing.T) {
	srv, _, generator := newTestServer(t)
	ingestSamples(t, srv.URL)

	resp := do(t, http.MethodPost, srv.URL+"/api/query", `{"query":"Where are the love locks?"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	answer := decode[rag.Answer](t, resp)
	assert.Equal(t, "Namsan", answer.Response)
	assert.Equal(t, "Where are the love locks?", answer.Query)
	assert.Len(t, answer.Results, 5)
	assert.Equal(t, []string{answer.Prompt}, generator.Prompts())

	t.Run("empty query", func(t *testing.T) {
		resp := do(t, http.MethodPost, srv.URL+"/api/query", `{"query":" "}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

type failingPipeline struct{ err error }

func (p failingPipeline) Ingest(context.Context, []rag.Source) (int, error) { return 0, p.err }
func (p failingPipeline) Retrieve(context.Context, string, int) ([]rag.Result, error) {
	return nil, p.err
}
func (p failingPipeline) Ask(context.Context, string) (*rag.Answer, error) { return nil, p.err }

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("embed query: %w: embedding field missing", rag.ErrMalformedResponse), http.StatusBadGateway},
		{fmt.Errorf("generate: %w: connection refused", rag.ErrServiceUnavailable), http.StatusServiceUnavailable},
		{fmt.Errorf("insert batch: %w: got 3, want 384", rag.ErrDimensionMismatch), http.StatusUnprocessableEntity},
		{fmt.Errorf("insert batch: %w: commit", rag.ErrStore), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			handler := NewServer(failingPipeline{err: tt.err}).Handler()
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"query":"q"}`)))
			assert.Equal(t, tt.want, rec.Code)

			var body httputil.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body.Code)
			assert.Equal(t, tt.err.Error(), body.Message)
		})
	}
}

func TestCORS(t *testing.T) {
	s := NewServer(nil, WithCORS("https://app.example.com"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	preflight := httptest.NewRequest(http.MethodOptions, "/api/query", nil)
	preflight.Header.Set("Origin", "https://app.example.com")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, preflight)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "GET,POST,OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))

	rec = httptest.NewRecorder()
	NewServer(nil).Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"), "CORS is off unless configured")
}
