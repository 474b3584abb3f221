package ragtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/edgeflare/pgrag/pkg/rag"
)

// OllamaServer emulates the /api/embeddings and /api/generate endpoints.
type OllamaServer struct {
	*httptest.Server

	// Fragments are written, one per line, as the /api/generate body
	Fragments  []string
	Dimensions int

	mu            sync.Mutex
	requests      []rag.GenerateRequest
	embeddingBody string
}

// SetEmbeddingBody replaces the computed /api/embeddings body with body.
func (s *OllamaServer) SetEmbeddingBody(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.embeddingBody = body
}

// NewOllamaServer starts a server closed on test cleanup. Embeddings are HashVector of the prompt.
func NewOllamaServer(t testing.TB, dimensions int, fragments ...string) *OllamaServer {
	s := &OllamaServer{Dimensions: dimensions, Fragments: fragments}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req rag.EmbeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		body := s.embeddingBody
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if body != "" {
			w.Write([]byte(body))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"embedding": HashVector(req.Prompt, s.Dimensions)})
	})
	mux.HandleFunc("POST /api/generate", func(w http.ResponseWriter, r *http.Request) {
		var req rag.GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.requests = append(s.requests, req)
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Write([]byte(strings.Join(s.Fragments, "\n") + "\n"))
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// GenerateRequests returns the decoded /api/generate request bodies.
func (s *OllamaServer) GenerateRequests() []rag.GenerateRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]rag.GenerateRequest(nil), s.requests...)
}

// EmbedderConfig returns a ServiceConfig pointing at the server's embeddings endpoint.
func (s *OllamaServer) EmbedderConfig() rag.ServiceConfig {
	cfg := rag.DefaultEmbedderConfig()
	cfg.BaseURL = s.URL
	return cfg
}

// GeneratorConfig returns a ServiceConfig pointing at the server's generate endpoint.
func (s *OllamaServer) GeneratorConfig() rag.ServiceConfig {
	cfg := rag.DefaultGeneratorConfig()
	cfg.BaseURL = s.URL
	return cfg
}
