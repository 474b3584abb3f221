// Package ragtest provides deterministic stand-ins for the embedding service, the
// generation service and the document store.
package ragtest

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"sync"

	"github.com/edgeflare/pgrag/pkg/rag"
)

// HashVector derives a unit-length vector from the FNV hash of text, so identical
// text always maps to an identical vector.
func HashVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	var sumSquares float64
	for i := range vector {
		seed = seed*1664525 + 1013904223
		vector[i] = float32(seed%2000)/1000.0 - 1.0
		sumSquares += float64(vector[i]) * float64(vector[i])
	}
	if sumSquares > 0 {
		norm := float32(1.0 / math.Sqrt(sumSquares))
		for i := range vector {
			vector[i] *= norm
		}
	}
	return vector
}

// Cosine returns the cosine similarity of a and b, or 0 for mismatched or zero vectors.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// HashEmbedder implements rag.Embedder with HashVector.
type HashEmbedder struct {
	// Errors maps input text to the error Embed returns for it
	Errors     map[string]error
	Dimensions int

	mu    sync.Mutex
	calls []string
}

// NewHashEmbedder returns an embedder producing vectors of the given dimension.
func NewHashEmbedder(dimensions int) *HashEmbedder {
	return &HashEmbedder{Dimensions: dimensions, Errors: map[string]error{}}
}

func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls = append(e.calls, text)
	e.mu.Unlock()

	if err, ok := e.Errors[text]; ok {
		return nil, err
	}
	return HashVector(text, e.Dimensions), nil
}

// Calls returns the texts Embed was called with, in order.
func (e *HashEmbedder) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

// MemoryStore implements rag.Store in memory with the same all-or-nothing insert
// and dimension checks as the pgvector store.
type MemoryStore struct {
	// InsertErr, when set, fails every InsertBatch without storing anything
	InsertErr  error
	Dimensions int

	mu          sync.Mutex
	docs        []rag.Document
	insertCalls int
}

// NewMemoryStore returns an empty store for vectors of the given dimension.
func NewMemoryStore(dimensions int) *MemoryStore {
	return &MemoryStore{Dimensions: dimensions}
}

func (s *MemoryStore) InsertBatch(ctx context.Context, docs []rag.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertCalls++

	if s.InsertErr != nil {
		return s.InsertErr
	}
	for i, doc := range docs {
		if err := rag.CheckDimensions(doc.Embedding.Slice(), s.Dimensions); err != nil {
			return fmt.Errorf("document %d (%q): %w", i, doc.Title, err)
		}
	}
	for _, doc := range docs {
		doc.ID = int64(len(s.docs) + 1)
		s.docs = append(s.docs, doc)
	}
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, query []float32, k int) ([]rag.Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", rag.ErrEmptyInput, k)
	}
	if err := rag.CheckDimensions(query, s.Dimensions); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]rag.Result, 0, len(s.docs))
	for _, doc := range s.docs {
		results = append(results, rag.Result{
			Title:      doc.Title,
			Content:    doc.Content,
			Similarity: Cosine(query, doc.Embedding.Slice()),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Documents returns a copy of the stored documents.
func (s *MemoryStore) Documents() []rag.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]rag.Document(nil), s.docs...)
}

// InsertCalls returns how many times InsertBatch was called.
func (s *MemoryStore) InsertCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertCalls
}

// StubGenerator implements rag.Generator with a fixed response and records prompts.
type StubGenerator struct {
	Err      error
	Response string

	mu      sync.Mutex
	prompts []string
}

func (g *StubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	if g.Err != nil {
		return "", g.Err
	}
	return g.Response, nil
}

// Prompts returns the prompts Generate was called with, in order.
func (g *StubGenerator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

var (
	_ rag.Embedder  = (*HashEmbedder)(nil)
	_ rag.Store     = (*MemoryStore)(nil)
	_ rag.Generator = (*StubGenerator)(nil)
)
