package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/edgeflare/pgrag/pkg/httputil"
	mw "github.com/edgeflare/pgrag/pkg/httputil/middleware"
	"github.com/edgeflare/pgrag/pkg/rag"
	"go.uber.org/zap"
)

const (
	maxBodyBytes = 10 << 20
	maxSearchK   = 100
)

// Pipeline is the subset of *rag.Pipeline served over HTTP.
type Pipeline interface {
	Ingest(ctx context.Context, sources []rag.Source) (int, error)
	Retrieve(ctx context.Context, query string, k int) ([]rag.Result, error)
	Ask(ctx context.Context, query string) (*rag.Answer, error)
}

// Pinger reports whether a backing service is reachable, e.g. *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server exposes a Pipeline over HTTP.
type Server struct {
	router   *httputil.Router
	pipeline Pipeline
	pinger   Pinger
	logger   *zap.Logger
	cors     *mw.CORSOptions
	defaultK int
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for the server and its request middleware.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPinger makes /healthz check the database.
func WithPinger(p Pinger) Option {
	return func(s *Server) { s.pinger = p }
}

// WithDefaultK sets k for searches that do not pass one.
func WithDefaultK(k int) Option {
	return func(s *Server) {
		if k > 0 {
			s.defaultK = k
		}
	}
}

// WithCORS answers cross-origin requests from origins; "*" allows any.
func WithCORS(origins ...string) Option {
	return func(s *Server) {
		if len(origins) == 0 {
			return
		}
		s.cors = mw.DefaultCORSOptions()
		s.cors.AllowedOrigins = origins
	}
}

// NewServer registers the health and /api routes for pipeline.
func NewServer(pipeline Pipeline, opts ...Option) *Server {
	s := &Server{
		pipeline: pipeline,
		logger:   zap.NewNop(),
		defaultK: rag.DefaultPipelineConfig().TopK,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router = httputil.NewRouter(httputil.WithLogger(s.logger))
	s.router.Use(mw.RequestID, mw.LoggerWithOptions(&mw.LoggerOptions{Logger: s.logger}))
	if s.cors != nil {
		s.router.Wrap(mw.CORSWithOptions(s.cors))
	}
	s.registerHandlers()
	return s
}

func (s *Server) registerHandlers() {
	s.router.HandleFunc("GET /healthz", s.handleHealth)

	api := s.router.Group("/api")
	api.HandleFunc("POST /documents", s.handleIngest)
	api.HandleFunc("GET /search", s.handleSearch)
	api.HandleFunc("POST /query", s.handleQuery)
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	return s.router.Handler()
}

// Start serves on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	if err := s.router.ListenAndServe(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.router.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			mw.LoggerFromContext(r.Context()).Warn("health check failed", zap.Error(err))
			httputil.Error(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type ingestRequest struct {
	Documents []rag.Source `json:"documents"`
}

type ingestResponse struct {
	Inserted int `json:"inserted"`
}

// handleIngest processes POST requests to insert documents
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req ingestRequest
	if err := httputil.BindOrError(r, w, &req); err != nil {
		return
	}
	if len(req.Documents) == 0 {
		httputil.Error(w, http.StatusBadRequest, "documents must not be empty")
		return
	}

	inserted, err := s.pipeline.Ingest(r.Context(), req.Documents)
	if err != nil {
		s.fail(w, r, "ingest failed", err)
		return
	}

	httputil.JSON(w, http.StatusCreated, ingestResponse{Inserted: inserted})
}

// handleSearch processes GET requests for the nearest documents
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		httputil.Error(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	k := s.defaultK
	if raw := r.URL.Query().Get("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxSearchK {
			httputil.Error(w, http.StatusBadRequest, fmt.Sprintf("k must be an integer between 1 and %d", maxSearchK))
			return
		}
		k = n
	}

	results, err := s.pipeline.Retrieve(r.Context(), query, k)
	if err != nil {
		s.fail(w, r, "search failed", err)
		return
	}

	httputil.JSON(w, http.StatusOK, results)
}

type queryRequest struct {
	Query string `json:"query"`
}

// handleQuery processes POST requests for a generated answer
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req queryRequest
	if err := httputil.BindOrError(r, w, &req); err != nil {
		return
	}

	answer, err := s.pipeline.Ask(r.Context(), req.Query)
	if err != nil {
		s.fail(w, r, "query failed", err)
		return
	}

	httputil.JSON(w, http.StatusOK, answer)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	code := statusCode(err)
	logger := mw.LoggerFromContext(r.Context())
	if code >= http.StatusInternalServerError {
		logger.Error(msg, zap.Int("status", code), zap.Error(err))
	} else {
		logger.Info(msg, zap.Int("status", code), zap.Error(err))
	}
	httputil.Error(w, code, err.Error())
}
