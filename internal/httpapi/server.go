// Package httpapi exposes the Solace engine over HTTP: batch processing,
// status and fingerprint inspection, and the governance proposal flow.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/solace-ai/solace/internal/governance"
	"github.com/solace-ai/solace/pkg/dashboard"
	"github.com/solace-ai/solace/pkg/domain"
	"github.com/solace-ai/solace/pkg/engine"
)

// Server hosts the engine API.
type Server struct {
	logger   zerolog.Logger
	pipeline *engine.Pipeline
	quorum   *governance.Quorum
	limiter  *governance.RateLimiter
	dash     *dashboard.Metrics
	srv      *http.Server
}

// Options configure the API server.
type Options struct {
	Logger   zerolog.Logger
	Pipeline *engine.Pipeline
	Quorum   *governance.Quorum
	Limiter  *governance.RateLimiter
	Dash     *dashboard.Metrics
}

// NewServer builds the API server with its routes registered.
func NewServer(opts Options) *Server {
	s := &Server{
		logger:   opts.Logger,
		pipeline: opts.Pipeline,
		quorum:   opts.Quorum,
		limiter:  opts.Limiter,
		dash:     opts.Dash,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/process", s.handleProcess)
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /v1/fingerprint", s.handleFingerprint)
	mux.HandleFunc("GET /v1/batches/{id}", s.handleGetBatch)
	mux.HandleFunc("GET /v1/batches", s.handleRecentBatches)
	mux.HandleFunc("POST /v1/governance/proposals", s.handlePropose)
	mux.HandleFunc("GET /v1/governance/proposals/{id}", s.handleGetProposal)
	mux.HandleFunc("POST /v1/governance/proposals/{id}/ballots", s.handleBallot)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.srv = &http.Server{
		Handler:           otelhttp.NewHandler(mux, "solace.api"),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the instrumented root handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start serves on the given address until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.srv.Addr = addr
	s.logger.Info().Str("addr", addr).Msg("api server listening")
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// processRequest is the POST /v1/process payload.
type processRequest struct {
	Source string        `json:"source"`
	Items  []engine.Item `json:"items"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	source := req.Source
	if source == "" {
		source = "anonymous"
	}

	if s.limiter != nil && !s.limiter.Allow(source) {
		if s.dash != nil {
			s.dash.ObserveRateLimited()
		}
		s.writeError(w, r, http.StatusTooManyRequests, "RATE_LIMITED", domain.ErrRateLimited.Error())
		return
	}

	for i := range req.Items {
		if req.Items[i].Source == "" {
			req.Items[i].Source = source
		}
	}

	result, err := s.pipeline.Process(r.Context(), req.Items)
	if err != nil {
		if errors.Is(err, domain.ErrFrozen) {
			s.writeError(w, r, http.StatusServiceUnavailable, "FROZEN", err.Error())
			return
		}
		s.logger.Error().Err(err).Msg("process failed")
		s.writeError(w, r, http.StatusInternalServerError, "PROCESS_FAILED", "batch processing failed")
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	type statusResponse struct {
		Engine engine.Snapshot                      `json:"engine"`
		Ingest map[string]governance.RateLimitStats `json:"ingest,omitempty"`
	}
	resp := statusResponse{Engine: s.pipeline.Snapshot()}
	if s.limiter != nil {
		resp.Ingest = s.limiter.Stats()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFingerprint(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.pipeline.CurrentFingerprint(0))
}

func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	result, err := s.pipeline.Store().GetBatch(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, http.StatusNotFound, "BATCH_NOT_FOUND", err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRecentBatches(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid limit")
			return
		}
		limit = n
	}
	results, err := s.pipeline.Store().RecentBatches(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "STORE_FAILED", "could not list batches")
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	resp := domain.ErrorResponse{Code: code, Message: message}
	if span := trace.SpanContextFromContext(r.Context()); span.HasTraceID() {
		resp.TraceID = span.TraceID().String()
	}
	s.writeJSON(w, status, resp)
}
