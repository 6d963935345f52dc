// Package httpapi exposes the search pipeline over HTTP with chi.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/paperdex/paperdex/internal/domain"
	"github.com/paperdex/paperdex/internal/domain/query"
	"github.com/paperdex/paperdex/internal/logger"
	healthuc "github.com/paperdex/paperdex/internal/usecase/health"
	searchuc "github.com/paperdex/paperdex/internal/usecase/search"
)

// Error response codes.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeInvalidFilter    = "invalid_filter"
	codeUnknownField     = "unknown_field"
	codeSourceNotFound   = "source_not_found"
	codeProviderError    = "embedding_provider_error"
	codeQueryTimeout     = "query_timeout"
	codeStoreUnavailable = "store_unavailable"
	codeInternalError    = "internal_error"
)

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers. Logging is request-scoped: handlers pull
// the logger the middleware stored in the request context.
type Server struct {
	search        *searchuc.Service
	health        *healthuc.Service
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search *searchuc.Service, health *healthuc.Service) *Server {
	s := &Server{
		search: search,
		health: health,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidFilter, http.StatusBadRequest, codeInvalidFilter),
		sentinelHandler(domain.ErrUnknownField, http.StatusBadRequest, codeUnknownField),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrSourceNotFound, http.StatusNotFound, codeSourceNotFound),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeProviderError),
		sentinelHandler(domain.ErrQueryTimeout, http.StatusGatewayTimeout, codeQueryTimeout),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, codeStoreUnavailable),
	}
	return s
}

// Routes mounts the API handlers on the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/api/v1/search", s.SearchDocuments)
	r.Get("/api/v1/sources", s.ListSources)
	r.Post("/api/v1/sources/refresh", s.RefreshSources)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// searchRequest is the POST /search body.
type searchRequest struct {
	Fields        []string       `json:"fields"`
	SQLFilter     string         `json:"sql_filter,omitempty"`
	Query         string         `json:"query,omitempty"`
	MinSimilarity *float64       `json:"min_similarity,omitempty"`
	BBox          *[4]float64    `json:"bbox,omitempty"`
	Enrichment    *enrichmentRef `json:"enrichment,omitempty"`
	Limit         *int           `json:"limit,omitempty"`
	Offset        *int           `json:"offset,omitempty"`
	WithCount     bool           `json:"with_count,omitempty"`
}

type enrichmentRef struct {
	Source string `json:"source"`
	Table  string `json:"table,omitempty"`
	Field  string `json:"field"`
}

// searchResponse is the POST /search reply.
type searchResponse struct {
	Items    []domain.Record `json:"items"`
	Total    *int64          `json:"total,omitempty"`
	TookMS   int64           `json:"took_ms"`
	Warnings []string        `json:"warnings,omitempty"`
}

// SearchDocuments handles POST /api/v1/search.
func (s *Server) SearchDocuments(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	params := searchuc.Params{
		Fields:        req.Fields,
		Filter:        req.SQLFilter,
		Query:         req.Query,
		MinSimilarity: req.MinSimilarity,
		BBox:          req.BBox,
		WithCount:     req.WithCount,
	}
	if req.Limit != nil {
		params.Limit = *req.Limit
	}
	if req.Offset != nil {
		params.Offset = *req.Offset
	}
	if req.Enrichment != nil {
		params.Enrichment = &query.EnrichmentRef{
			Source: req.Enrichment.Source,
			Table:  req.Enrichment.Table,
			Field:  req.Enrichment.Field,
		}
	}

	res, err := s.search.Search(r.Context(), params)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Items:    res.Records,
		Total:    res.Total,
		TookMS:   res.Took.Milliseconds(),
		Warnings: res.Warnings,
	})
}

// sourcesResponse is the GET /sources reply.
type sourcesResponse struct {
	Sources []searchuc.SourceInfo `json:"sources"`
}

// ListSources handles GET /api/v1/sources.
func (s *Server) ListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.search.Sources(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sourcesResponse{Sources: sources})
}

// RefreshSources handles POST /api/v1/sources/refresh: it drops the cached
// catalog snapshot and returns the freshly introspected sources.
func (s *Server) RefreshSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.search.RefreshSources(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sourcesResponse{Sources: sources})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a client-facing message without exposing internals.
// Validation and filter errors carry their detail; everything else collapses
// to the sentinel text.
func safeDomainMessage(err error) string {
	var rejected *domain.FilterRejectedError
	if errors.As(err, &rejected) {
		return "filter rejected: " + rejected.Reason
	}
	// Client errors carry their detail; server-side failures stay terse.
	detailed := []error{
		domain.ErrInvalidRequest,
		domain.ErrUnknownField,
		domain.ErrInvalidFilter,
		domain.ErrSourceNotFound,
	}
	for _, s := range detailed {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	terse := []error{
		domain.ErrEmbeddingProviderError,
		domain.ErrQueryTimeout,
		domain.ErrStoreUnavailable,
	}
	for _, s := range terse {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
