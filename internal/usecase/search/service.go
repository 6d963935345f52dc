// Package search orchestrates one search request: snapshot the catalog,
// validate the request, embed the query, compile the statement, execute it.
package search

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/paperdex/paperdex/internal/catalog"
	"github.com/paperdex/paperdex/internal/compiler"
	"github.com/paperdex/paperdex/internal/db"
	"github.com/paperdex/paperdex/internal/domain"
	"github.com/paperdex/paperdex/internal/domain/query"
	"github.com/paperdex/paperdex/internal/metrics"
)

// Params are the raw request inputs as received by the transport layer.
type Params struct {
	Fields []string
	Filter string
	Query  string
	// MinSimilarity is the similarity cutoff, nil when the client sent none.
	MinSimilarity *float64
	// BBox is (min-x, min-y, max-x, max-y), nil when unset.
	BBox       *[4]float64
	Enrichment *query.EnrichmentRef
	Limit      int
	Offset     int
	WithCount  bool
}

// SourceInfo describes one enrichment source for discovery responses.
type SourceInfo struct {
	Name   string      `json:"name"`
	Table  string      `json:"table"`
	Fields []FieldInfo `json:"fields"`
}

// FieldInfo is one queryable field of a source.
type FieldInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Service handles document search over the compiled-statement pipeline.
type Service struct {
	repo          Repository
	schema        SchemaReader
	embed         Embedder
	pageLimits    query.Limits
	compileLimits compiler.Limits
	logger        *zap.Logger
}

// New creates a search service.
func New(
	repo Repository,
	schema SchemaReader,
	embed Embedder,
	pageLimits query.Limits,
	compileLimits compiler.Limits,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:          repo,
		schema:        schema,
		embed:         embed,
		pageLimits:    pageLimits,
		compileLimits: compileLimits,
		logger:        logger,
	}
}

// Search validates, compiles, and executes one search request.
func (s *Service) Search(ctx context.Context, p Params) (*domain.SearchResult, error) {
	tables, err := s.schema.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load catalog: %w", domain.ErrStoreUnavailable, err)
	}

	req, err := s.buildRequest(p)
	if err != nil {
		return nil, err
	}

	cat, err := s.buildCatalog(tables, p.Enrichment)
	if err != nil {
		return nil, err
	}

	var vec []float32
	if req.HasSemantic() {
		result, embErr := s.embed.Embed(ctx, req.SearchText())
		if embErr != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, embErr)
		}
		if len(result.Embedding) != domain.EmbeddingDim {
			return nil, fmt.Errorf("%w: provider returned %d dimensions, want %d",
				domain.ErrEmbeddingProviderError, len(result.Embedding), domain.EmbeddingDim)
		}
		vec = result.Embedding
	}

	compiled, err := compiler.Compile(cat, req, vec, s.compileLimits)
	if err != nil {
		metrics.QueryCompilationsTotal.WithLabelValues(compileStatus(err)).Inc()
		return nil, err
	}
	metrics.QueryCompilationsTotal.WithLabelValues("ok").Inc()
	if n := len(compiled.Warnings); n > 0 {
		metrics.QueryWarningsTotal.Add(float64(n))
	}

	res, err := s.repo.Run(ctx, compiled)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	kind := "filter"
	if req.HasSemantic() {
		kind = "semantic"
	}
	metrics.QueryExecutionDuration.WithLabelValues(kind).Observe(res.Took.Seconds())
	metrics.QueryRowsReturned.WithLabelValues(kind).Observe(float64(len(res.Records)))

	s.logger.Debug("Search completed",
		zap.String("kind", kind),
		zap.Int("rows", len(res.Records)),
		zap.Int("warnings", len(res.Warnings)),
		zap.Duration("took", res.Took),
	)

	return res, nil
}

// Sources lists the enrichment sources and their queryable fields.
func (s *Service) Sources(ctx context.Context) ([]SourceInfo, error) {
	tables, err := s.schema.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load catalog: %w", domain.ErrStoreUnavailable, err)
	}

	out := make([]SourceInfo, 0, len(tables))
	for _, t := range tables {
		info := SourceInfo{Name: t.Source, Table: t.Name, Fields: make([]FieldInfo, 0, len(t.Columns))}
		for _, c := range t.Columns {
			info.Fields = append(info.Fields, FieldInfo{Name: c.Name, Type: string(c.Type)})
		}
		out = append(out, info)
	}
	return out, nil
}

// RefreshSources drops the cached catalog snapshot and returns the freshly
// introspected sources. Used when enrichment tables were added or dropped and
// waiting out the snapshot TTL is not acceptable.
func (s *Service) RefreshSources(ctx context.Context) ([]SourceInfo, error) {
	s.schema.Invalidate()
	s.logger.Info("Catalog snapshot invalidated")
	return s.Sources(ctx)
}

func (s *Service) buildRequest(p Params) (*query.Request, error) {
	var bbox *query.BoundingBox
	if p.BBox != nil {
		b, err := query.NewBoundingBox(p.BBox[0], p.BBox[1], p.BBox[2], p.BBox[3])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
		}
		bbox = &b
	}

	req, err := query.New(
		p.Fields, p.Filter, p.Query, p.MinSimilarity,
		bbox, p.Enrichment, p.Limit, p.Offset, p.WithCount,
		s.pageLimits,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	return &req, nil
}

func (s *Service) buildCatalog(tables []catalog.Table, enr *query.EnrichmentRef) (*catalog.Catalog, error) {
	var explicitSource, explicitField string
	if enr != nil {
		explicitSource, explicitField = enr.Source, enr.Field
		// An explicit table name must agree with the snapshot; the client
		// never picks tables on its own.
		if enr.Table != "" {
			for _, t := range tables {
				if t.Source == enr.Source && t.Name != enr.Table {
					return nil, fmt.Errorf("%w: table %q does not serve source %q",
						domain.ErrSourceNotFound, enr.Table, enr.Source)
				}
			}
		}
	}

	cat, err := catalog.New(tables, explicitSource, explicitField)
	if err != nil {
		if enr != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrSourceNotFound, err)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return cat, nil
}

func compileStatus(err error) string {
	if errors.Is(err, domain.ErrInvalidFilter) {
		return "rejected_filter"
	}
	return "invalid"
}

// mapStoreErr translates store sentinels into domain sentinels.
func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, db.ErrTimeout):
		return fmt.Errorf("%w: %w", domain.ErrQueryTimeout, err)
	case errors.Is(err, db.ErrUnavailable):
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	default:
		return fmt.Errorf("run query: %w", err)
	}
}
