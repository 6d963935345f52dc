package query

import (
	"fmt"
	"strings"
)

// Request parameter limits.
const (
	// MaxFilterLength is the maximum allowed raw filter expression length.
	MaxFilterLength = 4096
	// MaxQueryLength is the maximum allowed free-text search length.
	MaxQueryLength = 4096
	// MaxFields is the maximum number of projected fields per request.
	MaxFields = 64
)

// Limits are the deployment-time pagination bounds threaded from config.
type Limits struct {
	DefaultLimit int
	MaxLimit     int
}

// EnrichmentRef names an explicit enrichment source/table/field triple.
// Table is optional; when empty it is derived from the source registry.
type EnrichmentRef struct {
	Source string
	Table  string
	Field  string
}

// Request is an immutable, validated search request.
type Request struct {
	fields        []string
	filter        string
	searchText    string
	minSimilarity *float64
	bbox          *BoundingBox
	enrichment    *EnrichmentRef
	limit         int
	offset        int
	withCount     bool
}

// New validates and normalizes a search request. The limit is defaulted and
// clamped to the configured hard maximum; offset must be non-negative.
func New(
	fields []string,
	filter, searchText string,
	minSimilarity *float64,
	bbox *BoundingBox,
	enrichment *EnrichmentRef,
	limit, offset int,
	withCount bool,
	limits Limits,
) (Request, error) {
	if len(fields) == 0 {
		return Request{}, fmt.Errorf("at least one projected field is required")
	}
	if len(fields) > MaxFields {
		return Request{}, fmt.Errorf("too many fields (max %d)", MaxFields)
	}
	normalized := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			return Request{}, fmt.Errorf("empty field name in projection")
		}
		normalized = append(normalized, f)
	}
	if len(filter) > MaxFilterLength {
		return Request{}, fmt.Errorf("filter too long (max %d chars)", MaxFilterLength)
	}
	if len(searchText) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if minSimilarity != nil {
		if *minSimilarity < 0 || *minSimilarity > 1 {
			return Request{}, fmt.Errorf("min_similarity must be between 0 and 1")
		}
		if searchText == "" {
			return Request{}, fmt.Errorf("min_similarity requires a search query")
		}
	}
	if enrichment != nil {
		if enrichment.Source == "" {
			return Request{}, fmt.Errorf("enrichment.source is required")
		}
		if enrichment.Field == "" {
			return Request{}, fmt.Errorf("enrichment.field is required")
		}
	}
	if offset < 0 {
		return Request{}, fmt.Errorf("offset must be >= 0")
	}
	if limit <= 0 {
		limit = limits.DefaultLimit
	}
	if limit > limits.MaxLimit {
		limit = limits.MaxLimit
	}

	return Request{
		fields:        normalized,
		filter:        strings.TrimSpace(filter),
		searchText:    strings.TrimSpace(searchText),
		minSimilarity: minSimilarity,
		bbox:          bbox,
		enrichment:    enrichment,
		limit:         limit,
		offset:        offset,
		withCount:     withCount,
	}, nil
}

// Fields returns the ordered projection list.
func (r *Request) Fields() []string { return r.fields }

// Filter returns the raw filter expression (possibly empty).
func (r *Request) Filter() string { return r.filter }

// SearchText returns the free-text semantic query (possibly empty).
func (r *Request) SearchText() string { return r.searchText }

// HasSemantic reports whether semantic ranking was requested.
func (r *Request) HasSemantic() bool { return r.searchText != "" }

// MinSimilarity returns the similarity threshold (nil = unset). An explicit 0
// is a real cutoff: scores range over [-1, 1].
func (r *Request) MinSimilarity() *float64 { return r.minSimilarity }

// BBox returns the spatial bounding box (nil = unset).
func (r *Request) BBox() *BoundingBox { return r.bbox }

// Enrichment returns the explicit enrichment triple (nil = unset).
func (r *Request) Enrichment() *EnrichmentRef { return r.enrichment }

// Limit returns the clamped page size.
func (r *Request) Limit() int { return r.limit }

// Offset returns the page offset.
func (r *Request) Offset() int { return r.offset }

// WithCount reports whether a total-count estimate was requested.
func (r *Request) WithCount() bool { return r.withCount }
