package paperdex

// Record is one result row keyed by requested field name. Semantic searches
// additionally carry "similarity_score" when it was projected.
type Record map[string]any

// EnrichmentRef pins an ambiguous field to one enrichment source.
type EnrichmentRef struct {
	Source string `json:"source"`
	Table  string `json:"table,omitempty"`
	Field  string `json:"field"`
}

// SearchRequest is the body of POST /api/v1/search.
type SearchRequest struct {
	Fields        []string       `json:"fields"`
	SQLFilter     string         `json:"sql_filter,omitempty"`
	Query         string         `json:"query,omitempty"`
	MinSimilarity *float64       `json:"min_similarity,omitempty"`
	BBox          *[4]float64    `json:"bbox,omitempty"`
	Enrichment    *EnrichmentRef `json:"enrichment,omitempty"`
	Limit         int            `json:"limit,omitempty"`
	Offset        int            `json:"offset,omitempty"`
	WithCount     bool           `json:"with_count,omitempty"`
}

// SearchResponse is the reply of POST /api/v1/search.
type SearchResponse struct {
	Items    []Record `json:"items"`
	Total    *int64   `json:"total,omitempty"`
	TookMS   int64    `json:"took_ms"`
	Warnings []string `json:"warnings,omitempty"`
}

// FieldInfo is one queryable field of an enrichment source.
type FieldInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Source describes one enrichment source.
type Source struct {
	Name   string      `json:"name"`
	Table  string      `json:"table"`
	Fields []FieldInfo `json:"fields"`
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            `json:"status"` // "ok", "degraded", "error"
	Checks map[string]string `json:"checks"` // component -> "ok"/"error"
}
