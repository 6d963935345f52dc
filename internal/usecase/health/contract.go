package health

import (
	"context"

	"github.com/paperdex/paperdex/internal/catalog"
)

// StorePinger checks that the document store answers.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// CatalogReader serves the enrichment table snapshot.
type CatalogReader interface {
	Tables(ctx context.Context) ([]catalog.Table, error)
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
