package search

import (
	"context"

	"github.com/paperdex/paperdex/internal/catalog"
	"github.com/paperdex/paperdex/internal/compiler"
	"github.com/paperdex/paperdex/internal/domain"
)

// Repository executes compiled statements against the store.
type Repository interface {
	Run(ctx context.Context, q *compiler.Compiled) (*domain.SearchResult, error)
}

// SchemaReader serves the current catalog snapshot and can drop it on demand.
type SchemaReader interface {
	Tables(ctx context.Context) ([]catalog.Table, error)
	Invalidate()
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
