package search

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/paperdex/paperdex/internal/catalog"
	"github.com/paperdex/paperdex/internal/compiler"
	"github.com/paperdex/paperdex/internal/domain"
	"github.com/paperdex/paperdex/internal/domain/query"
)

type mockRepo struct {
	runFn    func(ctx context.Context, q *compiler.Compiled) (*domain.SearchResult, error)
	lastStmt *compiler.Compiled
}

func (m *mockRepo) Run(ctx context.Context, q *compiler.Compiled) (*domain.SearchResult, error) {
	m.lastStmt = q
	if m.runFn != nil {
		return m.runFn(ctx, q)
	}
	return &domain.SearchResult{Records: []domain.Record{}, Warnings: q.Warnings}, nil
}

type mockSchema struct {
	tables      []catalog.Table
	err         error
	invalidated int
}

func (m *mockSchema) Tables(_ context.Context) ([]catalog.Table, error) {
	return m.tables, m.err
}

func (m *mockSchema) Invalidate() { m.invalidated++ }

func sim(v float64) *float64 { return &v }

type mockEmbedder struct {
	result domain.EmbeddingResult
	err    error
	calls  int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	return m.result, m.err
}

func testVector() []float32 {
	return make([]float32, domain.EmbeddingDim)
}

func testTables() []catalog.Table {
	return []catalog.Table{
		{
			Source: "openalex",
			Name:   "enrichment_openalex",
			Columns: []catalog.Column{
				{Name: "citation_count", Type: catalog.TypeNumeric},
				{Name: "venue", Type: catalog.TypeText},
			},
		},
	}
}

func newTestService(t *testing.T, repo *mockRepo, schema *mockSchema, embed *mockEmbedder) *Service {
	t.Helper()
	return New(repo, schema, embed,
		query.Limits{DefaultLimit: 20, MaxLimit: 200},
		compiler.Limits{CandidateCap: 10000},
		zap.NewNop(),
	)
}
