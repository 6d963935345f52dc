package schema

import (
	"context"

	"github.com/paperdex/paperdex/internal/db"
)

// mockIntrospector implements the consumer interface for tests.
type mockIntrospector struct {
	listFn func(ctx context.Context, baseTable, prefix string) ([]db.TableColumn, error)
	calls  int
}

func (m *mockIntrospector) ListColumns(ctx context.Context, baseTable, prefix string) ([]db.TableColumn, error) {
	m.calls++
	if m.listFn != nil {
		return m.listFn(ctx, baseTable, prefix)
	}
	return nil, nil
}
