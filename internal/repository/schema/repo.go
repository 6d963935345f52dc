// Package schema maintains the catalog snapshot: the enrichment tables and
// typed columns discovered from the database, cached with a TTL so the hot
// search path never introspects.
package schema

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/paperdex/paperdex/internal/catalog"
	"github.com/paperdex/paperdex/internal/db"
)

// store is the consumer interface for schema introspection (ISP).
type store interface {
	ListColumns(ctx context.Context, baseTable, prefix string) ([]db.TableColumn, error)
}

// Repo serves catalog snapshots from a TTL cache over information_schema.
type Repo struct {
	store  store
	prefix string
	ttl    time.Duration
	logger *zap.Logger

	mu      sync.RWMutex
	tables  []catalog.Table
	expires time.Time
}

// New creates a schema repository. prefix names the enrichment table family
// (tables named prefix + source).
func New(s store, prefix string, ttl time.Duration, logger *zap.Logger) *Repo {
	return &Repo{store: s, prefix: prefix, ttl: ttl, logger: logger}
}

// Tables returns the current enrichment table snapshot, refreshing it from
// the database when the cached copy has expired.
func (r *Repo) Tables(ctx context.Context) ([]catalog.Table, error) {
	r.mu.RLock()
	if time.Now().Before(r.expires) {
		tables := r.tables
		r.mu.RUnlock()
		return tables, nil
	}
	r.mu.RUnlock()

	return r.refresh(ctx)
}

// Sources returns the known enrichment source names in snapshot order.
func (r *Repo) Sources(ctx context.Context) ([]string, error) {
	tables, err := r.Tables(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(tables))
	for _, t := range tables {
		out = append(out, t.Source)
	}
	return out, nil
}

// Invalidate drops the cached snapshot, forcing the next read to introspect.
func (r *Repo) Invalidate() {
	r.mu.Lock()
	r.expires = time.Time{}
	r.mu.Unlock()
}

func (r *Repo) refresh(ctx context.Context) ([]catalog.Table, error) {
	cols, err := r.store.ListColumns(ctx, catalog.BaseTable, r.prefix)
	if err != nil {
		// Serve a stale snapshot rather than fail the request outright.
		r.mu.RLock()
		stale := r.tables
		r.mu.RUnlock()
		if stale != nil {
			r.logger.Warn("Schema refresh failed, serving stale snapshot", zap.Error(err))
			return stale, nil
		}
		return nil, fmt.Errorf("list columns: %w", err)
	}

	tables := r.build(cols)

	r.mu.Lock()
	r.tables = tables
	r.expires = time.Now().Add(r.ttl)
	r.mu.Unlock()

	return tables, nil
}

// build groups introspected columns into enrichment tables. Tables or columns
// with unsafe identifiers are skipped, never quoted into SQL.
func (r *Repo) build(cols []db.TableColumn) []catalog.Table {
	var tables []catalog.Table
	byTable := make(map[string]int)

	for _, c := range cols {
		if c.TableName == catalog.BaseTable {
			continue // base columns are fixed, not introspected
		}
		source := strings.TrimPrefix(c.TableName, r.prefix)
		if source == c.TableName || source == "" {
			continue
		}
		if !catalog.ValidIdent(c.TableName) || !catalog.ValidIdent(source) {
			r.logger.Warn("Skipping enrichment table with unsafe name", zap.String("table", c.TableName))
			continue
		}
		if !catalog.ValidIdent(c.ColumnName) {
			r.logger.Warn("Skipping column with unsafe name",
				zap.String("table", c.TableName), zap.String("column", c.ColumnName))
			continue
		}
		// The join key is structural, not a queryable field.
		if c.ColumnName == "document_id" {
			continue
		}

		idx, ok := byTable[c.TableName]
		if !ok {
			idx = len(tables)
			byTable[c.TableName] = idx
			tables = append(tables, catalog.Table{Source: source, Name: c.TableName})
		}
		tables[idx].Columns = append(tables[idx].Columns, catalog.Column{
			Name: c.ColumnName,
			Type: columnType(c),
		})
	}

	return tables
}

// columnType maps information_schema types onto catalog value types.
func columnType(c db.TableColumn) catalog.ValueType {
	switch c.DataType {
	case "text", "character varying", "character", "uuid":
		return catalog.TypeText
	case "smallint", "integer", "bigint", "numeric", "real", "double precision":
		return catalog.TypeNumeric
	case "boolean":
		return catalog.TypeBoolean
	case "date", "timestamp without time zone", "timestamp with time zone":
		return catalog.TypeTimestamp
	case "json", "jsonb":
		return catalog.TypeJSON
	case "point":
		return catalog.TypePoint
	case "USER-DEFINED":
		if c.UDTName == "vector" {
			return catalog.TypeVector
		}
	}
	return catalog.TypeText
}
