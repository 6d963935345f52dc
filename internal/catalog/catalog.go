// Package catalog resolves bare field names against the document base table
// and the per-source enrichment tables implicated by a request. A Catalog is
// built per request from an immutable snapshot and is never shared between
// concurrent compilations.
package catalog

import (
	"fmt"
	"regexp"
	"sort"
)

// ValueType classifies a column for rendering and result normalization.
type ValueType string

const (
	TypeText      ValueType = "text"
	TypeNumeric   ValueType = "numeric"
	TypeTimestamp ValueType = "timestamp"
	TypeBoolean   ValueType = "boolean"
	TypeVector    ValueType = "vector"
	TypePoint     ValueType = "point"
	TypeJSON      ValueType = "json"
)

// Base table identity. Enrichment tables are aliased per source.
const (
	BaseTable = "documents"
	BaseAlias = "d"
)

// Column is a named, typed table column.
type Column struct {
	Name string
	Type ValueType
}

// Table describes one per-source enrichment table.
type Table struct {
	Source  string
	Name    string
	Columns []Column
}

// FieldRef is a fully resolved field reference.
type FieldRef struct {
	Name      string // bare field name
	Table     string // physical table name
	Alias     string // SQL table alias
	Qualified string // alias."column"
	Type      ValueType
	Source    string // enrichment source, "" for the base table
}

// IsEnrichment reports whether the field lives on an enrichment table.
func (f FieldRef) IsEnrichment() bool { return f.Source != "" }

// Join is an enrichment table that must be LEFT JOINed on the document id.
type Join struct {
	Source string
	Table  string
	Alias  string
}

// DocumentColumns is the fixed base-table column list.
func DocumentColumns() []Column {
	return []Column{
		{Name: "id", Type: TypeText},
		{Name: "source", Type: TypeText},
		{Name: "source_id", Type: TypeText},
		{Name: "title", Type: TypeText},
		{Name: "abstract", Type: TypeText},
		{Name: "authors", Type: TypeJSON},
		{Name: "published_at", Type: TypeTimestamp},
		{Name: "embedding", Type: TypeVector},
		{Name: "projected_embedding", Type: TypePoint},
		{Name: "links", Type: TypeJSON},
	}
}

var identRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidIdent reports whether a discovered table or column name is safe to
// quote as a SQL identifier. Names failing this are skipped at snapshot time.
func ValidIdent(name string) bool { return identRe.MatchString(name) }

// QuoteIdent wraps a validated identifier in double quotes.
func QuoteIdent(name string) string { return `"` + name + `"` }

// SourceAlias returns the deterministic SQL alias for an enrichment source.
func SourceAlias(source string) string { return "e_" + source }

// Catalog maps bare field names to resolved references for one request.
type Catalog struct {
	fields     map[string]FieldRef
	ambiguous  map[string][]string // bare name -> colliding sources
	tables     map[string]Table    // source -> table
	referenced map[string]struct{} // sources whose tables must be joined
}

// New builds a catalog from the base columns and the enrichment tables
// implicated by the request. Collisions with the base table are won by the
// base table; collisions between enrichment tables make the bare name
// ambiguous. An explicit (source, field) selection overrides both rules for
// that one field.
func New(tables []Table, explicitSource, explicitField string) (*Catalog, error) {
	c := &Catalog{
		fields:     make(map[string]FieldRef),
		ambiguous:  make(map[string][]string),
		tables:     make(map[string]Table, len(tables)),
		referenced: make(map[string]struct{}),
	}

	for _, col := range DocumentColumns() {
		c.fields[col.Name] = FieldRef{
			Name:      col.Name,
			Table:     BaseTable,
			Alias:     BaseAlias,
			Qualified: BaseAlias + "." + QuoteIdent(col.Name),
			Type:      col.Type,
		}
	}

	// Deterministic iteration keeps compilation idempotent.
	sorted := make([]Table, len(tables))
	copy(sorted, tables)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Source < sorted[j].Source })

	for _, t := range sorted {
		if !ValidIdent(t.Name) || !ValidIdent(t.Source) {
			return nil, fmt.Errorf("unsafe enrichment table identity %q/%q", t.Source, t.Name)
		}
		if _, dup := c.tables[t.Source]; dup {
			return nil, fmt.Errorf("duplicate enrichment source %q", t.Source)
		}
		c.tables[t.Source] = t

		for _, col := range t.Columns {
			if !ValidIdent(col.Name) {
				continue
			}
			existing, taken := c.fields[col.Name]
			switch {
			case !taken:
				if collisions, amb := c.ambiguous[col.Name]; amb {
					c.ambiguous[col.Name] = append(collisions, t.Source)
					continue
				}
				c.fields[col.Name] = enrichmentRef(t, col)
			case existing.Source == "":
				// Base table wins a bare-name collision.
			default:
				// Two enrichment tables expose the same bare name.
				c.ambiguous[col.Name] = []string{existing.Source, t.Source}
				delete(c.fields, col.Name)
			}
		}
	}

	if explicitSource != "" && explicitField != "" {
		t, ok := c.tables[explicitSource]
		if !ok {
			return nil, fmt.Errorf("enrichment source %q not in catalog", explicitSource)
		}
		var found bool
		for _, col := range t.Columns {
			if col.Name == explicitField {
				c.fields[col.Name] = enrichmentRef(t, col)
				delete(c.ambiguous, col.Name)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("field %q not found on enrichment source %q", explicitField, explicitSource)
		}
	}

	return c, nil
}

func enrichmentRef(t Table, col Column) FieldRef {
	alias := SourceAlias(t.Source)
	return FieldRef{
		Name:      col.Name,
		Table:     t.Name,
		Alias:     alias,
		Qualified: alias + "." + QuoteIdent(col.Name),
		Type:      col.Type,
		Source:    t.Source,
	}
}

// Resolve looks up a bare field name. A successful enrichment resolution
// records the owning table as a required join.
func (c *Catalog) Resolve(name string) (FieldRef, bool) {
	ref, ok := c.fields[name]
	if !ok {
		return FieldRef{}, false
	}
	if ref.IsEnrichment() {
		c.referenced[ref.Source] = struct{}{}
	}
	return ref, true
}

// Ambiguous reports whether a bare name collides across enrichment tables,
// along with the colliding sources.
func (c *Catalog) Ambiguous(name string) ([]string, bool) {
	sources, ok := c.ambiguous[name]
	return sources, ok
}

// Joins returns the enrichment tables referenced so far, in deterministic
// source order. Each table is joined at most once per query.
func (c *Catalog) Joins() []Join {
	sources := make([]string, 0, len(c.referenced))
	for s := range c.referenced {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	joins := make([]Join, 0, len(sources))
	for _, s := range sources {
		t := c.tables[s]
		joins = append(joins, Join{Source: s, Table: t.Name, Alias: SourceAlias(s)})
	}
	return joins
}

// Sources returns the sources known to this catalog in sorted order.
func (c *Catalog) Sources() []string {
	out := make([]string, 0, len(c.tables))
	for s := range c.tables {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
