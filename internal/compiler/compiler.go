// Package compiler turns a validated query request into one parameterized,
// cost-bounded SQL statement against the document table and its enrichment
// side tables. Compilation is pure: the same catalog and request always
// produce byte-identical statement text and parameter lists.
package compiler

import (
	"fmt"
	"strings"

	"github.com/paperdex/paperdex/internal/catalog"
	"github.com/paperdex/paperdex/internal/domain"
	"github.com/paperdex/paperdex/internal/domain/query"
	"github.com/paperdex/paperdex/internal/sqlfilter"
)

// Limits are the deployment-time cost bounds for compilation.
type Limits struct {
	// CandidateCap caps the inner candidate stage of semantic queries and
	// the count-estimate scan, independent of the requested limit.
	CandidateCap int
}

// Column describes one output column of the compiled statement, in SELECT order.
type Column struct {
	Name string
	Type catalog.ValueType
}

// Compiled is a ready-to-execute statement with its ordered parameters.
type Compiled struct {
	SQL       string
	Args      []any
	CountSQL  string // empty unless a count estimate was requested
	CountArgs []any
	Columns   []Column
	Warnings  []string
}

// Compile assembles the full statement: resolved projection, FROM/JOIN for
// every referenced enrichment table, validated filter, spatial predicate,
// the two-stage ANN shape when semantic search is active, deterministic
// ordering, and bound pagination. queryVec must be non-nil exactly when the
// request has a semantic query.
func Compile(cat *catalog.Catalog, req *query.Request, queryVec []float32, limits Limits) (*Compiled, error) {
	if req.HasSemantic() != (queryVec != nil) {
		return nil, fmt.Errorf("%w: semantic query and vector must be supplied together", domain.ErrInvalidRequest)
	}

	binder := &Binder{}
	var warnings []string

	// The query vector is bound first so its placeholder can be reused by
	// both the distance ordering and the similarity projection.
	var plan *semanticPlan
	if req.HasSemantic() {
		plan = newSemanticPlan(queryVec, binder)
	}

	// Filter: parse and render before anything else so a rejected filter
	// aborts compilation with no statement emitted.
	var filterExpr sqlfilter.Expr
	var filterSQL string
	if req.Filter() != "" {
		var err error
		filterExpr, err = sqlfilter.Parse(req.Filter())
		if err != nil {
			return nil, domain.NewFilterRejected(err.Error())
		}
		filterSQL, err = sqlfilter.Render(filterExpr, cat, binder)
		if err != nil {
			return nil, domain.NewFilterRejected(err.Error())
		}
	}
	// Joins referenced by the filter alone: the candidate stage needs these
	// and only these.
	filterJoins := cat.Joins()

	var bboxSQL string
	if req.BBox() != nil {
		bboxSQL = spatialPredicate(req.BBox(), binder)
	}

	// Explicit enrichment field drives null-last ordering and its join.
	var explicitRef *catalog.FieldRef
	if enr := req.Enrichment(); enr != nil {
		ref, ok := cat.Resolve(enr.Field)
		if !ok || ref.Source != enr.Source {
			return nil, fmt.Errorf("%w: %q on source %q", domain.ErrUnknownField, enr.Field, enr.Source)
		}
		explicitRef = &ref
	}

	// Projection: unknown fields are dropped with a warning, the request
	// still succeeds (degraded-but-successful).
	var projected []catalog.FieldRef
	for _, name := range req.Fields() {
		if name == domain.SimilarityScoreField {
			if !req.HasSemantic() {
				warnings = append(warnings, fmt.Sprintf(
					"field %q requires a search query and was dropped", name))
			}
			continue // projected automatically for semantic queries
		}
		ref, ok := cat.Resolve(name)
		if !ok {
			if sources, amb := cat.Ambiguous(name); amb {
				warnings = append(warnings, fmt.Sprintf(
					"field %q is ambiguous across enrichment sources %s and was dropped",
					name, strings.Join(sources, ", ")))
			} else {
				warnings = append(warnings, fmt.Sprintf("field %q not found and was dropped", name))
			}
			continue
		}
		projected = append(projected, ref)
	}
	if len(projected) == 0 {
		id, _ := cat.Resolve("id")
		projected = append(projected, id)
		warnings = append(warnings, `no requested fields resolved; returning "id" only`)
	}

	columns := make([]Column, 0, len(projected)+1)
	selectList := make([]string, 0, len(projected)+1)
	for _, ref := range projected {
		selectList = append(selectList, ref.Qualified+" AS "+quotedName(ref.Name))
		columns = append(columns, Column{Name: ref.Name, Type: ref.Type})
	}

	allJoins := cat.Joins()

	var sql string
	if plan != nil {
		selectList = append(selectList, plan.scoreFromDistance()+" AS "+quotedName(domain.SimilarityScoreField))
		columns = append(columns, Column{Name: domain.SimilarityScoreField, Type: catalog.TypeNumeric})
		sql = assembleSemantic(plan, selectList, filterSQL, bboxSQL, filterJoins, allJoins,
			explicitRef, req, binder, limits)
	} else {
		sql = assemblePlain(selectList, filterSQL, bboxSQL, allJoins, explicitRef, req, binder)
	}

	out := &Compiled{
		SQL:      sql,
		Args:     binder.Args(),
		Columns:  columns,
		Warnings: warnings,
	}

	if req.WithCount() {
		countBinder := &Binder{}
		countSQL, err := assembleCount(cat, filterExpr, req, countBinder, filterJoins, limits)
		if err != nil {
			return nil, err
		}
		out.CountSQL = countSQL
		out.CountArgs = countBinder.Args()
	}

	return out, nil
}

// assemblePlain builds the single-stage shape used when no semantic ranking
// is requested. The clamped LIMIT keeps the scan bounded even without a filter.
func assemblePlain(
	selectList []string,
	filterSQL, bboxSQL string,
	joins []catalog.Join,
	explicitRef *catalog.FieldRef,
	req *query.Request,
	binder *Binder,
) string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(selectList, ", "))
	sb.WriteString("\nFROM ")
	sb.WriteString(fromClause(joins, catalog.BaseAlias+`."id"`))

	if where := andAll(filterSQL, bboxSQL); where != "" {
		sb.WriteString("\nWHERE ")
		sb.WriteString(where)
	}

	sb.WriteString("\n")
	sb.WriteString(orderBy(explicitRef, false))
	sb.WriteString("\nLIMIT ")
	sb.WriteString(binder.Bind(req.Limit()))
	sb.WriteString(" OFFSET ")
	sb.WriteString(binder.Bind(req.Offset()))

	return sb.String()
}

// assembleSemantic builds the two-stage shape: an inner candidate stage that
// applies the cheap predicates and caps the set ordered by ANN distance, and
// an outer stage that re-joins the full row, computes the similarity score
// from the same bound vector, applies the threshold, and sorts.
func assembleSemantic(
	plan *semanticPlan,
	selectList []string,
	filterSQL, bboxSQL string,
	filterJoins, allJoins []catalog.Join,
	explicitRef *catalog.FieldRef,
	req *query.Request,
	binder *Binder,
	limits Limits,
) string {
	var sb strings.Builder

	sb.WriteString("WITH candidates AS (\n")
	sb.WriteString("  SELECT ")
	sb.WriteString(catalog.BaseAlias + `."id" AS id, (` + plan.distanceExpr() + ") AS distance\n")
	sb.WriteString("  FROM ")
	sb.WriteString(fromClause(filterJoins, catalog.BaseAlias+`."id"`))
	sb.WriteString("\n  WHERE ")
	sb.WriteString(andAll(catalog.BaseAlias+`."embedding" IS NOT NULL`, filterSQL, bboxSQL))
	sb.WriteString("\n  ORDER BY ")
	sb.WriteString(plan.distanceExpr())
	sb.WriteString("\n  LIMIT ")
	sb.WriteString(binder.Bind(limits.CandidateCap))
	sb.WriteString("\n)\n")

	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(selectList, ", "))
	sb.WriteString("\nFROM candidates c\nJOIN ")
	sb.WriteString(catalog.QuoteIdent(catalog.BaseTable) + " " + catalog.BaseAlias)
	sb.WriteString(" ON " + catalog.BaseAlias + `."id" = c.id`)
	for _, j := range allJoins {
		sb.WriteString("\n" + leftJoin(j, catalog.BaseAlias+`."id"`))
	}

	// An explicit 0 is a real cutoff: scores range over [-1, 1].
	if ms := req.MinSimilarity(); ms != nil {
		sb.WriteString("\nWHERE ")
		sb.WriteString(plan.scoreFromDistance())
		sb.WriteString(" >= ")
		sb.WriteString(binder.Bind(*ms))
	}

	sb.WriteString("\n")
	sb.WriteString(orderBy(explicitRef, true))
	sb.WriteString("\nLIMIT ")
	sb.WriteString(binder.Bind(req.Limit()))
	sb.WriteString(" OFFSET ")
	sb.WriteString(binder.Bind(req.Offset()))

	return sb.String()
}

// assembleCount builds the capped count-estimate statement with its own
// parameter list. It counts the same universe the search scans, bounded by
// the candidate cap so it can never cost more than the search itself.
func assembleCount(
	cat *catalog.Catalog,
	filterExpr sqlfilter.Expr,
	req *query.Request,
	binder *Binder,
	filterJoins []catalog.Join,
	limits Limits,
) (string, error) {
	var parts []string
	if req.HasSemantic() {
		parts = append(parts, catalog.BaseAlias+`."embedding" IS NOT NULL`)
	}
	if filterExpr != nil {
		rendered, err := sqlfilter.Render(filterExpr, cat, binder)
		if err != nil {
			return "", domain.NewFilterRejected(err.Error())
		}
		parts = append(parts, rendered)
	}
	if req.BBox() != nil {
		parts = append(parts, spatialPredicate(req.BBox(), binder))
	}

	var sb strings.Builder
	sb.WriteString("SELECT count(*) FROM (\n  SELECT 1\n  FROM ")
	sb.WriteString(fromClause(filterJoins, catalog.BaseAlias+`."id"`))
	if where := andAll(parts...); where != "" {
		sb.WriteString("\n  WHERE ")
		sb.WriteString(where)
	}
	sb.WriteString("\n  LIMIT ")
	sb.WriteString(binder.Bind(limits.CandidateCap))
	sb.WriteString("\n) t")

	return sb.String(), nil
}

// fromClause renders the base table plus LEFT JOINs for each enrichment
// table, keyed on the document id so unenriched documents still appear.
func fromClause(joins []catalog.Join, baseID string) string {
	var sb strings.Builder
	sb.WriteString(catalog.QuoteIdent(catalog.BaseTable) + " " + catalog.BaseAlias)
	for _, j := range joins {
		sb.WriteString("\n" + leftJoin(j, baseID))
	}
	return sb.String()
}

func leftJoin(j catalog.Join, baseID string) string {
	return fmt.Sprintf(`LEFT JOIN %s %s ON %s."document_id" = %s`,
		catalog.QuoteIdent(j.Table), j.Alias, j.Alias, baseID)
}

// andAll joins the non-empty predicates with AND.
func andAll(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " AND ")
}
