package compiler

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/pgvector/pgvector-go"

	"github.com/paperdex/paperdex/internal/catalog"
	"github.com/paperdex/paperdex/internal/domain"
	"github.com/paperdex/paperdex/internal/domain/query"
)

var testLimits = Limits{CandidateCap: 10000}

var pageLimits = query.Limits{DefaultLimit: 20, MaxLimit: 200}

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
		{
			Source: "crossref",
			Name:   "enrichment_crossref",
			Columns: []catalog.Column{
				{Name: "doi", Type: catalog.TypeText},
				{Name: "venue", Type: catalog.TypeText},
			},
		},
	}
}

// Catalogs record referenced joins, so every compilation gets a fresh one.
func newCatalog(t *testing.T, explicitSource, explicitField string) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(testTables(), explicitSource, explicitField)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return cat
}

func sim(v float64) *float64 { return &v }

func newRequest(
	t *testing.T,
	fields []string,
	filter, searchText string,
	minSimilarity *float64,
	bbox *query.BoundingBox,
	enrichment *query.EnrichmentRef,
	limit, offset int,
	withCount bool,
) *query.Request {
	t.Helper()
	req, err := query.New(fields, filter, searchText, minSimilarity, bbox, enrichment,
		limit, offset, withCount, pageLimits)
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	return &req
}

func TestCompilePlain(t *testing.T) {
	req := newRequest(t, []string{"id", "title"},
		`source = 'openalex' AND title LIKE '%network%'`, "", nil, nil, nil, 5, 0, false)

	got, err := Compile(newCatalog(t, "", ""), req, nil, testLimits)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	wantSQL := strings.Join([]string{
		`SELECT d."id" AS "id", d."title" AS "title"`,
		`FROM "documents" d`,
		`WHERE (d."source" = $1 AND d."title" LIKE $2)`,
		`ORDER BY d."published_at" DESC, d."id" ASC`,
		`LIMIT $3 OFFSET $4`,
	}, "\n")
	if got.SQL != wantSQL {
		t.Errorf("SQL mismatch:\n got: %s\nwant: %s", got.SQL, wantSQL)
	}

	wantArgs := []any{"openalex", "%network%", 5, 0}
	if !reflect.DeepEqual(got.Args, wantArgs) {
		t.Errorf("Args = %#v, want %#v", got.Args, wantArgs)
	}
	if len(got.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", got.Warnings)
	}
	wantCols := []Column{
		{Name: "id", Type: catalog.TypeText},
		{Name: "title", Type: catalog.TypeText},
	}
	if !reflect.DeepEqual(got.Columns, wantCols) {
		t.Errorf("Columns = %#v, want %#v", got.Columns, wantCols)
	}
	if got.CountSQL != "" {
		t.Errorf("unexpected count statement: %s", got.CountSQL)
	}
}

func TestCompileIdempotent(t *testing.T) {
	bb, err := query.NewBoundingBox(-1, -2, 3, 4)
	if err != nil {
		t.Fatal(err)
	}
	vec := []float32{0.1, 0.2, 0.3}

	build := func() *Compiled {
		req := newRequest(t, []string{"id", "title", "citation_count"},
			`source = 'arxiv'`, "graph neural networks", sim(0.6), &bb,
			&query.EnrichmentRef{Source: "openalex", Field: "citation_count"},
			10, 20, true)
		c, err := Compile(newCatalog(t, "openalex", "citation_count"), req, vec, testLimits)
		if err != nil {
			t.Fatalf("Compile: %v", err)
		}
		return c
	}

	a, b := build(), build()
	if a.SQL != b.SQL {
		t.Errorf("SQL not deterministic:\n%s\n---\n%s", a.SQL, b.SQL)
	}
	if !reflect.DeepEqual(a.Args, b.Args) {
		t.Errorf("Args not deterministic: %#v vs %#v", a.Args, b.Args)
	}
	if a.CountSQL != b.CountSQL || !reflect.DeepEqual(a.CountArgs, b.CountArgs) {
		t.Error("count statement not deterministic")
	}
}

func TestCompileSemanticShape(t *testing.T) {
	vec := []float32{0.5, 0.5}
	req := newRequest(t, []string{"id"}, "", "protein folding", sim(0.75), nil, nil, 0, 0, false)

	got, err := Compile(newCatalog(t, "", ""), req, vec, testLimits)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	if !strings.HasPrefix(got.SQL, "WITH candidates AS (") {
		t.Errorf("semantic query must use the candidate stage, got:\n%s", got.SQL)
	}
	// The query vector is bound once and its placeholder reused for ordering
	// and scoring.
	if n := strings.Count(got.SQL, `d."embedding" <=> $1`); n != 2 {
		t.Errorf("distance expression with $1 appears %d times, want 2:\n%s", n, got.SQL)
	}
	if _, ok := got.Args[0].(pgvector.Vector); !ok {
		t.Errorf("Args[0] = %T, want pgvector.Vector", got.Args[0])
	}
	if !strings.Contains(got.SQL, `(1 - c.distance) AS "similarity_score"`) {
		t.Errorf("missing similarity projection:\n%s", got.SQL)
	}
	if !strings.Contains(got.SQL, `WHERE (1 - c.distance) >= $3`) {
		t.Errorf("missing similarity threshold:\n%s", got.SQL)
	}
	if !strings.Contains(got.SQL, `ORDER BY "similarity_score" DESC, d."id" ASC`) {
		t.Errorf("wrong semantic ordering:\n%s", got.SQL)
	}
	if !strings.Contains(got.SQL, `d."embedding" IS NOT NULL`) {
		t.Errorf("candidate stage must exclude unembedded documents:\n%s", got.SQL)
	}

	// vector, candidate cap, threshold, limit, offset
	wantArgs := []any{pgvector.NewVector(vec), 10000, 0.75, 20, 0}
	if !reflect.DeepEqual(got.Args, wantArgs) {
		t.Errorf("Args = %#v, want %#v", got.Args, wantArgs)
	}

	last := got.Columns[len(got.Columns)-1]
	if last.Name != domain.SimilarityScoreField || last.Type != catalog.TypeNumeric {
		t.Errorf("last column = %#v, want similarity score", last)
	}
}

func TestCompileZeroThresholdBound(t *testing.T) {
	// Scores range over [-1, 1]: an explicit min_similarity of 0 still cuts
	// off anti-correlated matches and must be bound, not silently dropped.
	vec := []float32{0.5, 0.5}
	req := newRequest(t, []string{"id"}, "", "protein folding", sim(0), nil, nil, 0, 0, false)

	got, err := Compile(newCatalog(t, "", ""), req, vec, testLimits)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.Contains(got.SQL, `WHERE (1 - c.distance) >= $3`) {
		t.Errorf("zero threshold must render the cutoff:\n%s", got.SQL)
	}
	wantArgs := []any{pgvector.NewVector(vec), 10000, 0.0, 20, 0}
	if !reflect.DeepEqual(got.Args, wantArgs) {
		t.Errorf("Args = %#v, want %#v", got.Args, wantArgs)
	}

	// No threshold supplied at all: no cutoff clause.
	req = newRequest(t, []string{"id"}, "", "protein folding", nil, nil, nil, 0, 0, false)
	got, err = Compile(newCatalog(t, "", ""), req, vec, testLimits)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if strings.Contains(got.SQL, ">= $3") {
		t.Errorf("unset threshold must not render a cutoff:\n%s", got.SQL)
	}
}

func TestCompileSemanticWithoutVector(t *testing.T) {
	req := newRequest(t, []string{"id"}, "", "some query", nil, nil, nil, 0, 0, false)
	if _, err := Compile(newCatalog(t, "", ""), req, nil, testLimits); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestCompileBBox(t *testing.T) {
	bb, err := query.NewBoundingBox(-3.5, -1.25, 2.5, 4.75)
	if err != nil {
		t.Fatal(err)
	}
	req := newRequest(t, []string{"id"}, "", "", nil, &bb, nil, 0, 0, false)

	got, err := Compile(newCatalog(t, "", ""), req, nil, testLimits)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := `d."projected_embedding" <@ box(point($1, $2), point($3, $4))`
	if !strings.Contains(got.SQL, want) {
		t.Errorf("missing spatial predicate %q in:\n%s", want, got.SQL)
	}
	wantArgs := []any{-3.5, -1.25, 2.5, 4.75, 20, 0}
	if !reflect.DeepEqual(got.Args, wantArgs) {
		t.Errorf("Args = %#v, want %#v", got.Args, wantArgs)
	}
}

func TestCompileUnknownFieldDropped(t *testing.T) {
	req := newRequest(t, []string{"id", "nonexistent"}, "", "", nil, nil, nil, 0, 0, false)

	got, err := Compile(newCatalog(t, "", ""), req, nil, testLimits)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if strings.Contains(got.SQL, "nonexistent") {
		t.Errorf("dropped field leaked into SQL:\n%s", got.SQL)
	}
	if len(got.Warnings) != 1 || !strings.Contains(got.Warnings[0], `"nonexistent" not found`) {
		t.Errorf("Warnings = %v", got.Warnings)
	}
}

func TestCompileAllFieldsDroppedFallsBackToID(t *testing.T) {
	req := newRequest(t, []string{"bogus"}, "", "", nil, nil, nil, 0, 0, false)

	got, err := Compile(newCatalog(t, "", ""), req, nil, testLimits)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.Contains(got.SQL, `SELECT d."id" AS "id"`) {
		t.Errorf("expected id fallback projection:\n%s", got.SQL)
	}
	if len(got.Warnings) != 2 {
		t.Errorf("Warnings = %v, want drop warning plus fallback notice", got.Warnings)
	}
}

func TestCompileAmbiguousFieldDropped(t *testing.T) {
	// "venue" exists on both enrichment tables.
	req := newRequest(t, []string{"id", "venue"}, "", "", nil, nil, nil, 0, 0, false)

	got, err := Compile(newCatalog(t, "", ""), req, nil, testLimits)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if strings.Contains(got.SQL, "venue") {
		t.Errorf("ambiguous field leaked into SQL:\n%s", got.SQL)
	}
	if len(got.Warnings) != 1 || !strings.Contains(got.Warnings[0], "ambiguous") {
		t.Errorf("Warnings = %v", got.Warnings)
	}
}

func TestCompileExplicitEnrichmentWinsAmbiguity(t *testing.T) {
	req := newRequest(t, []string{"id", "venue"}, "", "", nil, nil,
		&query.EnrichmentRef{Source: "crossref", Field: "venue"}, 0, 0, false)

	got, err := Compile(newCatalog(t, "crossref", "venue"), req, nil, testLimits)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.Contains(got.SQL, `e_crossref."venue" AS "venue"`) {
		t.Errorf("explicit field not projected from its source:\n%s", got.SQL)
	}
	if !strings.Contains(got.SQL, `ORDER BY (e_crossref."venue" IS NOT NULL) DESC, d."published_at" DESC, d."id" ASC`) {
		t.Errorf("explicit enrichment must sort null values last:\n%s", got.SQL)
	}
	if n := strings.Count(got.SQL, `LEFT JOIN "enrichment_crossref" e_crossref`); n != 1 {
		t.Errorf("enrichment table joined %d times, want 1:\n%s", n, got.SQL)
	}
}

func TestCompileEnrichmentJoinOnce(t *testing.T) {
	// Same enrichment table referenced by both projection and filter.
	req := newRequest(t, []string{"id", "citation_count"},
		`citation_count > 100`, "", nil, nil, nil, 0, 0, false)

	got, err := Compile(newCatalog(t, "", ""), req, nil, testLimits)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	join := `LEFT JOIN "enrichment_openalex" e_openalex ON e_openalex."document_id" = d."id"`
	if n := strings.Count(got.SQL, join); n != 1 {
		t.Errorf("enrichment join appears %d times, want 1:\n%s", n, got.SQL)
	}
	if !strings.Contains(got.SQL, `e_openalex."citation_count" > $1`) {
		t.Errorf("filter not rendered against the enrichment alias:\n%s", got.SQL)
	}
}

func TestCompileSemanticFilterJoinPerStage(t *testing.T) {
	// A filter on an enrichment field must be joined in the candidate stage
	// so the cap applies to the filtered set, and again in the outer stage
	// for the projection.
	vec := []float32{1, 0}
	req := newRequest(t, []string{"id", "citation_count"},
		`citation_count > 50`, "transformers", nil, nil, nil, 0, 0, false)

	got, err := Compile(newCatalog(t, "", ""), req, vec, testLimits)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if n := strings.Count(got.SQL, `LEFT JOIN "enrichment_openalex" e_openalex`); n != 2 {
		t.Errorf("enrichment join appears %d times, want one per stage:\n%s", n, got.SQL)
	}
	inner := got.SQL[:strings.Index(got.SQL, ")\nSELECT")]
	if !strings.Contains(inner, `e_openalex."citation_count" > $2`) {
		t.Errorf("filter must apply inside the candidate stage:\n%s", got.SQL)
	}
}

func TestCompileRejectedFilter(t *testing.T) {
	for _, filter := range []string{
		`DROP TABLE documents`,
		`source = 'x'; SELECT pg_sleep(10)`,
		`source = 'x' -- comment`,
		`title LIKE (SELECT title FROM documents)`,
		`embedding = 'x'`,
	} {
		t.Run(filter, func(t *testing.T) {
			req := newRequest(t, []string{"id"}, filter, "", nil, nil, nil, 0, 0, false)
			got, err := Compile(newCatalog(t, "", ""), req, nil, testLimits)
			if !errors.Is(err, domain.ErrInvalidFilter) {
				t.Errorf("err = %v, want ErrInvalidFilter", err)
			}
			if got != nil {
				t.Error("rejected filter must not produce a statement")
			}
		})
	}
}

func TestCompileNoLiteralLeakage(t *testing.T) {
	req := newRequest(t, []string{"id"},
		`source = 'openalex' AND citation_count > 42 AND venue IS NULL OR doi IN ('a', 'b')`,
		"", nil, nil, nil, 0, 0, false)

	got, err := Compile(newCatalog(t, "openalex", "venue"), req, nil, testLimits)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if strings.ContainsAny(got.SQL, "'") {
		t.Errorf("string literal leaked into SQL:\n%s", got.SQL)
	}
	if strings.Contains(got.SQL, "42") {
		t.Errorf("numeric literal leaked into SQL:\n%s", got.SQL)
	}
}

func TestCompileCount(t *testing.T) {
	req := newRequest(t, []string{"id"}, `source = 'arxiv'`, "", nil, nil, nil, 0, 0, true)

	got, err := Compile(newCatalog(t, "", ""), req, nil, testLimits)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	wantSQL := strings.Join([]string{
		`SELECT count(*) FROM (`,
		`  SELECT 1`,
		`  FROM "documents" d`,
		`  WHERE d."source" = $1`,
		`  LIMIT $2`,
		`) t`,
	}, "\n")
	if got.CountSQL != wantSQL {
		t.Errorf("CountSQL mismatch:\n got: %s\nwant: %s", got.CountSQL, wantSQL)
	}
	wantArgs := []any{"arxiv", 10000}
	if !reflect.DeepEqual(got.CountArgs, wantArgs) {
		t.Errorf("CountArgs = %#v, want %#v", got.CountArgs, wantArgs)
	}
}

func TestCompileSimilarityScoreFieldRequested(t *testing.T) {
	// Requesting the score column explicitly must not duplicate it.
	vec := []float32{1}
	req := newRequest(t, []string{"id", "similarity_score"}, "", "q", nil, nil, nil, 0, 0, false)

	got, err := Compile(newCatalog(t, "", ""), req, vec, testLimits)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if n := strings.Count(got.SQL, `"similarity_score"`); n != 2 { // projection + ORDER BY
		t.Errorf("similarity score referenced %d times, want 2:\n%s", n, got.SQL)
	}
	if len(got.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", got.Warnings)
	}

	// Without a search query the score does not exist and is dropped.
	req = newRequest(t, []string{"id", "similarity_score"}, "", "", nil, nil, nil, 0, 0, false)
	got, err = Compile(newCatalog(t, "", ""), req, nil, testLimits)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(got.Warnings) != 1 || !strings.Contains(got.Warnings[0], "requires a search query") {
		t.Errorf("Warnings = %v", got.Warnings)
	}
}
