package sqlfilter

import (
	"strings"
	"testing"
)

func TestParse_Accepted(t *testing.T) {
	tests := []string{
		"source = 'openalex'",
		"source = 'openalex' AND title LIKE '%network%'",
		"cited_by_count >= 100",
		"published_at < '2020-01-01'",
		"(source = 'arxiv' OR source = 'openalex') AND cited_by_count > 10",
		"title ILIKE '%graph%' OR abstract ILIKE '%graph%'",
		"source IN ('arxiv', 'openalex', 'pubmed')",
		"cited_by_count NOT IN (0, 1)",
		"abstract IS NOT NULL",
		"abstract IS NULL OR title != ''",
		"retracted = FALSE",
		"score <= -0.5",
		"title NOT LIKE '%retract%'",
		"source <> 'scopus'",
		"name = 'O''Brien'",
	}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			if _, err := Parse(in); err != nil {
				t.Fatalf("Parse(%q): %v", in, err)
			}
		})
	}
}

func TestParse_Rejected(t *testing.T) {
	tests := []struct {
		input  string
		reason string
	}{
		{"DROP TABLE documents", "disallowed keyword"},
		{"source = 'x'; DELETE FROM documents", "statement separator"},
		{"source = 'x' -- comment", "SQL comment"},
		{"source = 'x' /* c */", "SQL comment"},
		{"id IN (SELECT id FROM documents)", "disallowed keyword"},
		{"1 = 1", "expected field name"},
		{"title =", "expected literal"},
		{"title = title2", "expected literal value, got identifier"},
		{"title LIKE 5", "requires a string pattern"},
		{"source IN ()", "expected literal"},
		{"(source = 'x'", "expected ')'"},
		{"source = 'unterminated", "unterminated string"},
		{"title # 'x'", "unexpected character"},
		{"NOT title", "expected field name"},
		{"pg_sleep(10) = 1", "disallowed keyword"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Parse(tt.input)
			if err == nil {
				t.Fatalf("Parse(%q) should fail", tt.input)
			}
			if !strings.Contains(err.Error(), tt.reason) {
				t.Errorf("Parse(%q) error = %q, want it to mention %q", tt.input, err, tt.reason)
			}
		})
	}
}

func TestParse_DepthLimit(t *testing.T) {
	deep := strings.Repeat("(", MaxDepth+1) + "a = 1" + strings.Repeat(")", MaxDepth+1)
	if _, err := Parse(deep); err == nil {
		t.Fatal("expected nesting depth error")
	}
}

func TestParse_InListLimit(t *testing.T) {
	vals := make([]string, MaxInValues+1)
	for i := range vals {
		vals[i] = "1"
	}
	in := "a IN (" + strings.Join(vals, ",") + ")"
	if _, err := Parse(in); err == nil {
		t.Fatal("expected IN list size error")
	}
}

func TestParse_Precedence(t *testing.T) {
	// a = 1 OR b = 2 AND c = 3 parses as a = 1 OR (b = 2 AND c = 3)
	expr, err := Parse("a = 1 OR b = 2 AND c = 3")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	or, ok := expr.(Or)
	if !ok {
		t.Fatalf("top node = %T, want Or", expr)
	}
	if _, ok := or.Right.(And); !ok {
		t.Errorf("right of OR = %T, want And", or.Right)
	}
}

func TestParse_StringEscape(t *testing.T) {
	expr, err := Parse("name = 'O''Brien'")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cmp := expr.(Compare)
	if cmp.Value.Str != "O'Brien" {
		t.Errorf("literal = %q, want O'Brien", cmp.Value.Str)
	}
}
