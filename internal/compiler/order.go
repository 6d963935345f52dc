package compiler

import (
	"strings"

	"github.com/paperdex/paperdex/internal/catalog"
	"github.com/paperdex/paperdex/internal/domain"
)

// orderBy composes the deterministic ORDER BY clause:
//  1. rows with a non-null explicit enrichment value first, so sparsely
//     enriched sources do not page out to all-null results;
//  2. similarity descending when semantic search is active, otherwise
//     primary date descending;
//  3. document id ascending as the tie-break.
func orderBy(explicitField *catalog.FieldRef, semantic bool) string {
	var parts []string

	if explicitField != nil {
		parts = append(parts, "("+explicitField.Qualified+" IS NOT NULL) DESC")
	}
	if semantic {
		parts = append(parts, quotedName(domain.SimilarityScoreField)+" DESC")
	} else {
		parts = append(parts, catalog.BaseAlias+`."published_at" DESC`)
	}
	parts = append(parts, catalog.BaseAlias+`."id" ASC`)

	return "ORDER BY " + strings.Join(parts, ", ")
}

func quotedName(name string) string { return `"` + name + `"` }
