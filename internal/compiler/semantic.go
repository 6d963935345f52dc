package compiler

import (
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/paperdex/paperdex/internal/catalog"
)

// semanticPlan holds the pieces of a semantic (ANN) query: one bound query
// vector whose placeholder is reused for both the distance ordering and the
// projected similarity score, so the two always agree.
type semanticPlan struct {
	vectorPlaceholder string
}

// newSemanticPlan binds the query vector exactly once.
func newSemanticPlan(vec []float32, binder *Binder) *semanticPlan {
	return &semanticPlan{vectorPlaceholder: binder.Bind(pgvector.NewVector(vec))}
}

// distanceExpr is the cosine-distance expression used to order the inner
// candidate stage.
func (p *semanticPlan) distanceExpr() string {
	return fmt.Sprintf("%s.\"embedding\" <=> %s", catalog.BaseAlias, p.vectorPlaceholder)
}

// scoreFromDistance converts the candidate stage's distance column into a
// similarity score in the outer stage.
func (p *semanticPlan) scoreFromDistance() string {
	return "(1 - c.distance)"
}
