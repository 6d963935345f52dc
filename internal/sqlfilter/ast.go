// Package sqlfilter validates untrusted filter expressions against a
// whitelist grammar and renders them as parameterized SQL fragments.
// Literal values never enter the statement text; only catalog-resolved
// column identifiers and whitelisted operators are substituted structurally.
package sqlfilter

// Expr is a node of the validated filter expression tree.
type Expr interface {
	isExpr()
}

// And is the conjunction of two expressions.
type And struct {
	Left  Expr
	Right Expr
}

func (And) isExpr() {}

// Or is the disjunction of two expressions.
type Or struct {
	Left  Expr
	Right Expr
}

func (Or) isExpr() {}

// CompareOp is a whitelisted comparison operator.
type CompareOp int

const (
	OpEq CompareOp = iota
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
)

func (op CompareOp) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	default:
		return "?"
	}
}

// Compare is an atomic comparison between a field and a literal.
type Compare struct {
	Field string
	Op    CompareOp
	Value Literal
}

func (Compare) isExpr() {}

// Like is a LIKE or ILIKE pattern match.
type Like struct {
	Field           string
	Pattern         string
	CaseInsensitive bool
	Negated         bool
}

func (Like) isExpr() {}

// In is a membership test over a literal list.
type In struct {
	Field   string
	Values  []Literal
	Negated bool
}

func (In) isExpr() {}

// IsNull is an IS NULL / IS NOT NULL test.
type IsNull struct {
	Field   string
	Negated bool
}

func (IsNull) isExpr() {}

// LiteralKind classifies a literal value.
type LiteralKind int

const (
	LitString LiteralKind = iota
	LitNumber
	LitBool
)

// Literal is a typed literal value bound as a parameter at render time.
type Literal struct {
	Kind LiteralKind
	Str  string
	Num  float64
	Bool bool
}

// Value returns the literal as a bindable parameter value.
func (l Literal) Value() any {
	switch l.Kind {
	case LitNumber:
		return l.Num
	case LitBool:
		return l.Bool
	default:
		return l.Str
	}
}
