package sqlfilter

import (
	"fmt"
	"strings"

	"github.com/paperdex/paperdex/internal/catalog"
)

// ParamBinder allocates a placeholder for a literal value and records it in
// the ordered parameter list.
type ParamBinder interface {
	Bind(v any) string
}

// FieldResolver resolves bare field names; the catalog implements it.
type FieldResolver interface {
	Resolve(name string) (catalog.FieldRef, bool)
	Ambiguous(name string) ([]string, bool)
}

// Render validates the expression tree node-by-node against the resolver and
// renders it to a parameterized SQL fragment. Every literal goes through the
// binder; the returned fragment contains only qualified column references,
// whitelisted operators, and placeholders.
func Render(expr Expr, fields FieldResolver, binder ParamBinder) (string, error) {
	switch e := expr.(type) {
	case And:
		left, err := Render(e.Left, fields, binder)
		if err != nil {
			return "", err
		}
		right, err := Render(e.Right, fields, binder)
		if err != nil {
			return "", err
		}
		return "(" + left + " AND " + right + ")", nil

	case Or:
		left, err := Render(e.Left, fields, binder)
		if err != nil {
			return "", err
		}
		right, err := Render(e.Right, fields, binder)
		if err != nil {
			return "", err
		}
		return "(" + left + " OR " + right + ")", nil

	case Compare:
		ref, err := resolveFilterField(e.Field, fields)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", ref.Qualified, e.Op, binder.Bind(e.Value.Value())), nil

	case Like:
		ref, err := resolveFilterField(e.Field, fields)
		if err != nil {
			return "", err
		}
		if ref.Type != catalog.TypeText {
			return "", fmt.Errorf("LIKE requires a text field, %q is %s", e.Field, ref.Type)
		}
		op := "LIKE"
		if e.CaseInsensitive {
			op = "ILIKE"
		}
		if e.Negated {
			op = "NOT " + op
		}
		return fmt.Sprintf("%s %s %s", ref.Qualified, op, binder.Bind(e.Pattern)), nil

	case In:
		ref, err := resolveFilterField(e.Field, fields)
		if err != nil {
			return "", err
		}
		placeholders := make([]string, 0, len(e.Values))
		for _, v := range e.Values {
			placeholders = append(placeholders, binder.Bind(v.Value()))
		}
		op := "IN"
		if e.Negated {
			op = "NOT IN"
		}
		return fmt.Sprintf("%s %s (%s)", ref.Qualified, op, strings.Join(placeholders, ", ")), nil

	case IsNull:
		ref, err := resolveFilterField(e.Field, fields)
		if err != nil {
			return "", err
		}
		if e.Negated {
			return ref.Qualified + " IS NOT NULL", nil
		}
		return ref.Qualified + " IS NULL", nil

	default:
		return "", fmt.Errorf("unsupported filter node %T", expr)
	}
}

// resolveFilterField resolves a field for use inside a filter. Vector and
// point columns are reserved for the semantic and spatial planners.
func resolveFilterField(name string, fields FieldResolver) (catalog.FieldRef, error) {
	ref, ok := fields.Resolve(name)
	if !ok {
		if sources, amb := fields.Ambiguous(name); amb {
			return catalog.FieldRef{}, fmt.Errorf(
				"field %q is ambiguous across enrichment sources %s; name one explicitly",
				name, strings.Join(sources, ", "))
		}
		return catalog.FieldRef{}, fmt.Errorf("unknown field %q", name)
	}
	if ref.Type == catalog.TypeVector || ref.Type == catalog.TypePoint {
		return catalog.FieldRef{}, fmt.Errorf("field %q (%s) cannot be filtered directly", name, ref.Type)
	}
	return ref, nil
}
