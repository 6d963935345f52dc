package sqlfilter

import "fmt"

// MaxDepth bounds parenthesis nesting so a pathological filter cannot blow
// the stack or produce an unboundedly deep statement.
const MaxDepth = 32

// MaxInValues bounds the size of an IN list.
const MaxInValues = 100

// Parse parses a raw filter expression into a typed expression tree.
// The grammar is: disjunctions/conjunctions of atomic comparisons
// (= != <> < > <= >= LIKE ILIKE IN IS [NOT] NULL) with parenthesized grouping.
func Parse(input string) (Expr, error) {
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	expr, err := p.parseOr(0)
	if err != nil {
		return nil, err
	}
	if !p.match(TokEOF) {
		return nil, fmt.Errorf("unexpected %s at position %d", p.current().Kind, p.current().Pos)
	}
	return expr, nil
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) parseOr(depth int) (Expr, error) {
	left, err := p.parseAnd(depth)
	if err != nil {
		return nil, err
	}

	for p.match(TokOr) {
		p.advance()
		right, err := p.parseAnd(depth)
		if err != nil {
			return nil, err
		}
		left = Or{Left: left, Right: right}
	}

	return left, nil
}

func (p *parser) parseAnd(depth int) (Expr, error) {
	left, err := p.parsePrimary(depth)
	if err != nil {
		return nil, err
	}

	for p.match(TokAnd) {
		p.advance()
		right, err := p.parsePrimary(depth)
		if err != nil {
			return nil, err
		}
		left = And{Left: left, Right: right}
	}

	return left, nil
}

func (p *parser) parsePrimary(depth int) (Expr, error) {
	if p.match(TokLParen) {
		if depth+1 > MaxDepth {
			return nil, fmt.Errorf("filter nesting exceeds %d levels", MaxDepth)
		}
		p.advance()
		expr, err := p.parseOr(depth + 1)
		if err != nil {
			return nil, err
		}
		if !p.match(TokRParen) {
			return nil, fmt.Errorf("expected ')', got %s at position %d", p.current().Kind, p.current().Pos)
		}
		p.advance()
		return expr, nil
	}

	return p.parseComparison()
}

func (p *parser) parseComparison() (Expr, error) {
	if !p.match(TokIdent) {
		return nil, fmt.Errorf("expected field name, got %s at position %d", p.current().Kind, p.current().Pos)
	}
	field := p.current().Value
	p.advance()

	switch p.current().Kind {
	case TokEq, TokNeq, TokLt, TokLte, TokGt, TokGte:
		op := compareOp(p.current().Kind)
		p.advance()
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		return Compare{Field: field, Op: op, Value: lit}, nil

	case TokLike, TokILike:
		ci := p.current().Kind == TokILike
		p.advance()
		if !p.match(TokString) {
			return nil, fmt.Errorf("%s requires a string pattern at position %d",
				map[bool]string{true: "ILIKE", false: "LIKE"}[ci], p.current().Pos)
		}
		pattern := p.current().Value
		p.advance()
		return Like{Field: field, Pattern: pattern, CaseInsensitive: ci}, nil

	case TokIn:
		p.advance()
		return p.parseInList(field, false)

	case TokIs:
		p.advance()
		negated := false
		if p.match(TokNot) {
			negated = true
			p.advance()
		}
		if !p.match(TokNull) {
			return nil, fmt.Errorf("expected NULL after IS at position %d", p.current().Pos)
		}
		p.advance()
		return IsNull{Field: field, Negated: negated}, nil

	case TokNot:
		p.advance()
		switch p.current().Kind {
		case TokLike, TokILike:
			ci := p.current().Kind == TokILike
			p.advance()
			if !p.match(TokString) {
				return nil, fmt.Errorf("NOT LIKE requires a string pattern at position %d", p.current().Pos)
			}
			pattern := p.current().Value
			p.advance()
			return Like{Field: field, Pattern: pattern, CaseInsensitive: ci, Negated: true}, nil
		case TokIn:
			p.advance()
			return p.parseInList(field, true)
		default:
			return nil, fmt.Errorf("expected LIKE, ILIKE or IN after NOT at position %d", p.current().Pos)
		}

	default:
		return nil, fmt.Errorf("expected operator after field %q, got %s at position %d",
			field, p.current().Kind, p.current().Pos)
	}
}

func (p *parser) parseInList(field string, negated bool) (Expr, error) {
	if !p.match(TokLParen) {
		return nil, fmt.Errorf("expected '(' after IN at position %d", p.current().Pos)
	}
	p.advance()

	var values []Literal
	for {
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		values = append(values, lit)
		if len(values) > MaxInValues {
			return nil, fmt.Errorf("IN list exceeds %d values", MaxInValues)
		}

		if p.match(TokComma) {
			p.advance()
			continue
		}
		break
	}

	if !p.match(TokRParen) {
		return nil, fmt.Errorf("expected ')' to close IN list at position %d", p.current().Pos)
	}
	p.advance()

	return In{Field: field, Values: values, Negated: negated}, nil
}

func (p *parser) parseLiteral() (Literal, error) {
	switch p.current().Kind {
	case TokString:
		lit := Literal{Kind: LitString, Str: p.current().Value}
		p.advance()
		return lit, nil
	case TokNumber:
		lit := Literal{Kind: LitNumber, Num: p.current().Num}
		p.advance()
		return lit, nil
	case TokTrue:
		p.advance()
		return Literal{Kind: LitBool, Bool: true}, nil
	case TokFalse:
		p.advance()
		return Literal{Kind: LitBool, Bool: false}, nil
	case TokIdent:
		// A bare identifier on the right-hand side would be a column
		// reference or function call; only literals are allowed.
		return Literal{}, fmt.Errorf("expected literal value, got identifier %q at position %d",
			p.current().Value, p.current().Pos)
	default:
		return Literal{}, fmt.Errorf("expected literal value, got %s at position %d",
			p.current().Kind, p.current().Pos)
	}
}

func compareOp(k TokenKind) CompareOp {
	switch k {
	case TokEq:
		return OpEq
	case TokNeq:
		return OpNeq
	case TokLt:
		return OpLt
	case TokLte:
		return OpLte
	case TokGt:
		return OpGt
	default:
		return OpGte
	}
}

func (p *parser) current() Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return Token{Kind: TokEOF}
}

func (p *parser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

func (p *parser) match(kind TokenKind) bool {
	return p.current().Kind == kind
}
