package sqlfilter

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// TokenKind is the type of a lexical token.
type TokenKind int

const (
	TokIdent TokenKind = iota
	TokString
	TokNumber
	TokComma
	TokLParen
	TokRParen
	TokEq
	TokNeq
	TokLt
	TokLte
	TokGt
	TokGte
	TokAnd
	TokOr
	TokNot
	TokLike
	TokILike
	TokIn
	TokIs
	TokNull
	TokTrue
	TokFalse
	TokEOF
)

func (k TokenKind) String() string {
	switch k {
	case TokIdent:
		return "identifier"
	case TokString:
		return "string"
	case TokNumber:
		return "number"
	case TokComma:
		return ","
	case TokLParen:
		return "("
	case TokRParen:
		return ")"
	case TokEq:
		return "="
	case TokNeq:
		return "!="
	case TokLt:
		return "<"
	case TokLte:
		return "<="
	case TokGt:
		return ">"
	case TokGte:
		return ">="
	case TokAnd:
		return "AND"
	case TokOr:
		return "OR"
	case TokNot:
		return "NOT"
	case TokLike:
		return "LIKE"
	case TokILike:
		return "ILIKE"
	case TokIn:
		return "IN"
	case TokIs:
		return "IS"
	case TokNull:
		return "NULL"
	case TokTrue:
		return "TRUE"
	case TokFalse:
		return "FALSE"
	case TokEOF:
		return "end of filter"
	default:
		return "unknown"
	}
}

// Token is a lexical token with its decoded value.
type Token struct {
	Kind  TokenKind
	Value string
	Num   float64
	Pos   int
}

// disallowedKeywords are identifiers rejected unconditionally: data
// definition, data modification, and subquery constructs have no place in a
// filter expression.
var disallowedKeywords = map[string]struct{}{
	"SELECT": {}, "INSERT": {}, "UPDATE": {}, "DELETE": {}, "DROP": {},
	"ALTER": {}, "CREATE": {}, "TRUNCATE": {}, "GRANT": {}, "REVOKE": {},
	"UNION": {}, "INTERSECT": {}, "EXCEPT": {}, "EXEC": {}, "EXECUTE": {},
	"COPY": {}, "MERGE": {}, "CALL": {}, "INTO": {}, "SET": {}, "WITH": {},
	"RETURNING": {}, "VACUUM": {}, "ANALYZE": {}, "EXISTS": {}, "PG_SLEEP": {},
}

// lex tokenizes a raw filter expression. Statement separators and SQL
// comments fail immediately.
func lex(input string) ([]Token, error) {
	runes := []rune(input)
	var tokens []Token
	pos := 0

	for pos < len(runes) {
		ch := runes[pos]

		if unicode.IsSpace(ch) {
			pos++
			continue
		}

		switch ch {
		case ';':
			return nil, fmt.Errorf("statement separator at position %d", pos)
		case ',':
			tokens = append(tokens, Token{Kind: TokComma, Pos: pos})
			pos++
			continue
		case '(':
			tokens = append(tokens, Token{Kind: TokLParen, Pos: pos})
			pos++
			continue
		case ')':
			tokens = append(tokens, Token{Kind: TokRParen, Pos: pos})
			pos++
			continue
		case '=':
			tokens = append(tokens, Token{Kind: TokEq, Pos: pos})
			pos++
			continue
		}

		if ch == '-' {
			if peek(runes, pos+1) == '-' {
				return nil, fmt.Errorf("SQL comment at position %d", pos)
			}
			if unicode.IsDigit(peek(runes, pos+1)) {
				tok, next, err := scanNumber(runes, pos)
				if err != nil {
					return nil, err
				}
				tokens = append(tokens, tok)
				pos = next
				continue
			}
			return nil, fmt.Errorf("unexpected character %q at position %d", ch, pos)
		}
		if ch == '/' && peek(runes, pos+1) == '*' {
			return nil, fmt.Errorf("SQL comment at position %d", pos)
		}
		if ch == '!' {
			if peek(runes, pos+1) != '=' {
				return nil, fmt.Errorf("unexpected character %q at position %d", ch, pos)
			}
			tokens = append(tokens, Token{Kind: TokNeq, Pos: pos})
			pos += 2
			continue
		}
		if ch == '<' {
			switch peek(runes, pos+1) {
			case '=':
				tokens = append(tokens, Token{Kind: TokLte, Pos: pos})
				pos += 2
			case '>':
				tokens = append(tokens, Token{Kind: TokNeq, Pos: pos})
				pos += 2
			default:
				tokens = append(tokens, Token{Kind: TokLt, Pos: pos})
				pos++
			}
			continue
		}
		if ch == '>' {
			if peek(runes, pos+1) == '=' {
				tokens = append(tokens, Token{Kind: TokGte, Pos: pos})
				pos += 2
			} else {
				tokens = append(tokens, Token{Kind: TokGt, Pos: pos})
				pos++
			}
			continue
		}
		if ch == '\'' {
			tok, next, err := scanString(runes, pos)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			pos = next
			continue
		}
		if unicode.IsDigit(ch) {
			tok, next, err := scanNumber(runes, pos)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			pos = next
			continue
		}
		if unicode.IsLetter(ch) || ch == '_' {
			tok, next, err := scanIdent(runes, pos)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			pos = next
			continue
		}

		return nil, fmt.Errorf("unexpected character %q at position %d", ch, pos)
	}

	tokens = append(tokens, Token{Kind: TokEOF, Pos: len(runes)})
	return tokens, nil
}

func peek(runes []rune, pos int) rune {
	if pos < len(runes) {
		return runes[pos]
	}
	return 0
}

// scanString reads a single-quoted SQL string with '' as the escape for a
// literal quote.
func scanString(runes []rune, start int) (Token, int, error) {
	var sb strings.Builder
	pos := start + 1 // consume opening quote

	for pos < len(runes) {
		ch := runes[pos]
		if ch == '\'' {
			if peek(runes, pos+1) == '\'' {
				sb.WriteRune('\'')
				pos += 2
				continue
			}
			return Token{Kind: TokString, Value: sb.String(), Pos: start}, pos + 1, nil
		}
		sb.WriteRune(ch)
		pos++
	}

	return Token{}, 0, fmt.Errorf("unterminated string at position %d", start)
}

func scanNumber(runes []rune, start int) (Token, int, error) {
	pos := start
	if runes[pos] == '-' {
		pos++
	}
	for pos < len(runes) && unicode.IsDigit(runes[pos]) {
		pos++
	}
	if pos < len(runes) && runes[pos] == '.' {
		pos++
		for pos < len(runes) && unicode.IsDigit(runes[pos]) {
			pos++
		}
	}

	numStr := string(runes[start:pos])
	num, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return Token{}, 0, fmt.Errorf("invalid number %q at position %d", numStr, start)
	}
	return Token{Kind: TokNumber, Value: numStr, Num: num, Pos: start}, pos, nil
}

func scanIdent(runes []rune, start int) (Token, int, error) {
	pos := start
	for pos < len(runes) && (unicode.IsLetter(runes[pos]) || unicode.IsDigit(runes[pos]) || runes[pos] == '_') {
		pos++
	}

	value := string(runes[start:pos])
	upper := strings.ToUpper(value)

	if _, bad := disallowedKeywords[upper]; bad {
		return Token{}, 0, fmt.Errorf("disallowed keyword %q at position %d", value, start)
	}

	switch upper {
	case "AND":
		return Token{Kind: TokAnd, Pos: start}, pos, nil
	case "OR":
		return Token{Kind: TokOr, Pos: start}, pos, nil
	case "NOT":
		return Token{Kind: TokNot, Pos: start}, pos, nil
	case "LIKE":
		return Token{Kind: TokLike, Pos: start}, pos, nil
	case "ILIKE":
		return Token{Kind: TokILike, Pos: start}, pos, nil
	case "IN":
		return Token{Kind: TokIn, Pos: start}, pos, nil
	case "IS":
		return Token{Kind: TokIs, Pos: start}, pos, nil
	case "NULL":
		return Token{Kind: TokNull, Pos: start}, pos, nil
	case "TRUE":
		return Token{Kind: TokTrue, Pos: start}, pos, nil
	case "FALSE":
		return Token{Kind: TokFalse, Pos: start}, pos, nil
	}

	return Token{Kind: TokIdent, Value: value, Pos: start}, pos, nil
}
