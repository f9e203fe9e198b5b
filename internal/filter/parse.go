package filter

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/jeandet/tscat/internal/model"
	"github.com/jeandet/tscat/internal/value"
)

// Parse parses the text form of a predicate.
//
// Grammar (keywords are case-insensitive):
//
//	or_expr   = and_expr ( "or" and_expr )*
//	and_expr  = not_expr ( "and" not_expr )*
//	not_expr  = "not" not_expr | "(" or_expr ")" | primary
//	primary   = "has" "(" field ")"
//	          | literal "in" field
//	          | field "in" "[" literal ( "," literal )* "]"
//	          | field op literal
//	          | field "~" string
//	          | "true" | "false"
//	op        = "==" | "!=" | "<" | "<=" | ">" | ">="
//	literal   = string | number | "true" | "false" | "@" rfc3339 | "[" string, ... "]"
//	field     = identifier | "`" any text "`"
//
// Strings use single or double quotes. Numbers without a fraction or
// exponent are ints. An empty string parses to a nil predicate.
//
// Errors are *model.ValidationError.
func Parse(text string) (Predicate, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	tokens, err := tokenize(text)
	if err != nil {
		return nil, parseError(err)
	}
	p := &parser{tokens: tokens}
	node, err := p.parseOr()
	if err != nil {
		return nil, parseError(err)
	}
	if p.peek().kind != tokEOF {
		return nil, parseError(fmt.Errorf("unexpected %q at position %d", p.peek().val, p.peek().pos))
	}
	return node, nil
}

// MustParse is like Parse but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustParse(text string) Predicate {
	p, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return p
}

func parseError(err error) error {
	return &model.ValidationError{Field: "filter", Message: err.Error()}
}

// -----------------------------------------------------------------------
// Tokenizer
// -----------------------------------------------------------------------

type tokenKind int

const (
	tokIdent  tokenKind = iota // identifier or keyword
	tokQuoted                  // `quoted identifier`, never a keyword
	tokOp                      // ==, !=, <, <=, >, >=, ~
	tokString                  // '...' or "..."
	tokNumber                  // 42 | -3.5 | 1e9
	tokTime                    // @2020-01-01T00:00:00Z
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokComma
	tokEOF
)

type token struct {
	kind tokenKind
	val  string
	pos  int
}

func tokenize(expr string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(expr) {
		ch := expr[i]
		if unicode.IsSpace(rune(ch)) {
			i++
			continue
		}
		switch ch {
		case '(':
			tokens = append(tokens, token{tokLParen, "(", i})
			i++
			continue
		case ')':
			tokens = append(tokens, token{tokRParen, ")", i})
			i++
			continue
		case '[':
			tokens = append(tokens, token{tokLBracket, "[", i})
			i++
			continue
		case ']':
			tokens = append(tokens, token{tokRBracket, "]", i})
			i++
			continue
		case ',':
			tokens = append(tokens, token{tokComma, ",", i})
			i++
			continue
		case '~':
			tokens = append(tokens, token{tokOp, "~", i})
			i++
			continue
		}

		// Operators.
		if ch == '=' || ch == '!' || ch == '<' || ch == '>' {
			if i+1 < len(expr) && expr[i+1] == '=' {
				tokens = append(tokens, token{tokOp, expr[i : i+2], i})
				i += 2
				continue
			}
			if ch == '=' || ch == '!' {
				return nil, fmt.Errorf("unexpected character %q at position %d", ch, i)
			}
			tokens = append(tokens, token{tokOp, string(ch), i})
			i++
			continue
		}

		// String literals.
		if ch == '"' || ch == '\'' {
			s, next, err := scanQuoted(expr, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{tokString, s, i})
			i = next
			continue
		}

		// Quoted identifiers.
		if ch == '`' {
			j := strings.IndexByte(expr[i+1:], '`')
			if j < 0 {
				return nil, fmt.Errorf("unterminated field name starting at position %d", i)
			}
			tokens = append(tokens, token{tokQuoted, expr[i+1 : i+1+j], i})
			i += j + 2
			continue
		}

		// Timestamps.
		if ch == '@' {
			j := i + 1
			for j < len(expr) && !unicode.IsSpace(rune(expr[j])) && !strings.ContainsRune("()[],", rune(expr[j])) {
				j++
			}
			tokens = append(tokens, token{tokTime, expr[i+1 : j], i})
			i = j
			continue
		}

		// Numbers.
		if isDigit(ch) || (ch == '-' && i+1 < len(expr) && (isDigit(expr[i+1]) || expr[i+1] == '.')) || (ch == '.' && i+1 < len(expr) && isDigit(expr[i+1])) {
			j := i + 1
			for j < len(expr) {
				c := expr[j]
				if isDigit(c) || c == '.' || c == 'e' || c == 'E' {
					j++
					continue
				}
				if (c == '+' || c == '-') && (expr[j-1] == 'e' || expr[j-1] == 'E') {
					j++
					continue
				}
				break
			}
			tokens = append(tokens, token{tokNumber, expr[i:j], i})
			i = j
			continue
		}

		// Identifiers and keywords.
		if r, size := utf8.DecodeRuneInString(expr[i:]); isIdentStart(r) {
			j := i + size
			for j < len(expr) {
				r, size := utf8.DecodeRuneInString(expr[j:])
				if !isIdentPart(r) {
					break
				}
				j += size
			}
			tokens = append(tokens, token{tokIdent, expr[i:j], i})
			i = j
			continue
		}

		return nil, fmt.Errorf("unexpected character %q at position %d", ch, i)
	}
	tokens = append(tokens, token{tokEOF, "", len(expr)})
	return tokens, nil
}

// scanQuoted reads a string literal starting at expr[start]. A backslash
// escapes a following quote or backslash and is kept verbatim otherwise, so
// regular expressions such as '\d+' need no doubling.
func scanQuoted(expr string, start int) (string, int, error) {
	quote := expr[start]
	var b strings.Builder
	j := start + 1
	for j < len(expr) {
		c := expr[j]
		switch {
		case c == '\\' && j+1 < len(expr) && (expr[j+1] == '\\' || expr[j+1] == '\'' || expr[j+1] == '"'):
			b.WriteByte(expr[j+1])
			j += 2
		case c == quote:
			return b.String(), j + 1, nil
		default:
			b.WriteByte(c)
			j++
		}
	}
	return "", 0, fmt.Errorf("unterminated string starting at position %d", start)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(r rune) bool { return r == '_' || unicode.IsLetter(r) }

func isIdentPart(r rune) bool { return r == '_' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r) }

// -----------------------------------------------------------------------
// Recursive-descent parser
// -----------------------------------------------------------------------

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) peekAt(offset int) token {
	if p.pos+offset >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+offset]
}

func (p *parser) consume() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(kind tokenKind, val string) error {
	t := p.peek()
	if t.kind != kind {
		if t.kind == tokEOF {
			return fmt.Errorf("expected %q but reached end of input", val)
		}
		return fmt.Errorf("expected %q but got %q at position %d", val, t.val, t.pos)
	}
	p.consume()
	return nil
}

// isKeyword reports whether t is the unquoted keyword kw.
func isKeyword(t token, kw string) bool {
	return t.kind == tokIdent && strings.EqualFold(t.val, kw)
}

func (p *parser) parseOr() (Predicate, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	if !isKeyword(p.peek(), "or") {
		return left, nil
	}
	preds := []Predicate{left}
	for isKeyword(p.peek(), "or") {
		p.consume()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		preds = append(preds, right)
	}
	return &Or{Predicates: preds}, nil
}

func (p *parser) parseAnd() (Predicate, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	if !isKeyword(p.peek(), "and") {
		return left, nil
	}
	preds := []Predicate{left}
	for isKeyword(p.peek(), "and") {
		p.consume()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		preds = append(preds, right)
	}
	return &And{Predicates: preds}, nil
}

func (p *parser) parseNot() (Predicate, error) {
	if isKeyword(p.peek(), "not") {
		p.consume()
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Negation{Predicate: inner}, nil
	}
	if p.peek().kind == tokLParen {
		p.consume()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Predicate, error) {
	t := p.peek()

	// has(field)
	if isKeyword(t, "has") && p.peekAt(1).kind == tokLParen {
		p.consume()
		p.consume()
		field, err := p.parseField()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return &Has{Field: field}, nil
	}

	// Bare true / false.
	if (isKeyword(t, "true") || isKeyword(t, "false")) && !isKeyword(p.peekAt(1), "in") {
		p.consume()
		if strings.EqualFold(t.val, "true") {
			return &And{}, nil
		}
		return &Or{}, nil
	}

	// literal in field
	if p.startsLiteral(t) {
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		if !isKeyword(p.peek(), "in") {
			return nil, fmt.Errorf("expected \"in\" after literal at position %d", p.peek().pos)
		}
		p.consume()
		field, err := p.parseField()
		if err != nil {
			return nil, err
		}
		return &Member{Value: lit, Field: field}, nil
	}

	field, err := p.parseField()
	if err != nil {
		return nil, err
	}

	t = p.peek()
	switch {
	case isKeyword(t, "in"):
		p.consume()
		values, err := p.parseList()
		if err != nil {
			return nil, err
		}
		return &InSet{Field: field, Values: values}, nil
	case t.kind == tokOp && t.val == "~":
		p.consume()
		pat := p.consume()
		if pat.kind != tokString {
			return nil, fmt.Errorf("expected pattern string after ~ at position %d", pat.pos)
		}
		m := field.Matches(pat.val)
		if m.err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %v", pat.val, m.err)
		}
		return m, nil
	case t.kind == tokOp:
		p.consume()
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		return &Compare{Field: field, Op: Op(t.val), Value: lit}, nil
	case t.kind == tokEOF:
		return nil, fmt.Errorf("expected operator after field %q but reached end of input", field)
	default:
		return nil, fmt.Errorf("expected operator after field %q, got %q at position %d", field, t.val, t.pos)
	}
}

func (p *parser) startsLiteral(t token) bool {
	switch t.kind {
	case tokString, tokNumber, tokTime:
		return true
	}
	return isKeyword(t, "true") || isKeyword(t, "false")
}

func (p *parser) parseField() (Field, error) {
	t := p.consume()
	switch t.kind {
	case tokIdent, tokQuoted:
		if t.val == "" {
			return "", fmt.Errorf("empty field name at position %d", t.pos)
		}
		return Field(t.val), nil
	case tokEOF:
		return "", fmt.Errorf("expected field name but reached end of input")
	default:
		return "", fmt.Errorf("expected field name, got %q at position %d", t.val, t.pos)
	}
}

// parseList parses "[" literal ( "," literal )* "]". An empty list is allowed.
func (p *parser) parseList() ([]value.Value, error) {
	if err := p.expect(tokLBracket, "["); err != nil {
		return nil, err
	}
	var values []value.Value
	if p.peek().kind == tokRBracket {
		p.consume()
		return values, nil
	}
	for {
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		values = append(values, lit)
		if p.peek().kind == tokComma {
			p.consume()
			continue
		}
		if err := p.expect(tokRBracket, "]"); err != nil {
			return nil, err
		}
		return values, nil
	}
}

func (p *parser) parseLiteral() (value.Value, error) {
	t := p.peek()
	switch {
	case t.kind == tokString:
		p.consume()
		return value.From(t.val)
	case t.kind == tokNumber:
		p.consume()
		return parseNumber(t)
	case t.kind == tokTime:
		p.consume()
		ts, err := time.Parse(time.RFC3339Nano, t.val)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp %q at position %d", t.val, t.pos)
		}
		return value.NewTime(ts)
	case isKeyword(t, "true"):
		p.consume()
		return value.Bool(true), nil
	case isKeyword(t, "false"):
		p.consume()
		return value.Bool(false), nil
	case t.kind == tokLBracket:
		items, err := p.parseList()
		if err != nil {
			return nil, err
		}
		set := value.NewSet()
		for _, item := range items {
			s, ok := item.(value.String)
			if !ok {
				return nil, fmt.Errorf("set literal at position %d may only hold strings", t.pos)
			}
			set[string(s)] = struct{}{}
		}
		return set, nil
	case t.kind == tokEOF:
		return nil, fmt.Errorf("expected literal but reached end of input")
	default:
		return nil, fmt.Errorf("expected literal, got %q at position %d", t.val, t.pos)
	}
}

func parseNumber(t token) (value.Value, error) {
	if !strings.ContainsAny(t.val, ".eE") {
		n, err := strconv.ParseInt(t.val, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q at position %d", t.val, t.pos)
		}
		return value.Int(n), nil
	}
	f, err := strconv.ParseFloat(t.val, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q at position %d", t.val, t.pos)
	}
	return value.From(f)
}
