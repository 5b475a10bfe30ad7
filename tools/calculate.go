package tools

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/developmentseed/labs-gpt-stac/framework"
)

const (
	maxExpressionLength = 256
	maxExpressionDepth  = 32
)

// CalculateTool evaluates arithmetic expressions built from numeric literals,
// + - * /, unary signs and parentheses. Nothing else is accepted.
type CalculateTool struct{}

func (t *CalculateTool) Name() string { return "calculate" }
func (t *CalculateTool) Description() string {
	return "Runs a calculation and returns the number. Only numbers, + - * / and parentheses are allowed."
}
func (t *CalculateTool) Example() string { return "4 * 7 / 3" }

func (t *CalculateTool) Execute(ctx context.Context, argument string) (*framework.ToolResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, framework.NewToolError(t.Name(), err)
	}
	value, err := Evaluate(argument)
	if err != nil {
		return nil, framework.NewToolError(t.Name(), err)
	}
	return &framework.ToolResult{
		Observation: FormatNumber(value),
		Metadata:    map[string]any{"expression": strings.TrimSpace(argument)},
	}, nil
}

// FormatNumber renders a result without trailing zeros.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Evaluate parses and computes expr.
func Evaluate(expr string) (float64, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, fmt.Errorf("%w: empty expression", framework.ErrMalformedQuery)
	}
	if len(expr) > maxExpressionLength {
		return 0, fmt.Errorf("%w: expression longer than %d bytes", framework.ErrMalformedQuery, maxExpressionLength)
	}
	tokens, err := tokenize(expr)
	if err != nil {
		return 0, err
	}
	p := &exprParser{tokens: tokens}
	value, err := p.parseExpr(0)
	if err != nil {
		return 0, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return 0, fmt.Errorf("%w: unexpected %q at offset %d", framework.ErrMalformedQuery, tok.text, tok.pos)
	}
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, fmt.Errorf("result is not a finite number")
	}
	return value, nil
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind  tokenKind
	text  string
	value float64
	pos   int
}

func tokenize(expr string) ([]token, error) {
	var tokens []token
	for i := 0; i < len(expr); {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '+' || c == '-' || c == '*' || c == '/':
			if c == '*' && i+1 < len(expr) && expr[i+1] == '*' {
				return nil, fmt.Errorf("%w: operator ** is not supported", framework.ErrMalformedQuery)
			}
			if c == '/' && i+1 < len(expr) && expr[i+1] == '/' {
				return nil, fmt.Errorf("%w: operator // is not supported", framework.ErrMalformedQuery)
			}
			tokens = append(tokens, token{kind: tokOp, text: string(c), pos: i})
			i++
		case c == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")", pos: i})
			i++
		case isDigit(c) || c == '.':
			end := scanNumber(expr, i)
			text := expr[i:end]
			value, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid number %q", framework.ErrMalformedQuery, text)
			}
			tokens = append(tokens, token{kind: tokNumber, text: text, value: value, pos: i})
			i = end
		default:
			return nil, fmt.Errorf("%w: unexpected character %q at offset %d", framework.ErrMalformedQuery, c, i)
		}
	}
	tokens = append(tokens, token{kind: tokEOF, pos: len(expr)})
	return tokens, nil
}

// scanNumber returns the end offset of the literal starting at i: digits, an
// optional fraction and an optional exponent.
func scanNumber(s string, i int) int {
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < len(s) && isDigit(s[j]) {
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			i = j
		}
	}
	return i
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// exprParser is a recursive-descent parser for
//
//	expr   := term (('+' | '-') term)*
//	term   := unary (('*' | '/') unary)*
//	unary  := ('+' | '-') unary | primary
//	primary:= number | '(' expr ')'
type exprParser struct {
	tokens []token
	pos    int
}

func (p *exprParser) peek() token { return p.tokens[p.pos] }

func (p *exprParser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *exprParser) parseExpr(depth int) (float64, error) {
	if depth > maxExpressionDepth {
		return 0, fmt.Errorf("%w: expression nested deeper than %d levels", framework.ErrMalformedQuery, maxExpressionDepth)
	}
	left, err := p.parseTerm(depth)
	if err != nil {
		return 0, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokOp || (tok.text != "+" && tok.text != "-") {
			return left, nil
		}
		p.next()
		right, err := p.parseTerm(depth)
		if err != nil {
			return 0, err
		}
		if tok.text == "+" {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *exprParser) parseTerm(depth int) (float64, error) {
	left, err := p.parseUnary(depth)
	if err != nil {
		return 0, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokOp || (tok.text != "*" && tok.text != "/") {
			return left, nil
		}
		p.next()
		right, err := p.parseUnary(depth)
		if err != nil {
			return 0, err
		}
		if tok.text == "*" {
			left *= right
			continue
		}
		if right == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		left /= right
	}
}

func (p *exprParser) parseUnary(depth int) (float64, error) {
	tok := p.peek()
	if tok.kind == tokOp && (tok.text == "+" || tok.text == "-") {
		if depth > maxExpressionDepth {
			return 0, fmt.Errorf("%w: expression nested deeper than %d levels", framework.ErrMalformedQuery, maxExpressionDepth)
		}
		p.next()
		v, err := p.parseUnary(depth + 1)
		if err != nil {
			return 0, err
		}
		if tok.text == "-" {
			return -v, nil
		}
		return v, nil
	}
	return p.parsePrimary(depth)
}

func (p *exprParser) parsePrimary(depth int) (float64, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		return tok.value, nil
	case tokLParen:
		v, err := p.parseExpr(depth + 1)
		if err != nil {
			return 0, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return 0, fmt.Errorf("%w: missing closing parenthesis at offset %d", framework.ErrMalformedQuery, closing.pos)
		}
		return v, nil
	case tokEOF:
		return 0, fmt.Errorf("%w: unexpected end of expression", framework.ErrMalformedQuery)
	default:
		return 0, fmt.Errorf("%w: unexpected %q at offset %d", framework.ErrMalformedQuery, tok.text, tok.pos)
	}
}
