package expr

import (
	"regexp"
	"strings"
)

var specialForm = regexp.MustCompile(`(?i)^\s*(filename|exists)\s*:(.*)$`)

// Parse parses the body of an @() expression.
func Parse(src string) (*Expr, error) {
	if m := specialForm.FindStringSubmatch(src); m != nil {
		arg := strings.TrimSpace(m[2])
		if strings.EqualFold(m[1], "filename") {
			return &Expr{Kind: ExprFilename, Value: arg}, nil
		}
		return &Expr{Kind: ExprExists, Value: arg}, nil
	}

	toks, err := scan(src)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, &EvalError{Message: "empty expression"}
	}

	p := &exprParser{toks: toks, src: src}
	var e *Expr
	switch {
	case len(toks) >= 2 && toks[0].kind == tokWord && toks[1].is("="):
		e, err = p.caseExpr(toks[0].text, 2)
	case toks[0].is("="):
		// the selector substituted to nothing
		e, err = p.caseExpr("", 1)
	default:
		e, err = p.cond()
	}
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.toks) {
		return nil, &EvalError{Message: "unexpected " + p.toks[p.pos].text, Text: src}
	}
	return e, nil
}

type exprParser struct {
	toks []token
	pos  int
	src  string
}

func (p *exprParser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *exprParser) accept(op string) bool {
	if t, ok := p.peek(); ok && t.is(op) {
		p.pos++
		return true
	}
	return false
}

func (p *exprParser) fail(msg string) error {
	return &EvalError{Message: msg, Text: p.src}
}

// cond := or ( '?' text ':' ( cond | text ) )?
//
// The arms are taken as written, so paths and hyphenated words need no
// quoting. An else arm holding another '?' is parsed as a nested cond.
func (p *exprParser) cond() (*Expr, error) {
	c, err := p.or()
	if err != nil {
		return nil, err
	}
	if !p.accept("?") {
		return c, nil
	}
	a := &Expr{Kind: ExprLiteral, Value: p.textUntil(":")}
	if !p.accept(":") {
		return nil, p.fail("expected ':' in conditional")
	}
	var b *Expr
	if p.ahead("?") {
		if b, err = p.cond(); err != nil {
			return nil, err
		}
	} else {
		b = &Expr{Kind: ExprLiteral, Value: p.textUntil("")}
	}
	return &Expr{Kind: ExprCond, Cond: c, Left: a, Right: b}, nil
}

// textUntil consumes tokens up to the operator stop, or to the end when stop
// is empty, and returns their source text. A lone quoted word is unquoted.
func (p *exprParser) textUntil(stop string) string {
	from := p.pos
	for p.pos < len(p.toks) && (stop == "" || !p.toks[p.pos].is(stop)) {
		p.pos++
	}
	switch {
	case from == p.pos:
		return ""
	case p.pos-from == 1 && p.toks[from].kind == tokWord:
		return p.toks[from].text
	}
	return strings.TrimSpace(p.src[p.toks[from].start:p.toks[p.pos-1].end])
}

// ahead reports whether op occurs in the remaining tokens.
func (p *exprParser) ahead(op string) bool {
	for _, t := range p.toks[p.pos:] {
		if t.is(op) {
			return true
		}
	}
	return false
}

func (p *exprParser) or() (*Expr, error) {
	return p.binary([]string{"|"}, p.and)
}

func (p *exprParser) and() (*Expr, error) {
	return p.binary([]string{"&"}, p.compare)
}

func (p *exprParser) add() (*Expr, error) {
	return p.binary([]string{"+", "-"}, p.mul)
}

func (p *exprParser) mul() (*Expr, error) {
	return p.binary([]string{"*", "/"}, p.unary)
}

// binary parses a left-associative chain of the given operators.
func (p *exprParser) binary(ops []string, operand func() (*Expr, error)) (*Expr, error) {
	left, err := operand()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokOp || !contains(ops, t.text) {
			return left, nil
		}
		p.pos++
		right, err := operand()
		if err != nil {
			return nil, err
		}
		left = &Expr{Kind: ExprBinaryOp, Op: t.text, Left: left, Right: right}
	}
}

// compare := add ( ('=='|'!=') set | ('=='|'!='|'>'|'<') add )?
func (p *exprParser) compare() (*Expr, error) {
	left, err := p.add()
	if err != nil {
		return nil, err
	}
	t, ok := p.peek()
	if !ok || t.kind != tokOp || !contains([]string{"==", "!=", ">", "<"}, t.text) {
		return left, nil
	}
	p.pos++

	if next, ok := p.peek(); ok && next.is("{") && (t.text == "==" || t.text == "!=") {
		set, err := p.set()
		if err != nil {
			return nil, err
		}
		return &Expr{Kind: ExprOneOf, Left: left, Set: set, Negate: t.text == "!="}, nil
	}

	right, err := p.add()
	if err != nil {
		return nil, err
	}
	return &Expr{Kind: ExprBinaryOp, Op: t.text, Left: left, Right: right}, nil
}

// set := '{' word ( '|' word )* '}'
func (p *exprParser) set() ([]string, error) {
	p.accept("{")
	var members []string
	for {
		t, ok := p.peek()
		if !ok {
			return nil, p.fail("unclosed '{'")
		}
		if t.kind != tokWord {
			return nil, p.fail("expected set member")
		}
		p.pos++
		members = append(members, t.text)
		if p.accept("}") {
			return members, nil
		}
		if !p.accept("|") {
			return nil, p.fail("expected '|' or '}' in set")
		}
	}
}

func (p *exprParser) unary() (*Expr, error) {
	if p.accept("!") {
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &Expr{Kind: ExprNot, Op: "!", Left: x}, nil
	}
	t, ok := p.peek()
	if !ok || t.kind != tokWord {
		return nil, p.fail("expected operand")
	}
	p.pos++
	return &Expr{Kind: ExprLiteral, Value: t.text}, nil
}

// caseExpr := word '=' arm ( ',' arm )*, arm := word ':' text
func (p *exprParser) caseExpr(selector string, start int) (*Expr, error) {
	e := &Expr{Kind: ExprCase, Left: &Expr{Kind: ExprLiteral, Value: selector}}
	p.pos = start
	for {
		key, ok := p.peek()
		if !ok || key.kind != tokWord {
			return nil, p.fail("expected case label")
		}
		p.pos++
		if !p.accept(":") {
			return nil, p.fail("expected ':' after case label " + key.text)
		}
		result := p.textUntil(",")
		if !key.quoted && strings.EqualFold(key.text, "else") {
			e.Else, e.HasElse = result, true
		} else {
			e.Cases = append(e.Cases, Case{Key: key.text, Result: result})
		}
		if !p.accept(",") {
			return e, nil
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
