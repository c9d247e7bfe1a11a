// Package parser turns definition source into a model.Definition.
//
// Each statement starts with a keyword followed by ':'. The keyword is
// matched by unambiguous prefix against the statement keywords and then
// against the known value-type names; a value type makes the statement a
// qualifier declaration. Attribute blocks are '[' name: value ... ']'.
package parser

import (
	"errors"
	"io"
	"strings"

	"github.com/opal-lang/acd/core/acderr"
	"github.com/opal-lang/acd/core/model"
	"github.com/opal-lang/acd/core/vocab"
	"github.com/opal-lang/acd/runtime/lexer"
	"github.com/opal-lang/acd/runtime/prefix"
)

// State is the statement currently being parsed.
type State int

const (
	StateInitial State = iota
	StateApplication
	StateQualifier
	StateVariable
	StateSection
	StateEndSection
	StateRelation
	StateBad
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateApplication:
		return "application"
	case StateQualifier:
		return "qualifier"
	case StateVariable:
		return "variable"
	case StateSection:
		return "section"
	case StateEndSection:
		return "endsection"
	case StateRelation:
		return "relations"
	default:
		return "bad"
	}
}

var keywordStates = map[string]State{
	"application": StateApplication,
	"variable":    StateVariable,
	"relations":   StateRelation,
	"section":     StateSection,
	"endsection":  StateEndSection,
}

type openSection struct {
	name string
	line int
}

// parser holds all state for one pass over one source.
type parser struct {
	config   *ParserConfig
	vocab    *vocab.Vocabulary
	lex      *lexer.Lexer
	pending  []lexer.Token
	def      *model.Definition
	state    State
	sections []openSection
}

// Parse builds a definition from src. The parameter numbering pass is run
// separately by Process, once an expression resolver exists.
func Parse(src []byte, opts ...ParserOpt) (*model.Definition, error) {
	config := newConfig(opts)
	p := &parser{
		config: config,
		vocab:  config.vocab,
		lex:    lexer.NewLexer(src, lexer.WithFile(config.file), lexer.WithLogger(config.logger)),
		def:    model.New(config.program, config.file),
	}
	p.def.Source = src
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.def, nil
}

func (p *parser) parse() error {
	for {
		tok, err := p.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if err := p.statement(tok); err != nil {
			p.state = StateBad
			return err
		}
	}

	if p.def.Application() == nil {
		return acderr.Syntax(p.config.file, 1, "missing application statement")
	}
	if n := len(p.sections); n > 0 {
		open := p.sections[n-1]
		return acderr.Syntax(p.config.file, open.line, "section %q is not closed", open.name).
			WithHint("add 'endsection: " + open.name + "'")
	}
	return nil
}

func (p *parser) statement(tok lexer.Token) error {
	keyword, err := p.keyword(tok)
	if err != nil {
		return err
	}
	state, err := p.classify(keyword, tok.Line)
	if err != nil {
		return err
	}

	first := len(p.def.Items) == 0
	if first && state != StateApplication {
		return acderr.Syntax(p.config.file, tok.Line, "definition must start with an application statement, found %q", keyword)
	}
	if !first && state == StateApplication {
		return acderr.Syntax(p.config.file, tok.Line, "second application statement")
	}

	p.state = state
	p.config.logger.Debug("statement", "state", state.String(), "keyword", keyword, "line", tok.Line)

	switch state {
	case StateApplication:
		return p.application(tok.Line)
	case StateQualifier:
		typ, _ := p.vocab.Type(keyword)
		return p.qualifier(typ, tok.Line)
	case StateSection:
		return p.section(tok.Line)
	case StateEndSection:
		return p.endSection(tok.Line)
	case StateVariable:
		return p.variable(model.KindVariable, tok.Line)
	case StateRelation:
		return p.variable(model.KindRelation, tok.Line)
	}
	return acderr.Syntax(p.config.file, tok.Line, "unexpected %q", tok.Text)
}

// keyword extracts the statement keyword, accepting "kw:", "kw :" and
// "kw:rest" spellings.
func (p *parser) keyword(tok lexer.Token) (string, error) {
	if i := colon(tok); i >= 0 {
		if rest := tok.Slice(i + 1); rest.Text != "" {
			p.pushBack(rest)
		}
		return strings.ToLower(tok.Text[:i]), nil
	}

	next, err := p.next()
	if err == nil && strings.HasPrefix(next.Text, ":") && !next.Quoted() {
		if rest := next.Slice(1); rest.Text != "" {
			p.pushBack(rest)
		}
		return strings.ToLower(tok.Text), nil
	}
	if err == nil {
		p.pushBack(next)
	}
	return "", acderr.Syntax(p.config.file, tok.Line, "expected ':' after %q", tok.Text)
}

// classify matches a statement keyword against the keyword list, then the
// value-type names.
func (p *parser) classify(keyword string, line int) (State, error) {
	types := p.vocab.TypeNames()
	r := prefix.Find(keyword, p.vocab.Keywords, types)
	switch r.Kind {
	case prefix.None:
		all := append(append([]string{}, p.vocab.Keywords...), types...)
		return StateBad, acderr.Semantic(p.config.file, line, "unrecognized token %q", keyword).
			WithSuggestions(prefix.Suggest(keyword, all, 3))
	case prefix.Ambiguous:
		return StateBad, acderr.Semantic(p.config.file, line, "ambiguous token %q matches %s", keyword, strings.Join(r.Candidates, ", "))
	case prefix.Unique:
		p.config.sink.At(p.config.file, line, "abbreviation %q accepted for %q", keyword, r.Value)
	}
	if r.Tier == 0 {
		return keywordStates[r.Value], nil
	}
	return StateQualifier, nil
}

func (p *parser) application(line int) error {
	name, err := p.name("application", line)
	if err != nil {
		return err
	}
	if p.config.program != "" && !strings.EqualFold(name.Text, p.config.program) {
		return acderr.Semantic(p.config.file, name.Line, "application %q does not match program name %q", name.Text, p.config.program)
	}
	if p.def.Program == "" {
		p.def.Program = name.Text
	}
	app, err := p.def.NewItem(model.KindApplication, name.Text, "", "application", name.Line)
	if err != nil {
		return err
	}
	if err := p.optionalBlock(app, nil, p.vocab.StatementAttributes("application")); err != nil {
		return err
	}

	today, err := p.def.NewItem(model.KindVariable, "today", "", "variable", name.Line)
	if err != nil {
		return err
	}
	today.Generic.Set("default", p.config.now().Format("2006-01-02"))
	return nil
}

func (p *parser) qualifier(typ *vocab.Type, line int) error {
	name, err := p.name(typ.Name, line)
	if err != nil {
		return err
	}
	token := strings.ToLower(name.Text)

	next, err := p.next()
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	switch {
	case err != nil:
	case next.OpensBlock() || p.startsStatement(next):
		p.pushBack(next)
	case !isAlnum(next.Text):
		return acderr.Syntax(p.config.file, next.Line, "invalid command-line alias %q for %q", next.Text, name.Text)
	default:
		token = strings.ToLower(next.Text)
	}

	if prev := p.def.Conflict(name.Text, token); prev != nil {
		return acderr.Semantic(p.config.file, name.Line, "duplicate name %q (first defined on line %d)", name.Text, prev.Line)
	}

	assoc := make([]int, 0, len(typ.Associated))
	for _, a := range typ.Associated {
		it := p.def.NewAssociated(a.Name, a.Type, name.Line)
		p.initAttributes(it)
		if a.Default != "" {
			it.Generic.Set("default", a.Default)
		}
		if a.Information != "" {
			it.Generic.Set("information", a.Information)
		}
		assoc = append(assoc, it.Index)
	}

	item, err := p.def.NewItem(model.KindQualifier, name.Text, token, typ.Name, name.Line)
	if err != nil {
		return err
	}
	p.initAttributes(item)
	p.def.Link(item, assoc)

	return p.optionalBlock(item, typ, nil)
}

// initAttributes loads the generic and type-specific defaults.
func (p *parser) initAttributes(it *model.Item) {
	for _, a := range p.vocab.Generic {
		it.Generic.Set(a.Name, a.Default)
	}
	if typ, ok := p.vocab.Type(it.Type); ok {
		for _, a := range typ.Attributes {
			it.Attrs.Set(a.Name, a.Default)
		}
	}
}

func (p *parser) section(line int) error {
	name, err := p.name("section", line)
	if err != nil {
		return err
	}
	item, err := p.def.NewItem(model.KindSection, name.Text, "", "section", name.Line)
	if err != nil {
		return err
	}
	p.sections = append(p.sections, openSection{name: name.Text, line: name.Line})
	for _, a := range p.vocab.StatementAttributes("section") {
		item.Attrs.Set(a.Name, a.Default)
	}
	return p.optionalBlock(item, nil, p.vocab.StatementAttributes("section"))
}

func (p *parser) endSection(line int) error {
	name, err := p.name("endsection", line)
	if err != nil {
		return err
	}
	n := len(p.sections)
	if n == 0 {
		return acderr.Syntax(p.config.file, name.Line, "endsection %q without an open section", name.Text)
	}
	open := p.sections[n-1]
	if open.name != name.Text {
		return acderr.Syntax(p.config.file, name.Line, "endsection %q does not match section %q opened on line %d", name.Text, open.name, open.line)
	}
	p.sections = p.sections[:n-1]
	_, err = p.def.NewItem(model.KindEndSection, name.Text, "", "endsection", name.Line)
	return err
}

// variable parses "variable: name value" and "relations: name value", or a
// relations statement with an attribute block.
func (p *parser) variable(kind model.Kind, line int) error {
	keyword := "variable"
	if kind == model.KindRelation {
		keyword = "relations"
	}
	name, err := p.name(keyword, line)
	if err != nil {
		return err
	}
	item, err := p.def.NewItem(kind, name.Text, "", keyword, name.Line)
	if err != nil {
		return err
	}

	next, err := p.peek()
	if errors.Is(err, io.EOF) {
		return acderr.Syntax(p.config.file, name.Line, "missing value for %s %q", keyword, name.Text)
	}
	if err != nil {
		return err
	}
	if kind == model.KindRelation && next.OpensBlock() {
		if err := p.optionalBlock(item, nil, p.vocab.StatementAttributes("relations")); err != nil {
			return err
		}
		v, _ := item.Attrs.Get("relations")
		item.Generic.Set("default", v)
		return nil
	}
	_, _ = p.next()
	item.Generic.Set("default", next.Value())
	return nil
}

// name reads the identifier following a statement keyword.
func (p *parser) name(keyword string, line int) (lexer.Token, error) {
	tok, err := p.next()
	if errors.Is(err, io.EOF) {
		return tok, acderr.Syntax(p.config.file, line, "missing name after %q", keyword)
	}
	if err != nil {
		return tok, err
	}
	if tok.OpensBlock() || !isIdent(tok.Text) {
		return tok, acderr.Syntax(p.config.file, tok.Line, "invalid name %q after %q", tok.Text, keyword)
	}
	return tok, nil
}

// startsStatement reports whether tok, already consumed, looks like the
// keyword of the next statement: "kw:" or "kw" followed by a token
// starting with ':'.
func (p *parser) startsStatement(tok lexer.Token) bool {
	if tok.Quoted() {
		return false
	}
	word := tok.Text
	if i := colon(tok); i == 0 {
		return false
	} else if i > 0 {
		word = tok.Text[:i]
	} else {
		after, err := p.peek()
		if err != nil || after.Quoted() || !strings.HasPrefix(after.Text, ":") {
			return false
		}
	}
	r := prefix.Find(word, p.vocab.Keywords, p.vocab.TypeNames())
	return r.Kind == prefix.Exact || r.Kind == prefix.Unique
}

func (p *parser) next() (lexer.Token, error) {
	if n := len(p.pending); n > 0 {
		tok := p.pending[n-1]
		p.pending = p.pending[:n-1]
		return tok, nil
	}
	return p.lex.Next()
}

func (p *parser) peek() (lexer.Token, error) {
	tok, err := p.next()
	if err == nil {
		p.pushBack(tok)
	}
	return tok, err
}

func (p *parser) pushBack(tok lexer.Token) {
	p.pending = append(p.pending, tok)
}

// colon returns the offset of the first ':' outside quotes, or -1.
func colon(tok lexer.Token) int {
	limit := len(tok.Text)
	if start, _, ok := tok.QuoteSpan(); ok {
		limit = start
	}
	return strings.IndexByte(tok.Text[:limit], ':')
}

func isIdent(s string) bool {
	if s == "" || !isLetter(s[0]) {
		return false
	}
	return isAlnum(s)
}

func isAlnum(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isLetter(s[i]) && !(s[i] >= '0' && s[i] <= '9') {
			return false
		}
	}
	return true
}

func isLetter(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}
