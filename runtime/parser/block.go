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

// Attribute name tiers, in lookup order.
const (
	tierAlias = iota
	tierSpecific
	tierGeneric
)

// optionalBlock parses an attribute block if the next word opens one. Data
// items (typ != nil) look names up in the alias, type-specific and generic
// tables; other statements use only their own table.
func (p *parser) optionalBlock(item *model.Item, typ *vocab.Type, statement []vocab.Attribute) error {
	tok, err := p.peek()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}
	if !tok.OpensBlock() {
		return nil
	}
	_, _ = p.next()
	openLine := tok.Line

	// Keep whatever follows the '[' in the same word, closing bracket
	// included, as the first word of the block.
	if rest := tok.Slice(1); rest.Text != "" {
		p.pushBack(rest)
	}

	for {
		name, end, err := p.nextInBlock(openLine)
		if err != nil {
			return err
		}
		if name.Text == "" {
			if end {
				return nil
			}
			continue
		}

		attr, value, end, err := p.attribute(name, end, openLine)
		if err != nil {
			return err
		}
		if err := p.setAttribute(item, typ, statement, attr, value); err != nil {
			return err
		}
		if end {
			return nil
		}
	}
}

// nextInBlock returns the next word of a block with a closing ']' removed;
// end reports that the bracket closed the block.
func (p *parser) nextInBlock(openLine int) (lexer.Token, bool, error) {
	tok, err := p.next()
	if errors.Is(err, io.EOF) {
		return tok, false, acderr.Syntax(p.config.file, openLine, "unmatched '[': attribute block is not closed")
	}
	if err != nil {
		return tok, false, err
	}
	if tok.OpensBlock() {
		return tok, false, acderr.Syntax(p.config.file, tok.Line, "unexpected '[' inside attribute block opened on line %d", openLine)
	}
	end := tok.ClosesBlock()
	return tok.Trim(), end, nil
}

// attribute reads "name: value" starting at the word holding the name. The
// colon may be glued to either side or stand alone, and the value may be
// glued to the colon.
func (p *parser) attribute(tok lexer.Token, end bool, openLine int) (name lexer.Token, value lexer.Token, closed bool, err error) {
	name = tok
	var rest lexer.Token
	haveRest := false

	if i := colon(tok); i >= 0 {
		name.Text = tok.Text[:i]
		rest = tok.Slice(i + 1)
		haveRest = true
	} else {
		if end {
			return name, value, end, acderr.Syntax(p.config.file, tok.Line, "expected ':' after attribute %q", tok.Text)
		}
		sep, sepEnd, err := p.nextInBlock(openLine)
		if err != nil {
			return name, value, end, err
		}
		if !strings.HasPrefix(sep.Text, ":") {
			return name, value, end, acderr.Syntax(p.config.file, sep.Line, "expected ':' after attribute %q, found %q", tok.Text, sep.Text)
		}
		rest = sep.Slice(1)
		haveRest = true
		end = sepEnd
	}

	if haveRest && (rest.Text != "" || rest.Quoted()) {
		return name, rest, end, nil
	}
	if end {
		return name, value, end, acderr.Syntax(p.config.file, tok.Line, "missing value for attribute %q", name.Text)
	}
	value, end, err = p.nextInBlock(openLine)
	if err != nil {
		return name, value, end, err
	}
	if value.Text == "" && end {
		return name, value, end, acderr.Syntax(p.config.file, tok.Line, "missing value for attribute %q", name.Text)
	}
	return name, value, end, nil
}

func (p *parser) setAttribute(item *model.Item, typ *vocab.Type, statement []vocab.Attribute, name, value lexer.Token) error {
	if typ == nil {
		names := make([]string, len(statement))
		for i, a := range statement {
			names[i] = a.Name
		}
		r := prefix.Find(name.Text, names)
		resolved, err := p.checkAttribute(r, name, item, names)
		if err != nil {
			return err
		}
		item.Attrs.Set(resolved, value.Value())
		return nil
	}

	aliases := p.vocab.AliasNames()
	specific := typ.AttributeNames()
	generic := p.vocab.GenericNames()
	r := prefix.Find(name.Text, aliases, specific, generic)
	all := append(append(append([]string{}, aliases...), specific...), generic...)
	resolved, err := p.checkAttribute(r, name, item, all)
	if err != nil {
		return err
	}

	switch r.Tier {
	case tierAlias:
		target, _ := p.vocab.Alias(resolved)
		p.config.sink.At(p.config.file, name.Line, "attribute %q is deprecated, use %q", resolved, target)
		item.Generic.Set(target, value.Value())
	case tierSpecific:
		item.Attrs.Set(resolved, value.Value())
	default:
		item.Generic.Set(resolved, value.Value())
		if resolved == "knowntype" {
			p.checkKnownType(value)
		}
	}
	return nil
}

// checkKnownType warns about a literal knowntype missing from the
// vocabulary. Values built from references are only known after resolution.
func (p *parser) checkKnownType(value lexer.Token) {
	v := value.Value()
	if v == "" || strings.Contains(v, "$(") || strings.Contains(v, "@(") {
		return
	}
	if _, ok := p.vocab.KnownType(v); !ok {
		p.config.sink.At(p.config.file, value.Line, "unknown knowntype %q", v)
	}
}

func (p *parser) checkAttribute(r prefix.Result[string], name lexer.Token, item *model.Item, all []string) (string, error) {
	switch r.Kind {
	case prefix.None:
		return "", acderr.Semantic(p.config.file, name.Line, "unknown attribute %q for %s %q", name.Text, item.Type, item.Name).
			WithSuggestions(prefix.Suggest(name.Text, all, 3))
	case prefix.Ambiguous:
		return "", acderr.Semantic(p.config.file, name.Line, "ambiguous attribute %q for %s %q matches %s", name.Text, item.Type, item.Name, strings.Join(r.Candidates, ", "))
	case prefix.Unique:
		p.config.sink.At(p.config.file, name.Line, "abbreviation %q accepted for attribute %q", name.Text, r.Value)
	}
	return r.Value, nil
}
