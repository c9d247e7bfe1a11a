package expr

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/opal-lang/acd/core/acderr"
	"github.com/opal-lang/acd/core/invariant"
	"github.com/opal-lang/acd/core/model"
	"github.com/opal-lang/acd/core/vocab"
)

// DefaultMaxIterations bounds the substitutions made by one Resolve call.
const DefaultMaxIterations = 256

var (
	refPattern  = regexp.MustCompile(`\$\(([A-Za-z][A-Za-z0-9_]*)(?:\.([A-Za-z][A-Za-z0-9_]*))?\)`)
	funcPattern = regexp.MustCompile(`@\(([^()]*)\)`)

	// A failed @() keeps its text; masking its delimiters stops it being
	// matched again and lets an enclosing @() see it as plain text.
	mask   = strings.NewReplacer("@", "\x00", "(", "\x01", ")", "\x02")
	unmask = strings.NewReplacer("\x00", "@", "\x01", "(", "\x02", ")")
)

// Option configures a Resolver.
type Option func(*Resolver)

// WithSink collects resolution warnings.
func WithSink(sink *acderr.Sink) Option {
	return func(r *Resolver) {
		r.sink = sink
	}
}

// WithVocabulary replaces the standard vocabulary used to recognise
// calculated attributes.
func WithVocabulary(v *vocab.Vocabulary) Option {
	return func(r *Resolver) {
		r.vocab = v
	}
}

// WithMaxIterations bounds substitutions per Resolve call.
func WithMaxIterations(n int) Option {
	return func(r *Resolver) {
		r.maxIter = n
	}
}

// Resolver evaluates attribute values against one definition. It never
// fails: anything it cannot resolve becomes "" or stays literal, with a
// warning.
type Resolver struct {
	def     *model.Definition
	vocab   *vocab.Vocabulary
	sink    *acderr.Sink
	maxIter int
}

// NewResolver returns a resolver over def.
func NewResolver(def *model.Definition, opts ...Option) *Resolver {
	invariant.NotNil(def, "definition")
	r := &Resolver{def: def, vocab: vocab.Standard(), maxIter: DefaultMaxIterations}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve substitutes every $() reference, then evaluates every @()
// expression, innermost first.
func (r *Resolver) Resolve(raw string) string {
	s := r.substitute(raw)
	if !strings.Contains(s, "@(") {
		return s
	}
	return r.evaluate(s)
}

// Attr resolves the named attribute of it. Missing attributes resolve to "".
func (r *Resolver) Attr(it *model.Item, name string) string {
	raw, ok := it.Attr(name)
	if !ok {
		return ""
	}
	return r.Resolve(raw)
}

// Bool resolves the named attribute of it as a boolean word.
func (r *Resolver) Bool(it *model.Item, name string) bool {
	return IsTrue(r.Attr(it, name))
}

func (r *Resolver) substitute(s string) string {
	for n := 0; ; n++ {
		loc := refPattern.FindStringSubmatchIndex(s)
		if loc == nil {
			return s
		}
		if n == r.maxIter {
			r.warn("too many substitutions in %q", s)
			return s
		}
		name := s[loc[2]:loc[3]]
		attr := ""
		if loc[4] >= 0 {
			attr = s[loc[4]:loc[5]]
		}
		s = s[:loc[0]] + r.lookup(name, attr) + s[loc[1]:]
	}
}

// lookup returns the raw value of name.attr. Generic attributes come
// first, then type-specific, calculated, associated qualifiers and the
// isdefined pseudo-attribute.
func (r *Resolver) lookup(name, attr string) string {
	it := r.def.ByName(name)
	if it == nil {
		r.warn("unknown variable %q", name)
		return ""
	}
	if attr == "" {
		if it.Defined {
			return it.ValueString
		}
		attr = "default"
	}

	if v, ok := it.Generic.Get(attr); ok {
		return v
	}
	if v, ok := it.Attrs.Get(attr); ok {
		return v
	}
	if v, ok := it.Calc[attr]; ok {
		return v
	}
	if typ, ok := r.vocab.Type(it.Type); ok && typ.IsCalculated(attr) {
		r.warn("attribute %q of %q is not available before its value is set", attr, name)
		return ""
	}
	for _, a := range r.def.AssocOf(it) {
		if a.Name != attr {
			continue
		}
		if a.Defined {
			return a.ValueString
		}
		v, _ := a.Generic.Get("default")
		return v
	}
	if attr == "isdefined" {
		return FormatBool(it.UserDefined || it.Replied)
	}
	r.warn("unknown attribute %q of %q", attr, name)
	return ""
}

func (r *Resolver) evaluate(s string) string {
	for n := 0; ; n++ {
		loc := funcPattern.FindStringSubmatchIndex(s)
		if loc == nil {
			break
		}
		if n == r.maxIter {
			r.warn("too many expressions in %q", unmask.Replace(s))
			break
		}
		body := s[loc[2]:loc[3]]
		out, err := r.eval(unmask.Replace(body))
		if err != nil {
			r.warn("cannot evaluate @(%s): %v", unmask.Replace(body), err)
			out = mask.Replace(s[loc[0]:loc[1]])
		}
		s = s[:loc[0]] + out + s[loc[1]:]
	}
	return unmask.Replace(s)
}

func (r *Resolver) eval(body string) (string, error) {
	e, err := Parse(body)
	if err != nil {
		return "", err
	}
	return EvaluateExpr(e, func(msg string) { r.warn("%s", msg) })
}

func (r *Resolver) warn(format string, args ...interface{}) {
	r.sink.For(r.def.Program, format, args...)
}

// String implements fmt.Stringer for debugging.
func (r *Resolver) String() string {
	return fmt.Sprintf("Resolver(%s, %d items)", r.def.Program, len(r.def.Items))
}
