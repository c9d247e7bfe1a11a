// Package cmdline binds command-line arguments to the qualifiers and
// parameters of a definition.
//
// A word starting with '-', '--' or '/' whose name part looks like an
// identifier is a qualifier; anything else fills the next free parameter.
// Qualifier names are matched by unambiguous prefix against names and
// command-line tokens. While a qualifier that owns associated qualifiers is
// the current master, its associated qualifiers are searched first.
package cmdline

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/opal-lang/acd/core/acderr"
	"github.com/opal-lang/acd/core/model"
	"github.com/opal-lang/acd/core/vocab"
	"github.com/opal-lang/acd/runtime/expr"
	"github.com/opal-lang/acd/runtime/prefix"
)

// Binding is one argument (or argument pair) bound to an item.
type Binding struct {
	Item     *model.Item
	Arg      int    // index in argv of the qualifier or bare value
	Consumed int    // 1, or 2 when the value was the following argument
	Value    string // raw reply
	Empty    bool   // explicit empty value: '.', or -noqual on a nullok item
}

var (
	qualName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
	numbered = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9]*?)([0-9]+)$`)
)

// MatchOpt configures Match.
type MatchOpt func(*MatchConfig)

// MatchConfig holds matcher configuration.
type MatchConfig struct {
	vocab    *vocab.Vocabulary
	resolver *expr.Resolver
	sink     *acderr.Sink
}

// WithVocabulary replaces the standard vocabulary.
func WithVocabulary(v *vocab.Vocabulary) MatchOpt {
	return func(c *MatchConfig) {
		c.vocab = v
	}
}

// WithResolver resolves the nullok and missing attributes of matched items.
func WithResolver(r *expr.Resolver) MatchOpt {
	return func(c *MatchConfig) {
		c.resolver = r
	}
}

// WithSink collects warnings for accepted abbreviations and repeated
// qualifiers.
func WithSink(sink *acderr.Sink) MatchOpt {
	return func(c *MatchConfig) {
		c.sink = sink
	}
}

// matcher holds the state of one pass over argv.
type matcher struct {
	config  *MatchConfig
	def     *model.Definition
	argv    []string
	pos     int
	master  *model.Item // most recently bound item owning associated qualifiers
	noQuals bool        // set by a bare "--"
	params  []*model.Item
	out     []Binding
}

// Match binds argv to the items of def and records each raw reply on its
// item (Reply, Replied, UsedCount). Parameters must already be numbered.
func Match(argv []string, def *model.Definition, opts ...MatchOpt) ([]Binding, error) {
	config := &MatchConfig{vocab: vocab.Standard()}
	for _, opt := range opts {
		opt(config)
	}
	if config.resolver == nil {
		config.resolver = expr.NewResolver(def, expr.WithSink(config.sink), expr.WithVocabulary(config.vocab))
	}

	m := &matcher{config: config, def: def, argv: argv, params: def.Parameters()}
	for m.pos < len(argv) {
		if err := m.step(); err != nil {
			return nil, err
		}
	}
	return m.out, nil
}

func (m *matcher) step() error {
	arg := m.argv[m.pos]

	if !m.noQuals && arg == "--" {
		m.noQuals = true
		m.pos++
		return nil
	}
	if !m.noQuals {
		if q, ok := parseQualifier(arg); ok {
			bound, err := m.qualifier(q)
			if err != nil || bound {
				return err
			}
			// an unknown "/word" is a path, not a qualifier
		}
	}
	return m.parameter(arg)
}

// qualifier is a decomposed qualifier word.
type qualifier struct {
	arg      string
	name     string
	full     string // name before the number was stripped
	number   int
	master   string
	value    string
	gotValue bool
	negated  bool
	slash    bool
}

// parseQualifier splits "-name[N][_master][=value]". It reports false when
// arg is not qualifier-shaped, so "-5" and "/tmp/x" stay values.
func parseQualifier(arg string) (qualifier, bool) {
	q := qualifier{arg: arg}
	var body string
	switch {
	case strings.HasPrefix(arg, "--"):
		body = arg[2:]
	case strings.HasPrefix(arg, "-"):
		body = arg[1:]
	case strings.HasPrefix(arg, "/"):
		body = arg[1:]
		q.slash = true
	default:
		return q, false
	}

	if i := strings.IndexByte(body, '='); i >= 0 {
		q.value, q.gotValue = body[i+1:], true
		body = body[:i]
	}
	if !qualName.MatchString(body) {
		return q, false
	}
	body = strings.ToLower(body)
	if i := strings.IndexByte(body, '_'); i >= 0 {
		q.master = body[i+1:]
		body = body[:i]
		if body == "" || q.master == "" || strings.Contains(q.master, "_") {
			return q, false
		}
	}
	q.name, q.full = body, body
	if sm := numbered.FindStringSubmatch(body); sm != nil {
		q.name = sm[1]
		q.number, _ = strconv.Atoi(sm[2])
	}
	return q, true
}

// qualifier binds q and acquires its value. It reports false without error
// for an unknown slash-prefixed word.
func (m *matcher) qualifier(q qualifier) (bool, error) {
	it, err := m.find(q)
	if err != nil {
		return false, err
	}
	if it == nil && strings.HasPrefix(q.name, "no") && len(q.name) > 2 {
		neg := q
		neg.name, neg.full, neg.negated = q.name[2:], q.full[2:], true
		if it, err = m.find(neg); err != nil {
			return false, err
		}
		if it != nil {
			q = neg
		}
	}
	if it == nil {
		if q.slash {
			return false, nil
		}
		return false, acderr.CommandLine(m.def.Program, "unknown qualifier %q", q.arg).
			WithSuggestions(prefix.Suggest(q.full, m.names(), 3))
	}

	b, err := m.value(it, q)
	if err != nil {
		return false, err
	}
	m.bind(b)
	return true, nil
}

// find resolves the qualifier name. It returns nil, nil when nothing matches.
func (m *matcher) find(q qualifier) (*model.Item, error) {
	tiers, err := m.tiers(q)
	if err != nil {
		return nil, err
	}
	it, err := m.lookup(q, q.name, tiers)
	if it != nil || err != nil || q.number == 0 {
		return it, err
	}
	// "-matrix2" may name an item called matrix2 rather than parameter 2
	whole := q
	whole.name, whole.number = q.full, 0
	if tiers, err = m.tiers(whole); err != nil {
		return nil, err
	}
	return m.lookup(q, q.full, tiers)
}

func (m *matcher) lookup(q qualifier, name string, tiers [][]*model.Item) (*model.Item, error) {
	r := prefix.Lookup(name, itemKeys, tiers...)
	switch r.Kind {
	case prefix.Exact:
		return r.Value, nil
	case prefix.Unique:
		m.config.sink.For(m.def.Program, "abbreviation %q accepted for qualifier %q", q.arg, "-"+r.Value.Name)
		return r.Value, nil
	case prefix.Ambiguous:
		names := make([]string, len(r.Candidates))
		for i, c := range r.Candidates {
			names[i] = "-" + c.Name
		}
		return nil, acderr.CommandLine(m.def.Program, "ambiguous qualifier %q matches %s", q.arg, strings.Join(names, ", "))
	}
	return nil, nil
}

// tiers returns the candidate sets for q in search order.
func (m *matcher) tiers(q qualifier) ([][]*model.Item, error) {
	if q.master != "" {
		master, err := m.explicitMaster(q)
		if err != nil {
			return nil, err
		}
		return [][]*model.Item{m.def.AssocOf(master)}, nil
	}

	var tiers [][]*model.Item
	if m.master != nil && q.number == 0 {
		tiers = append(tiers, m.def.AssocOf(m.master))
	}

	var general, numberedAssoc []*model.Item
	for _, it := range m.def.Qualifiers() {
		if q.number != 0 && it.ParamNum != q.number {
			continue
		}
		if it.IsAssociated {
			numberedAssoc = append(numberedAssoc, it)
		} else {
			general = append(general, it)
		}
	}
	tiers = append(tiers, general)
	if q.number != 0 {
		return append(tiers, numberedAssoc), nil
	}
	return append(tiers, m.firstAssociated()), nil
}

// firstAssociated returns, for each associated name, the item declared by
// the first master.
func (m *matcher) firstAssociated() []*model.Item {
	seen := map[string]bool{}
	var out []*model.Item
	for _, it := range m.def.Items {
		if !it.IsAssociated || seen[it.Name] {
			continue
		}
		seen[it.Name] = true
		out = append(out, it)
	}
	return out
}

func (m *matcher) explicitMaster(q qualifier) (*model.Item, error) {
	var masters []*model.Item
	for _, it := range m.def.Qualifiers() {
		if !it.IsAssociated && len(it.Assoc) > 0 {
			masters = append(masters, it)
		}
	}
	r := prefix.Lookup(q.master, itemKeys, masters)
	switch r.Kind {
	case prefix.Exact, prefix.Unique:
		return r.Value, nil
	case prefix.Ambiguous:
		return nil, acderr.CommandLine(m.def.Program, "ambiguous master %q in %q", q.master, q.arg)
	}
	return nil, acderr.CommandLine(m.def.Program, "unknown master %q in %q", q.master, q.arg)
}

// value acquires the reply for a matched qualifier.
func (m *matcher) value(it *model.Item, q qualifier) (Binding, error) {
	b := Binding{Item: it, Arg: m.pos, Consumed: 1}
	boolean := m.isBoolean(it)

	switch {
	case q.gotValue:
		b.Value = q.value
		if q.negated {
			if !boolean {
				return b, acderr.CommandLine(m.def.Program, "%q: a value cannot be given to a negated qualifier", q.arg)
			}
			v, ok := expr.ParseBool(q.value)
			if !ok {
				return b, acderr.CommandLine(m.def.Program, "%q: %q is not a boolean", q.arg, q.value)
			}
			b.Value = expr.FormatBool(!v)
		}

	case boolean:
		b.Value = "Y"
		if q.negated {
			b.Value = "N"
			break
		}
		if next, ok := m.peek(); ok {
			if v, ok := expr.ParseBool(next); ok {
				b.Value = expr.FormatBool(v)
				b.Consumed = 2
			}
		}

	case q.negated:
		if !m.config.resolver.Bool(it, "nullok") {
			return b, acderr.CommandLine(m.def.Program, "%q: -no is only allowed for boolean or nullok qualifiers", q.arg)
		}
		b.Empty = true

	default:
		next, ok := m.peek()
		missing := m.config.resolver.Bool(it, "missing")
		switch {
		case !ok && missing:
			b.Empty = true
		case !ok:
			return b, acderr.CommandLine(m.def.Program, "missing value for %q", q.arg)
		case missing && !m.noQuals && looksLikeQualifier(next):
			b.Empty = true
		default:
			b.Value = next
			b.Consumed = 2
		}
	}
	return b, nil
}

// parameter binds a bare word to the next unfilled parameter.
func (m *matcher) parameter(arg string) error {
	var slot *model.Item
	for _, p := range m.params {
		if !p.Replied {
			slot = p
			break
		}
	}
	if slot == nil {
		return acderr.CommandLine(m.def.Program, "too many parameters: %q (expected %d)", arg, len(m.params))
	}
	b := Binding{Item: slot, Arg: m.pos, Consumed: 1, Value: arg}
	if arg == "." {
		b.Value, b.Empty = "", true
	}
	m.bind(b)
	return nil
}

func (m *matcher) bind(b Binding) {
	it := b.Item
	it.Reply = b.Value
	it.Replied = true
	it.UsedCount++
	if it.UsedCount > 1 {
		m.config.sink.For(m.def.Program, "-%s given %d times, using %q", it.Name, it.UsedCount, b.Value)
	}
	if len(it.Assoc) > 0 {
		m.master = it
	}
	m.out = append(m.out, b)
	m.pos += b.Consumed
}

func (m *matcher) peek() (string, bool) {
	if m.pos+1 >= len(m.argv) {
		return "", false
	}
	return m.argv[m.pos+1], true
}

func (m *matcher) isBoolean(it *model.Item) bool {
	typ, ok := m.config.vocab.Type(it.Type)
	return ok && typ.Boolean
}

// names lists every qualifier name for suggestions.
func (m *matcher) names() []string {
	seen := map[string]bool{}
	var out []string
	for _, it := range m.def.Qualifiers() {
		if !seen[it.Name] {
			seen[it.Name] = true
			out = append(out, it.Name)
		}
	}
	return out
}

func itemKeys(it *model.Item) []string {
	if it.Token == it.Name {
		return []string{it.Name}
	}
	return []string{it.Name, it.Token}
}

func looksLikeQualifier(arg string) bool {
	q, ok := parseQualifier(arg)
	return ok && !q.slash
}
