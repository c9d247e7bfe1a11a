// Package model is the in-memory form of a parsed definition: an ordered
// arena of Items addressed by index. Associated qualifiers are ordinary
// items linked to their master through index lists.
package model

import (
	"fmt"
	"sort"

	"github.com/opal-lang/acd/core/acderr"
	"github.com/opal-lang/acd/core/invariant"
)

// Kind classifies an Item.
type Kind int

const (
	KindApplication Kind = iota
	KindParameter
	KindQualifier
	KindVariable
	KindSection
	KindEndSection
	KindRelation
)

func (k Kind) String() string {
	switch k {
	case KindApplication:
		return "application"
	case KindParameter:
		return "parameter"
	case KindQualifier:
		return "qualifier"
	case KindVariable:
		return "variable"
	case KindSection:
		return "section"
	case KindEndSection:
		return "endsection"
	case KindRelation:
		return "relations"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// State tracks an item through value resolution.
type State int

const (
	NotStarted State = iota
	AwaitingDefault
	Prompting
	Resolved
	Failed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case AwaitingDefault:
		return "awaiting-default"
	case Prompting:
		return "prompting"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Attr is one attribute with its raw, unresolved value.
type Attr struct {
	Name  string
	Value string
}

// Attrs is an attribute table kept in declaration order.
type Attrs []Attr

// Get returns the raw value of name.
func (a Attrs) Get(name string) (string, bool) {
	for _, at := range a {
		if at.Name == name {
			return at.Value, true
		}
	}
	return "", false
}

// Set replaces the value of name, appending it if absent.
func (a *Attrs) Set(name, value string) {
	for i := range *a {
		if (*a)[i].Name == name {
			(*a)[i].Value = value
			return
		}
	}
	*a = append(*a, Attr{Name: name, Value: value})
}

// Map returns a copy of the table as a map.
func (a Attrs) Map() map[string]string {
	m := make(map[string]string, len(a))
	for _, at := range a {
		m[at.Name] = at.Value
	}
	return m
}

// Item is one statement of a definition.
type Item struct {
	Index    int
	Name     string
	Token    string // command-line name
	ParamNum int    // 0 unless positional
	Kind     Kind
	Type     string // value-type name, or the statement keyword
	Line     int

	Generic Attrs // shared attributes: default, prompt, standard, ...
	Attrs   Attrs // type-specific attributes

	Assoc        []int // associated qualifiers, in declaration order
	Master       int   // index of the owning item, -1 when not associated
	IsAssociated bool

	// Written by the command-line matcher.
	Reply     string
	Replied   bool
	UsedCount int

	// Written once by the prompt engine.
	State       State
	Defined     bool
	UserDefined bool
	Value       any
	ValueString string
	Calc        map[string]string
}

// Attr returns the raw value of a generic or type-specific attribute.
func (it *Item) Attr(name string) (string, bool) {
	if v, ok := it.Generic.Get(name); ok {
		return v, true
	}
	return it.Attrs.Get(name)
}

// IsQualifier reports whether the item can be bound from the command line.
func (it *Item) IsQualifier() bool {
	return it.Kind == KindQualifier || it.Kind == KindParameter
}

// SetValue records the final value. It may be called once per item.
func (it *Item) SetValue(value any, canonical string, calc map[string]string, user bool) {
	invariant.Precondition(!it.Defined, "value of %q already set", it.Name)
	it.Value = value
	it.ValueString = canonical
	it.Calc = calc
	it.UserDefined = user
	it.Defined = true
	it.State = Resolved
}

// Definition owns the items of one parsed file.
type Definition struct {
	Program string
	File    string
	Source  []byte
	Items   []*Item
}

// New returns an empty definition.
func New(program, file string) *Definition {
	return &Definition{Program: program, File: file}
}

// NewItem appends a non-associated item. It fails when another
// non-associated item already uses the name or token.
func (d *Definition) NewItem(kind Kind, name, token, typ string, line int) (*Item, error) {
	if token == "" {
		token = name
	}
	if kind != KindEndSection {
		if prev := d.Conflict(name, token); prev != nil {
			return nil, acderr.Semantic(d.File, line, "duplicate name %q (first defined on line %d)", name, prev.Line)
		}
	}
	return d.add(&Item{Kind: kind, Name: name, Token: token, Type: typ, Line: line, Master: -1}), nil
}

// NewAssociated appends an associated qualifier. Its master is set by Link
// once the master exists.
func (d *Definition) NewAssociated(name, typ string, line int) *Item {
	return d.add(&Item{Kind: KindQualifier, Name: name, Token: name, Type: typ, Line: line, Master: -1, IsAssociated: true})
}

func (d *Definition) add(it *Item) *Item {
	it.Index = len(d.Items)
	d.Items = append(d.Items, it)
	return it
}

// Link attaches associated items to master.
func (d *Definition) Link(master *Item, assoc []int) {
	for _, i := range assoc {
		invariant.InRange(i, 0, len(d.Items)-1, "associated index")
		a := d.Items[i]
		invariant.Precondition(a.IsAssociated, "item %q is not associated", a.Name)
		a.Master = master.Index
	}
	master.Assoc = append(master.Assoc, assoc...)
}

// Find returns the non-associated item whose name or token matches exactly.
// A non-zero paramNum restricts the search to that parameter number.
func (d *Definition) Find(name, token string, paramNum int) *Item {
	for _, it := range d.Items {
		if it.IsAssociated || it.Kind == KindEndSection {
			continue
		}
		if paramNum != 0 && it.ParamNum != paramNum {
			continue
		}
		if it.Name == name || (token != "" && it.Token == token) {
			return it
		}
	}
	return nil
}

// Conflict returns the non-associated item whose name or token collides
// with either name or token.
func (d *Definition) Conflict(name, token string) *Item {
	for _, it := range d.Items {
		if it.IsAssociated || it.Kind == KindEndSection {
			continue
		}
		if it.Name == name || it.Token == token || it.Name == token || it.Token == name {
			return it
		}
	}
	return nil
}

// ByName returns the non-associated item called name.
func (d *Definition) ByName(name string) *Item {
	return d.Find(name, "", 0)
}

// Application returns the application item, or nil for an empty definition.
func (d *Definition) Application() *Item {
	if len(d.Items) == 0 || d.Items[0].Kind != KindApplication {
		return nil
	}
	return d.Items[0]
}

// AssocOf returns the associated items of master.
func (d *Definition) AssocOf(master *Item) []*Item {
	out := make([]*Item, len(master.Assoc))
	for i, idx := range master.Assoc {
		out[i] = d.Items[idx]
	}
	return out
}

// MasterOf returns the master of an associated item, or nil.
func (d *Definition) MasterOf(it *Item) *Item {
	if it.Master < 0 {
		return nil
	}
	return d.Items[it.Master]
}

// Parameters returns the positional items ordered by parameter number.
func (d *Definition) Parameters() []*Item {
	var out []*Item
	for _, it := range d.Items {
		if it.Kind == KindParameter && !it.IsAssociated {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ParamNum < out[j].ParamNum })
	return out
}

// Qualifiers returns every item that can be bound from the command line,
// associated ones included, in declaration order.
func (d *Definition) Qualifiers() []*Item {
	var out []*Item
	for _, it := range d.Items {
		if it.IsQualifier() {
			out = append(out, it)
		}
	}
	return out
}
