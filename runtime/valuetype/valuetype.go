// Package valuetype turns replies into typed values. Each known value type
// has a ValueType; hosts replace the pass-through implementations with real
// readers for domain types such as sequences or matrices.
package valuetype

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/opal-lang/acd/core/model"
	"github.com/opal-lang/acd/core/vocab"
)

// Result is an accepted reply.
type Result struct {
	Value     any
	Canonical string
	Calc      map[string]string // calculated attributes, if the type has any
}

// AttrFunc returns the resolved value of an attribute of the item being
// set, or "" when it has none.
type AttrFunc func(name string) string

// ValueType validates and converts replies for one type.
type ValueType interface {
	Name() string
	// Set converts reply. The error message is shown to the user, who is
	// asked again when retries remain.
	Set(it *model.Item, reply string, attr AttrFunc) (Result, error)
	// PromptText is the prompt used when the item defines none.
	PromptText(it *model.Item, attr AttrFunc) string
}

// Menu is implemented by types that show their choices before prompting.
type Menu interface {
	Menu(it *model.Item, attr AttrFunc) []string
}

// Registry maps type names to implementations.
type Registry struct {
	mu    sync.RWMutex
	types map[string]ValueType
}

// NewRegistry returns a registry holding a built-in implementation for
// every type of v.
func NewRegistry(v *vocab.Vocabulary) *Registry {
	r := &Registry{types: make(map[string]ValueType)}
	schemas := newSchemaCache(64)

	for _, name := range v.TypeNames() {
		typ, _ := v.Type(name)
		base := base{typ: typ}
		switch {
		case typ.Boolean:
			r.Register(booleanType{base})
		case name == "integer":
			r.Register(integerType{base, schemas})
		case name == "float":
			r.Register(floatType{base, schemas})
		case name == "string":
			r.Register(stringType{base, schemas})
		case name == "array":
			r.Register(arrayType{base})
		case name == "range":
			r.Register(rangeType{base})
		case name == "regexp" || name == "pattern":
			r.Register(regexpType{base, schemas})
		case name == "list" || name == "selection":
			r.Register(listType{base})
		case name == "infile" || name == "directory" || name == "dirlist":
			r.Register(pathType{base})
		case name == "filelist":
			r.Register(fileListType{base})
		case typ.Group == "output":
			r.Register(outputType{base})
		default:
			r.Register(passThrough{base})
		}
	}
	return r
}

// Register adds or replaces the implementation for vt.Name().
func (r *Registry) Register(vt ValueType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[vt.Name()] = vt
}

// Lookup returns the implementation for a type name.
func (r *Registry) Lookup(name string) (ValueType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	vt, ok := r.types[name]
	return vt, ok
}

// Names returns the registered type names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.types))
	for name := range r.types {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// base carries the vocabulary entry shared by every implementation.
type base struct {
	typ *vocab.Type
}

func (b base) Name() string { return b.typ.Name }

func (b base) PromptText(it *model.Item, attr AttrFunc) string {
	return b.typ.Prompt
}

// allowEmpty handles an empty reply: accepted as empty when nullok is set.
func allowEmpty(reply string, attr AttrFunc) (Result, bool, error) {
	if strings.TrimSpace(reply) != "" {
		return Result{}, false, nil
	}
	if isTrue(attr("nullok")) {
		return Result{Value: "", Canonical: ""}, true, nil
	}
	return Result{}, true, fmt.Errorf("a value is required")
}

// passThrough accepts any non-empty reply unchanged. Input types with name
// and usa calculated attributes get them from the reply.
type passThrough struct{ base }

func (p passThrough) Set(it *model.Item, reply string, attr AttrFunc) (Result, error) {
	if res, done, err := allowEmpty(reply, attr); done {
		return res, err
	}
	reply = strings.TrimSpace(reply)
	res := Result{Value: reply, Canonical: reply}
	for _, c := range p.typ.Calculated {
		switch c {
		case "name":
			setCalc(&res, "name", baseName(reply))
		case "usa":
			setCalc(&res, "usa", reply)
		}
	}
	return res, nil
}

func setCalc(res *Result, name, value string) {
	if res.Calc == nil {
		res.Calc = make(map[string]string)
	}
	res.Calc[name] = value
}
