// Package vocab holds the static tables every definition is checked
// against: statement keywords, generic and per-statement attributes,
// attribute aliases and the known value types with their type-specific
// attributes, associated qualifiers and calculated attributes.
//
// The standard vocabulary is embedded and loaded once. Alternative
// vocabularies can be loaded from YAML and are validated against the same
// JSON schema before use.
package vocab

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/opal-lang/acd/core/invariant"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var standardYAML []byte

//go:embed vocabulary.schema.json
var schemaJSON []byte

// Type groups.
const (
	GroupSimple    = "simple"
	GroupInput     = "input"
	GroupSelection = "selection"
	GroupOutput    = "output"
	GroupGraphics  = "graphics"
)

// Attribute is a name with its default value.
type Attribute struct {
	Name    string `yaml:"name"`
	Default string `yaml:"default"`
}

// Associated describes a qualifier instantiated alongside every item of the
// owning type.
type Associated struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Default     string `yaml:"default"`
	Information string `yaml:"information"`
}

// Type is one known value type.
type Type struct {
	Name       string       `yaml:"name"`
	Group      string       `yaml:"group"`
	Boolean    bool         `yaml:"boolean"`
	Fallback   string       `yaml:"fallback"`
	Prompt     string       `yaml:"prompt"`
	Attributes []Attribute  `yaml:"attributes"`
	Associated []Associated `yaml:"associated"`
	Calculated []string     `yaml:"calculated"`
}

// Attribute looks up a type-specific attribute.
func (t *Type) Attribute(name string) (Attribute, bool) {
	for _, a := range t.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// AttributeNames returns the type-specific attribute names in table order.
func (t *Type) AttributeNames() []string {
	return attributeNames(t.Attributes)
}

// IsCalculated reports whether name is a calculated attribute of t.
func (t *Type) IsCalculated(name string) bool {
	for _, c := range t.Calculated {
		if c == name {
			return true
		}
	}
	return false
}

// Vocabulary is a loaded, validated set of tables. It is read-only after
// Load returns.
type Vocabulary struct {
	Version    string                 `yaml:"version"`
	Keywords   []string               `yaml:"keywords"`
	Aliases    map[string]string      `yaml:"aliases"`
	Generic    []Attribute            `yaml:"generic"`
	Statements map[string][]Attribute `yaml:"statements"`
	Types      []Type                 `yaml:"types"`
	KnownTypes map[string]string      `yaml:"knowntypes"`

	typeIndex map[string]int
	aliasKeys []string
}

var (
	standardOnce sync.Once
	standard     *Vocabulary
)

// Standard returns the embedded vocabulary. It panics if the embedded
// tables are invalid, which can only happen through a bad build.
func Standard() *Vocabulary {
	standardOnce.Do(func() {
		v, err := Load(standardYAML)
		invariant.ExpectNoError(err, "loading embedded vocabulary")
		standard = v
	})
	return standard
}

// LoadFile reads and validates a vocabulary from path.
func LoadFile(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	v, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// Load decodes data, validates it against the vocabulary schema and checks
// cross-references the schema cannot express.
func Load(data []byte) (*Vocabulary, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode vocabulary: %w", err)
	}
	if err := v.index(); err != nil {
		return nil, err
	}
	return &v, nil
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func vocabularySchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true
		if compiler.Formats == nil {
			compiler.Formats = make(map[string]func(interface{}) bool)
		}
		compiler.Formats["semver"] = isSemver

		const url = "schema://vocabulary.json"
		if err := compiler.AddResource(url, bytes.NewReader(schemaJSON)); err != nil {
			compileErr = err
			return
		}
		compiled, compileErr = compiler.Compile(url)
	})
	return compiled, compileErr
}

// validateSchema converts the YAML document to its JSON data model and runs
// the schema over it.
func validateSchema(data []byte) error {
	schema, err := vocabularySchema()
	if err != nil {
		return fmt.Errorf("compile vocabulary schema: %w", err)
	}

	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode vocabulary: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("convert vocabulary: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var instance interface{}
	if err := dec.Decode(&instance); err != nil {
		return fmt.Errorf("convert vocabulary: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("invalid vocabulary: %w", err)
	}
	return nil
}

func isSemver(v interface{}) bool {
	s, ok := v.(string)
	if !ok {
		return true
	}
	if !strings.HasPrefix(s, "v") {
		s = "v" + s
	}
	return semver.IsValid(s)
}

func (v *Vocabulary) index() error {
	v.typeIndex = make(map[string]int, len(v.Types))
	for i, t := range v.Types {
		if _, dup := v.typeIndex[t.Name]; dup {
			return fmt.Errorf("invalid vocabulary: duplicate type %q", t.Name)
		}
		v.typeIndex[t.Name] = i
	}
	for i := range v.Types {
		t := &v.Types[i]
		seen := map[string]bool{}
		for _, a := range t.Associated {
			if _, ok := v.typeIndex[a.Type]; !ok {
				return fmt.Errorf("invalid vocabulary: type %q: associated qualifier %q has unknown type %q", t.Name, a.Name, a.Type)
			}
			if seen[a.Name] {
				return fmt.Errorf("invalid vocabulary: type %q: duplicate associated qualifier %q", t.Name, a.Name)
			}
			seen[a.Name] = true
		}
	}

	generic := map[string]bool{}
	for _, a := range v.Generic {
		generic[a.Name] = true
	}
	for alias, target := range v.Aliases {
		if !generic[target] {
			return fmt.Errorf("invalid vocabulary: alias %q names unknown attribute %q", alias, target)
		}
		v.aliasKeys = append(v.aliasKeys, alias)
	}
	sort.Strings(v.aliasKeys)
	return nil
}

// Type looks up a value type by its exact name.
func (v *Vocabulary) Type(name string) (*Type, bool) {
	i, ok := v.typeIndex[name]
	if !ok {
		return nil, false
	}
	return &v.Types[i], true
}

// TypeNames returns all type names in table order.
func (v *Vocabulary) TypeNames() []string {
	names := make([]string, len(v.Types))
	for i, t := range v.Types {
		names[i] = t.Name
	}
	return names
}

// GenericNames returns the generic attribute names in table order.
func (v *Vocabulary) GenericNames() []string {
	return attributeNames(v.Generic)
}

// GenericAttribute looks up a generic attribute.
func (v *Vocabulary) GenericAttribute(name string) (Attribute, bool) {
	for _, a := range v.Generic {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// AliasNames returns the deprecated alias spellings, sorted.
func (v *Vocabulary) AliasNames() []string {
	return v.aliasKeys
}

// Alias resolves a deprecated attribute spelling.
func (v *Vocabulary) Alias(name string) (string, bool) {
	target, ok := v.Aliases[name]
	return target, ok
}

// StatementAttributes returns the attribute table for a non-data-item
// statement keyword, or nil.
func (v *Vocabulary) StatementAttributes(keyword string) []Attribute {
	return v.Statements[keyword]
}

// KnownType returns the description registered for a knowntype value.
func (v *Vocabulary) KnownType(name string) (string, bool) {
	desc, ok := v.KnownTypes[strings.ToLower(name)]
	return desc, ok
}

func attributeNames(attrs []Attribute) []string {
	names := make([]string, len(attrs))
	for i, a := range attrs {
		names[i] = a.Name
	}
	return names
}
