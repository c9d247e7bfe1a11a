// Package output writes the resolved values of a run as a Record. The
// record carries a digest of the definition source so consumers can tell
// which definition produced it.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/opal-lang/acd/core/model"
	"github.com/opal-lang/acd/runtime/config"
	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"
)

// Value is one resolved item.
type Value struct {
	Name       string            `json:"name" yaml:"name" cbor:"1,keyasint"`
	Kind       string            `json:"kind" yaml:"kind" cbor:"2,keyasint"`
	Type       string            `json:"type" yaml:"type" cbor:"3,keyasint"`
	Value      string            `json:"value" yaml:"value" cbor:"4,keyasint"`
	User       bool              `json:"user,omitempty" yaml:"user,omitempty" cbor:"5,keyasint,omitempty"`
	Master     string            `json:"master,omitempty" yaml:"master,omitempty" cbor:"6,keyasint,omitempty"`
	Calculated map[string]string `json:"calculated,omitempty" yaml:"calculated,omitempty" cbor:"7,keyasint,omitempty"`
}

// Record is the result of one run.
type Record struct {
	Program string  `json:"program" yaml:"program" cbor:"1,keyasint"`
	Digest  string  `json:"digest" yaml:"digest" cbor:"2,keyasint"`
	Values  []Value `json:"values" yaml:"values" cbor:"3,keyasint"`
}

// Digest returns the BLAKE2b-256 hash of src as "blake2b:<hex>".
func Digest(src []byte) string {
	return fmt.Sprintf("blake2b:%x", blake2b.Sum256(src))
}

// FromDefinition collects every defined variable, parameter and qualifier
// of def in declaration order.
func FromDefinition(def *model.Definition) Record {
	rec := Record{Program: def.Program, Digest: Digest(def.Source)}
	for _, it := range def.Items {
		if !it.Defined || (it.Kind != model.KindVariable && !it.IsQualifier()) {
			continue
		}
		v := Value{
			Name:  it.Name,
			Kind:  it.Kind.String(),
			Type:  it.Type,
			Value: it.ValueString,
			User:  it.UserDefined,
		}
		if m := def.MasterOf(it); m != nil {
			v.Master = m.Name
		}
		if len(it.Calc) > 0 {
			v.Calculated = it.Calc
		}
		rec.Values = append(rec.Values, v)
	}
	return rec
}

// Lookup returns the value of the first entry named name.
func (r Record) Lookup(name string) (Value, bool) {
	for _, v := range r.Values {
		if v.Name == name {
			return v, true
		}
	}
	return Value{}, false
}

// Write encodes r to w in one of the config formats.
func Write(w io.Writer, r Record, format string) error {
	switch strings.ToLower(format) {
	case config.FormatText, "":
		return writeText(w, r)
	case config.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("yaml encoding failed: %w", err)
		}
		return enc.Close()
	case config.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case config.FormatCBOR:
		data, err := MarshalCBOR(r)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	return fmt.Errorf("unknown format %q", format)
}

// MarshalCBOR encodes r deterministically.
func MarshalCBOR(r Record) ([]byte, error) {
	encMode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
	}
	data, err := encMode.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("CBOR encoding failed: %w", err)
	}
	return data, nil
}

// UnmarshalCBOR decodes a record written by MarshalCBOR.
func UnmarshalCBOR(data []byte) (Record, error) {
	var r Record
	if err := cbor.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("CBOR decoding failed: %w", err)
	}
	return r, nil
}

// writeText writes one "name=value" line per value. Associated values are
// written as name_master.
func writeText(w io.Writer, r Record) error {
	for _, v := range r.Values {
		name := v.Name
		if v.Master != "" {
			name += "_" + v.Master
		}
		if _, err := fmt.Fprintf(w, "%s=%s\n", name, v.Value); err != nil {
			return err
		}
	}
	return nil
}
