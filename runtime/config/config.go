// Package config loads run settings from .acd/settings.yaml with
// environment overrides. Command-line flags override both and are applied
// by the caller.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/opal-lang/acd/runtime/expr"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the settings file looked up relative to the working
// directory.
var DefaultPath = filepath.Join(".acd", "settings.yaml")

// Output formats.
const (
	FormatText = "text"
	FormatYAML = "yaml"
	FormatJSON = "json"
	FormatCBOR = "cbor"
)

// Settings controls one run.
type Settings struct {
	// Retries bounds the replies read for one prompted item.
	Retries int `yaml:"retries"`
	// Auto never prompts: required items take their defaults.
	Auto bool `yaml:"auto"`
	// Options also prompts for items marked additional.
	Options bool `yaml:"options"`
	// Format of the resolved values written by "acd run".
	Format string `yaml:"format"`
	// Vocabulary is the path of a vocabulary file replacing the standard one.
	Vocabulary string `yaml:"vocabulary"`
}

// Default returns the settings used when no file exists.
func Default() Settings {
	return Settings{Retries: 3, Format: FormatText}
}

// Load reads the settings file at path over the defaults, then applies the
// environment. A missing file is not an error. A relative vocabulary path is
// taken from the directory holding the settings file.
func Load(path string) (Settings, error) {
	s := Default()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return s, fmt.Errorf("read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return s, fmt.Errorf("unmarshal %s: %w", path, err)
		}
		if s.Vocabulary != "" && !filepath.IsAbs(s.Vocabulary) {
			s.Vocabulary = filepath.Join(filepath.Dir(path), s.Vocabulary)
		}
	}
	if err := s.applyEnv(os.LookupEnv); err != nil {
		return s, err
	}
	return s, s.Validate()
}

func (s *Settings) applyEnv(lookup func(string) (string, bool)) error {
	for _, b := range []struct {
		name string
		dst  *bool
	}{
		{"ACD_AUTO", &s.Auto},
		{"ACD_OPTIONS", &s.Options},
	} {
		v, ok := lookup(b.name)
		if !ok || v == "" {
			continue
		}
		parsed, ok := expr.ParseBool(v)
		if !ok {
			return fmt.Errorf("%s: %q is not a boolean", b.name, v)
		}
		*b.dst = parsed
	}
	if v, ok := lookup("ACD_RETRIES"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ACD_RETRIES: %q is not a number", v)
		}
		s.Retries = n
	}
	return nil
}

// Validate checks the field values.
func (s Settings) Validate() error {
	if s.Retries < 1 {
		return fmt.Errorf("retries must be at least 1, got %d", s.Retries)
	}
	switch strings.ToLower(s.Format) {
	case FormatText, FormatYAML, FormatJSON, FormatCBOR:
		return nil
	}
	return fmt.Errorf("unknown format %q (want text, yaml, json or cbor)", s.Format)
}
