package valuetype

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/crypto/blake2b"
)

// bounds is the subset of JSON Schema used to check scalar replies. Only
// the set fields are emitted, so identical limits share one compiled schema.
type bounds struct {
	Type             string   `json:"type"`
	Minimum          *float64 `json:"minimum,omitempty"`
	Maximum          *float64 `json:"maximum,omitempty"`
	ExclusiveMinimum *float64 `json:"exclusiveMinimum,omitempty"`
	MinLength        *int     `json:"minLength,omitempty"`
	MaxLength        *int     `json:"maxLength,omitempty"`
	Pattern          string   `json:"pattern,omitempty"`
}

// schemaCache holds compiled schemas keyed by the hash of their JSON.
type schemaCache struct {
	mu      sync.RWMutex
	cache   map[string]*jsonschema.Schema
	maxSize int
}

func newSchemaCache(maxSize int) *schemaCache {
	return &schemaCache{cache: make(map[string]*jsonschema.Schema), maxSize: maxSize}
}

func (c *schemaCache) compile(b bounds) (*jsonschema.Schema, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	sum := blake2b.Sum256(data)
	key := hex.EncodeToString(sum[:])

	c.mu.RLock()
	s, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return s, nil
	}

	url := "acd://bounds/" + key + ".json"
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(url, strings.NewReader(string(data))); err != nil {
		return nil, fmt.Errorf("failed to add schema: %w", err)
	}
	s, err = compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("invalid limits: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.cache) >= c.maxSize {
		c.cache = make(map[string]*jsonschema.Schema)
	}
	c.cache[key] = s
	return s, nil
}

// check validates v against b and reports the innermost failure. shown is
// the reply as the user typed it.
func (c *schemaCache) check(b bounds, v interface{}, shown string) error {
	s, err := c.compile(b)
	if err != nil {
		return err
	}
	if err := s.Validate(v); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return err
		}
		for len(ve.Causes) > 0 {
			ve = ve.Causes[0]
		}
		return b.explain(ve.KeywordLocation, shown, ve.Message)
	}
	return nil
}

func (b bounds) explain(keyword, shown, fallback string) error {
	keyword = keyword[strings.LastIndex(keyword, "/")+1:]
	switch keyword {
	case "minimum":
		return fmt.Errorf("%s is less than the minimum %s", shown, formatLimit(*b.Minimum))
	case "exclusiveMinimum":
		return fmt.Errorf("%s must be greater than %s", shown, formatLimit(*b.ExclusiveMinimum))
	case "maximum":
		return fmt.Errorf("%s is greater than the maximum %s", shown, formatLimit(*b.Maximum))
	case "minLength":
		return fmt.Errorf("%q is shorter than %d characters", shown, *b.MinLength)
	case "maxLength":
		return fmt.Errorf("%q is longer than %d characters", shown, *b.MaxLength)
	case "pattern":
		return fmt.Errorf("%q does not match %s", shown, b.Pattern)
	}
	return errors.New(fallback)
}

func formatLimit(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
