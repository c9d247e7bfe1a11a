package prompt

import (
	"io"
	"log/slog"

	"github.com/opal-lang/acd/core/acderr"
	"github.com/opal-lang/acd/core/vocab"
	"github.com/opal-lang/acd/runtime/expr"
	"github.com/opal-lang/acd/runtime/valuetype"
)

// DefaultRetries is the number of replies accepted for one item before
// giving up.
const DefaultRetries = 3

// EngineOpt configures an Engine.
type EngineOpt func(*EngineConfig)

// EngineConfig holds engine configuration.
type EngineConfig struct {
	reader   LineReader
	out      io.Writer
	retries  int
	auto     bool
	options  bool
	vocab    *vocab.Vocabulary
	registry *valuetype.Registry
	resolver *expr.Resolver
	sink     *acderr.Sink
	logger   *slog.Logger
}

// WithReader sets where replies come from. Without one, every required
// item that needs a reply fails.
func WithReader(r LineReader) EngineOpt {
	return func(c *EngineConfig) {
		c.reader = r
	}
}

// WithOutput sets where menus and error messages are written.
func WithOutput(w io.Writer) EngineOpt {
	return func(c *EngineConfig) {
		c.out = w
	}
}

// WithRetries bounds the replies read for one item.
func WithRetries(n int) EngineOpt {
	return func(c *EngineConfig) {
		if n > 0 {
			c.retries = n
		}
	}
}

// WithAuto turns off prompting: required items take their defaults.
func WithAuto(auto bool) EngineOpt {
	return func(c *EngineConfig) {
		c.auto = auto
	}
}

// WithOptions also prompts for items marked additional.
func WithOptions(options bool) EngineOpt {
	return func(c *EngineConfig) {
		c.options = options
	}
}

// WithVocabulary replaces the standard vocabulary.
func WithVocabulary(v *vocab.Vocabulary) EngineOpt {
	return func(c *EngineConfig) {
		c.vocab = v
	}
}

// WithRegistry replaces the value types built from the vocabulary.
func WithRegistry(r *valuetype.Registry) EngineOpt {
	return func(c *EngineConfig) {
		c.registry = r
	}
}

// WithResolver shares a resolver with earlier phases.
func WithResolver(r *expr.Resolver) EngineOpt {
	return func(c *EngineConfig) {
		c.resolver = r
	}
}

// WithSink collects warnings.
func WithSink(sink *acderr.Sink) EngineOpt {
	return func(c *EngineConfig) {
		c.sink = sink
	}
}

// WithLogger sets the logger for debug tracing.
func WithLogger(logger *slog.Logger) EngineOpt {
	return func(c *EngineConfig) {
		c.logger = logger
	}
}
