package parser

import (
	"log/slog"
	"time"

	"github.com/opal-lang/acd/core/acderr"
	"github.com/opal-lang/acd/core/vocab"
)

// ParserOpt represents a parser configuration option
type ParserOpt func(*ParserConfig)

// ParserConfig holds parser configuration
type ParserConfig struct {
	file    string
	program string
	vocab   *vocab.Vocabulary
	logger  *slog.Logger
	sink    *acderr.Sink
	now     func() time.Time
}

// WithFile names the definition file in diagnostics.
func WithFile(name string) ParserOpt {
	return func(c *ParserConfig) {
		c.file = name
	}
}

// WithProgram requires the application statement to name program.
func WithProgram(program string) ParserOpt {
	return func(c *ParserConfig) {
		c.program = program
	}
}

// WithVocabulary replaces the standard vocabulary.
func WithVocabulary(v *vocab.Vocabulary) ParserOpt {
	return func(c *ParserConfig) {
		c.vocab = v
	}
}

// WithLogger sets the logger for debug tracing.
func WithLogger(logger *slog.Logger) ParserOpt {
	return func(c *ParserConfig) {
		c.logger = logger
	}
}

// WithSink collects warnings (accepted abbreviations, deprecated aliases).
func WithSink(sink *acderr.Sink) ParserOpt {
	return func(c *ParserConfig) {
		c.sink = sink
	}
}

// WithClock sets the clock used for the automatic "today" variable.
func WithClock(now func() time.Time) ParserOpt {
	return func(c *ParserConfig) {
		c.now = now
	}
}

func newConfig(opts []ParserOpt) *ParserConfig {
	c := &ParserConfig{
		vocab:  vocab.Standard(),
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
