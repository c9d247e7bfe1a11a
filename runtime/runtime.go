// Package runtime drives one run of a definition: parse, number the
// parameters, match the command line, then resolve every value. Each phase
// completes before the next begins.
package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/opal-lang/acd/core/acderr"
	"github.com/opal-lang/acd/core/model"
	"github.com/opal-lang/acd/core/vocab"
	"github.com/opal-lang/acd/runtime/cmdline"
	"github.com/opal-lang/acd/runtime/config"
	"github.com/opal-lang/acd/runtime/expr"
	"github.com/opal-lang/acd/runtime/output"
	"github.com/opal-lang/acd/runtime/parser"
	"github.com/opal-lang/acd/runtime/prompt"
	"github.com/opal-lang/acd/runtime/valuetype"
)

// ExecutionOptions configures a run.
type ExecutionOptions struct {
	File       string              // definition file name used in diagnostics
	Program    string              // expected application name, if any
	Args       []string            // command line of the program
	Settings   config.Settings     // retries, auto and options modes
	Vocabulary *vocab.Vocabulary   // nil for the standard vocabulary
	Registry   *valuetype.Registry // nil for the built-in value types
	Reader     prompt.LineReader   // where replies come from; nil never prompts
	Prompts    io.Writer           // where menus and reply errors go
	Logger     *slog.Logger        // debug tracing
	Sink       *acderr.Sink        // collects warnings
}

// Result is a completed run.
type Result struct {
	Definition *model.Definition
	Record     output.Record
	Prompts    int
}

// Check parses source and numbers its parameters without running it.
func Check(source io.Reader, opts ExecutionOptions) (*model.Definition, error) {
	opts = withDefaults(opts)
	src, err := io.ReadAll(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", opts.File, err)
	}
	return load(src, opts)
}

// Execute runs the definition read from source against opts.Args.
func Execute(ctx context.Context, source io.Reader, opts ExecutionOptions) (*Result, error) {
	opts = withDefaults(opts)
	src, err := io.ReadAll(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", opts.File, err)
	}
	def, err := load(src, opts)
	if err != nil {
		return nil, err
	}
	return ExecuteDefinition(ctx, def, opts)
}

// ExecuteDefinition matches and resolves an already checked definition.
func ExecuteDefinition(ctx context.Context, def *model.Definition, opts ExecutionOptions) (*Result, error) {
	opts = withDefaults(opts)
	resolver := expr.NewResolver(def, expr.WithSink(opts.Sink), expr.WithVocabulary(opts.Vocabulary))

	bindings, err := cmdline.Match(opts.Args, def,
		cmdline.WithVocabulary(opts.Vocabulary),
		cmdline.WithResolver(resolver),
		cmdline.WithSink(opts.Sink))
	if err != nil {
		return nil, err
	}
	opts.Logger.Debug("command line matched", "program", def.Program, "bindings", len(bindings))

	engineOpts := []prompt.EngineOpt{
		prompt.WithVocabulary(opts.Vocabulary),
		prompt.WithResolver(resolver),
		prompt.WithSink(opts.Sink),
		prompt.WithLogger(opts.Logger),
		prompt.WithRetries(opts.Settings.Retries),
		prompt.WithAuto(opts.Settings.Auto),
		prompt.WithOptions(opts.Settings.Options),
		prompt.WithOutput(opts.Prompts),
	}
	if opts.Registry != nil {
		engineOpts = append(engineOpts, prompt.WithRegistry(opts.Registry))
	}
	if opts.Reader != nil {
		engineOpts = append(engineOpts, prompt.WithReader(opts.Reader))
	}
	engine := prompt.New(def, engineOpts...)
	if err := engine.Run(ctx); err != nil {
		return nil, err
	}

	return &Result{
		Definition: def,
		Record:     output.FromDefinition(def),
		Prompts:    engine.Prompts(),
	}, nil
}

func load(src []byte, opts ExecutionOptions) (*model.Definition, error) {
	parseOpts := []parser.ParserOpt{
		parser.WithFile(opts.File),
		parser.WithVocabulary(opts.Vocabulary),
		parser.WithLogger(opts.Logger),
		parser.WithSink(opts.Sink),
	}
	if opts.Program != "" {
		parseOpts = append(parseOpts, parser.WithProgram(opts.Program))
	}
	def, err := parser.Parse(src, parseOpts...)
	if err != nil {
		return nil, err
	}
	resolver := expr.NewResolver(def, expr.WithSink(opts.Sink), expr.WithVocabulary(opts.Vocabulary))
	if err := parser.Process(def, resolver); err != nil {
		return nil, err
	}
	opts.Logger.Debug("definition loaded",
		"program", def.Program,
		"items", len(def.Items),
		"parameters", len(def.Parameters()))
	return def, nil
}

func withDefaults(opts ExecutionOptions) ExecutionOptions {
	if opts.File == "" {
		opts.File = "<stdin>"
	}
	if opts.Settings.Retries == 0 {
		opts.Settings.Retries = prompt.DefaultRetries
	}
	if opts.Vocabulary == nil {
		opts.Vocabulary = vocab.Standard()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Sink == nil {
		opts.Sink = acderr.NewSink(opts.Logger)
	}
	if opts.Prompts == nil {
		opts.Prompts = os.Stderr
	}
	return opts
}
