package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/opal-lang/acd/core/acderr"
	"github.com/opal-lang/acd/core/vocab"
	"github.com/opal-lang/acd/runtime"
	"github.com/opal-lang/acd/runtime/config"
	"github.com/opal-lang/acd/runtime/output"
	"github.com/opal-lang/acd/runtime/prompt"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// app holds the flags and streams of one invocation.
type app struct {
	stdin  *os.File
	stdout io.Writer
	stderr io.Writer

	configPath string
	debug      bool
	noColor    bool
	auto       bool
	options    bool
	retries    int
	format     string
	vocabulary string
	watch      bool
	list       bool

	source []byte // definition text of the last failing run, for snippets
}

// reported marks an error already written to stderr.
type reported struct{ error }

func (r reported) Unwrap() error { return r.error }

func run(ctx context.Context, args []string, stdin *os.File, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	var done reported
	if err != nil && !errors.As(err, &done) {
		FormatError(stderr, err, a.source, a.useColor())
	}
	return ExitCode(err)
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "acd",
		Short:         "Check and run command definition files",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath, "Path to the settings file")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug output")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")
	root.PersistentFlags().StringVar(&a.vocabulary, "vocabulary", "", "Vocabulary file replacing the standard one")

	runCmd := &cobra.Command{
		Use:   "run <definition> [program arguments...]",
		Short: "Resolve the values of a definition against a command line",
		Long: `Parse the definition, match the program arguments against its parameters
and qualifiers, and prompt for any required value still missing. The
resolved values are written to stdout.`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.runDefinition,
	}
	runCmd.Flags().SetInterspersed(false)
	runCmd.Flags().BoolVar(&a.auto, "auto", false, "Never prompt; required items take their defaults")
	runCmd.Flags().BoolVar(&a.options, "options", false, "Also prompt for additional items")
	runCmd.Flags().IntVar(&a.retries, "retries", 0, "Replies accepted per prompted item")
	runCmd.Flags().StringVar(&a.format, "format", "", "Output format: text, yaml, json or cbor")

	checkCmd := &cobra.Command{
		Use:   "check <definition>...",
		Short: "Parse definitions and report errors and warnings",
		Args:  cobra.MinimumNArgs(1),
		RunE:  a.checkDefinitions,
	}
	checkCmd.Flags().BoolVarP(&a.watch, "watch", "w", false, "Check again whenever a definition changes")
	checkCmd.Flags().BoolVarP(&a.list, "list", "l", false, "Show the items of each definition")

	root.AddCommand(runCmd, checkCmd)
	return root
}

// settings loads the settings file and applies the flags given explicitly.
func (a *app) settings(cmd *cobra.Command) (config.Settings, error) {
	s, err := config.Load(a.configPath)
	if err != nil {
		return s, &CLIError{Code: ExitInvalidArguments, Message: "invalid settings", Cause: err}
	}
	flags := cmd.Flags()
	if flags.Changed("auto") {
		s.Auto = a.auto
	}
	if flags.Changed("options") {
		s.Options = a.options
	}
	if flags.Changed("retries") {
		s.Retries = a.retries
	}
	if flags.Changed("format") {
		s.Format = a.format
	}
	if a.vocabulary != "" {
		s.Vocabulary = a.vocabulary
	}
	if err := s.Validate(); err != nil {
		return s, usageError("%v", err)
	}
	return s, nil
}

func (a *app) loadVocabulary(s config.Settings) (*vocab.Vocabulary, error) {
	if s.Vocabulary == "" {
		return vocab.Standard(), nil
	}
	v, err := vocab.LoadFile(s.Vocabulary)
	if err != nil {
		return nil, ioError(err, "cannot load vocabulary")
	}
	return v, nil
}

func (a *app) runDefinition(cmd *cobra.Command, args []string) error {
	s, err := a.settings(cmd)
	if err != nil {
		return err
	}
	v, err := a.loadVocabulary(s)
	if err != nil {
		return err
	}
	file := args[0]
	src, err := os.ReadFile(file)
	if err != nil {
		return ioError(err, "cannot read definition")
	}

	logger := a.logger()
	sink := acderr.NewSink(nil) // rendered by FormatWarnings
	reader := prompt.NewReader(a.stdin, a.stderr)
	defer func() { _ = prompt.Close(reader) }()

	res, err := runtime.Execute(cmd.Context(), bytes.NewReader(src), runtime.ExecutionOptions{
		File:       file,
		Args:       args[1:],
		Settings:   s,
		Vocabulary: v,
		Reader:     reader,
		Prompts:    a.stderr,
		Logger:     logger,
		Sink:       sink,
	})
	FormatWarnings(a.stderr, sink.Warnings(), a.useColor())
	if err != nil {
		a.source = src
		return err
	}
	if err := output.Write(a.stdout, res.Record, s.Format); err != nil {
		return ioError(err, "cannot write values")
	}
	return nil
}

func (a *app) checkDefinitions(cmd *cobra.Command, args []string) error {
	s, err := a.settings(cmd)
	if err != nil {
		return err
	}
	v, err := a.loadVocabulary(s)
	if err != nil {
		return err
	}

	var first error
	for _, file := range args {
		if err := a.checkFile(file, v); err != nil && first == nil {
			first = err
		}
	}
	if a.watch {
		return a.watchFiles(cmd.Context(), args, func(file string) {
			_ = a.checkFile(file, v)
		})
	}
	if first != nil {
		return reported{first}
	}
	return nil
}

// checkFile checks one definition and reports the outcome.
func (a *app) checkFile(file string, v *vocab.Vocabulary) error {
	useColor := a.useColor()
	src, err := os.ReadFile(file)
	if err != nil {
		err = ioError(err, "cannot read %s", file)
		FormatError(a.stderr, err, nil, useColor)
		return err
	}

	sink := acderr.NewSink(nil)
	def, err := runtime.Check(bytes.NewReader(src), runtime.ExecutionOptions{
		File:       file,
		Vocabulary: v,
		Logger:     a.logger(),
		Sink:       sink,
	})
	FormatWarnings(a.stderr, sink.Warnings(), useColor)
	if err != nil {
		FormatError(a.stderr, err, src, useColor)
		return err
	}
	_, _ = fmt.Fprintf(a.stdout, "%s %s: %s (%d parameters, %d qualifiers)\n",
		Colorize("ok", ColorGreen, useColor), file, def.Program,
		len(def.Parameters()), len(def.Qualifiers())-len(def.Parameters()))
	if a.list {
		DisplayDefinition(a.stdout, def, useColor)
	}
	return nil
}

func (a *app) logger() *slog.Logger {
	level := slog.LevelInfo
	if a.debug || os.Getenv("ACD_DEBUG") != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
}

func (a *app) useColor() bool {
	f, ok := a.stderr.(*os.File)
	return ok && ShouldUseColor(a.noColor, f)
}
