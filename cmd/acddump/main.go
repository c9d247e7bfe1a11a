// Command acddump prints the item table of a parsed definition.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/opal-lang/acd/core/acderr"
	"github.com/opal-lang/acd/core/model"
	"github.com/opal-lang/acd/runtime"
)

// Exit code constants
const (
	ExitSuccess          = 0
	ExitInvalidArguments = 1
	ExitIOError          = 2
	ExitParseError       = 3
)

func main() {
	os.Exit(dump(os.Args[1:], os.Stdout, os.Stderr))
}

type itemDump struct {
	Index    int               `json:"index"`
	Kind     string            `json:"kind"`
	Name     string            `json:"name"`
	Token    string            `json:"token,omitempty"`
	Type     string            `json:"type"`
	Line     int               `json:"line"`
	ParamNum int               `json:"param,omitempty"`
	Master   string            `json:"master,omitempty"`
	Attrs    map[string]string `json:"attributes,omitempty"`
}

func dump(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("acddump", flag.ContinueOnError)
	flags.SetOutput(stderr)
	var format string
	var debug bool
	flags.StringVar(&format, "format", "text", "Output format: 'text' or 'json'")
	flags.BoolVar(&debug, "debug", false, "Enable debug output")
	flags.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "Usage: acddump [options] <definition-file>\n\nOptions:\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return ExitInvalidArguments
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return ExitInvalidArguments
	}
	if format != "text" && format != "json" {
		_, _ = fmt.Fprintf(stderr, "Error: unsupported format '%s'. Use 'text' or 'json'\n", format)
		return ExitInvalidArguments
	}

	inputFile := flags.Arg(0)
	content, err := os.ReadFile(inputFile)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error reading file: %v\n", err)
		return ExitIOError
	}

	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	sink := acderr.NewSink(nil)
	def, err := runtime.Check(bytes.NewReader(content), runtime.ExecutionOptions{
		File:   inputFile,
		Logger: logger,
		Sink:   sink,
	})
	for _, w := range sink.Warnings() {
		_, _ = fmt.Fprintln(stderr, w.String())
	}
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error parsing definition: %v\n", err)
		return ExitParseError
	}

	items := collect(def)
	if format == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(items); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error writing output: %v\n", err)
			return ExitIOError
		}
		return ExitSuccess
	}
	if err := writeTable(stdout, items); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error writing output: %v\n", err)
		return ExitIOError
	}
	return ExitSuccess
}

func collect(def *model.Definition) []itemDump {
	out := make([]itemDump, 0, len(def.Items))
	for _, it := range def.Items {
		d := itemDump{
			Index:    it.Index,
			Kind:     it.Kind.String(),
			Name:     it.Name,
			Token:    it.Token,
			Type:     it.Type,
			Line:     it.Line,
			ParamNum: it.ParamNum,
		}
		if m := def.MasterOf(it); m != nil {
			d.Master = m.Name
		}
		attrs := it.Generic.Map()
		for k, v := range it.Attrs.Map() {
			attrs[k] = v
		}
		if len(attrs) > 0 {
			d.Attrs = attrs
		}
		out = append(out, d)
	}
	return out
}

// writeTable prints one row per item. Attributes are only in the json form.
func writeTable(w io.Writer, items []itemDump) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "#\tKIND\tNAME\tTYPE\tLINE\tMASTER")
	for _, d := range items {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n", d.Index, d.Kind, d.Name, d.Type, d.Line, orDash(d.Master))
	}
	return tw.Flush()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
