// Package acderr defines the error taxonomy shared by every phase of the
// definition engine, plus the warning sink used for non-fatal diagnostics.
package acderr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure.
type Kind int

const (
	// KindSyntax covers malformed tokens, unmatched brackets or quotes and
	// unclosed sections. Reported with file and line.
	KindSyntax Kind = iota
	// KindSemantic covers duplicate names, unknown attributes and ambiguous
	// keyword or type matches. Reported with file and line.
	KindSemantic
	// KindCommandLine covers unknown or ambiguous qualifiers, too many
	// parameters and missing or bad values. Reported with the program name.
	KindCommandLine
	// KindValidation is a rejected reply after every retry was used.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindSyntax:
		return "syntax error"
	case KindSemantic:
		return "semantic error"
	case KindCommandLine:
		return "command line error"
	case KindValidation:
		return "validation failure"
	default:
		return "error"
	}
}

// Error is a structured failure with enough context for the CLI to print a
// file:line or program-name prefixed message.
type Error struct {
	Kind        Kind
	Message     string
	File        string // definition file, parse-time errors only
	Line        int    // 1-based line, 0 when unknown
	Program     string // program name, run-time errors only
	Hint        string
	Suggestions []string
	Cause       error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	switch {
	case e.File != "" && e.Line > 0:
		fmt.Fprintf(&b, "%s:%d: ", e.File, e.Line)
	case e.File != "":
		fmt.Fprintf(&b, "%s: ", e.File)
	case e.Line > 0:
		fmt.Fprintf(&b, "line %d: ", e.Line)
	case e.Program != "":
		fmt.Fprintf(&b, "%s: ", e.Program)
	}
	b.WriteString(e.Kind.String())
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap allows errors.Is and errors.As to reach the cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind around cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// At records the source position of a parse-time error.
func (e *Error) At(file string, line int) *Error {
	e.File = file
	e.Line = line
	return e
}

// For records the program name of a run-time error.
func (e *Error) For(program string) *Error {
	e.Program = program
	return e
}

// WithHint attaches a one-line fix suggestion.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// WithSuggestions attaches close matches for an unknown name.
func (e *Error) WithSuggestions(s []string) *Error {
	e.Suggestions = s
	return e
}

// Syntax creates a positioned SyntaxError.
func Syntax(file string, line int, format string, args ...interface{}) *Error {
	return New(KindSyntax, format, args...).At(file, line)
}

// Semantic creates a positioned SemanticError.
func Semantic(file string, line int, format string, args ...interface{}) *Error {
	return New(KindSemantic, format, args...).At(file, line)
}

// CommandLine creates a CommandLineError for program.
func CommandLine(program string, format string, args ...interface{}) *Error {
	return New(KindCommandLine, format, args...).For(program)
}

// Validation creates a ValidationFailure for program.
func Validation(program string, format string, args ...interface{}) *Error {
	return New(KindValidation, format, args...).For(program)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsKind reports whether err's chain holds an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// Snippet renders the source line of a positioned error with a marker, in
// the style
//
//	  --> seqret.acd:12
//	   |
//	12 | endsection: output
//	   | ^
func (e *Error) Snippet(source []byte) string {
	if len(source) == 0 || e.Line <= 0 {
		return ""
	}
	lines := strings.Split(string(source), "\n")
	if e.Line > len(lines) {
		return ""
	}
	content := strings.TrimRight(lines[e.Line-1], "\r")
	indent := len(content) - len(strings.TrimLeft(content, " \t"))

	var b strings.Builder
	where := e.File
	if where == "" {
		where = "line"
	}
	fmt.Fprintf(&b, "  --> %s:%d\n", where, e.Line)
	b.WriteString("   |\n")
	fmt.Fprintf(&b, "%2d | %s\n", e.Line, content)
	b.WriteString("   | ")
	b.WriteString(strings.Repeat(" ", indent))
	b.WriteString("^")
	return b.String()
}
