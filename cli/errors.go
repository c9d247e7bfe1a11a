package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/opal-lang/acd/core/acderr"
)

// Exit codes
const (
	ExitSuccess          = 0
	ExitInvalidArguments = 1
	ExitIOError          = 2
	ExitDefinitionError  = 3
	ExitCommandLineError = 4
	ExitValidationError  = 5
)

// CLIError is a usage or I/O failure of acd itself rather than of the
// definition being run.
type CLIError struct {
	Code    int
	Message string
	Hint    string
	Cause   error
}

func (e *CLIError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *CLIError) Unwrap() error { return e.Cause }

func usageError(format string, args ...interface{}) *CLIError {
	return &CLIError{Code: ExitInvalidArguments, Message: fmt.Sprintf(format, args...)}
}

func ioError(cause error, format string, args ...interface{}) *CLIError {
	return &CLIError{Code: ExitIOError, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}
	kind, ok := acderr.KindOf(err)
	if !ok {
		// an interrupted run counts as a failed validation
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ExitValidationError
		}
		return ExitInvalidArguments
	}
	switch kind {
	case acderr.KindSyntax, acderr.KindSemantic:
		return ExitDefinitionError
	case acderr.KindCommandLine:
		return ExitCommandLineError
	case acderr.KindValidation:
		return ExitValidationError
	}
	return ExitInvalidArguments
}

// FormatError formats an error for CLI output with colors. source, when
// given, is the definition text used to show the failing line.
func FormatError(w io.Writer, err error, source []byte, useColor bool) {
	if err == nil {
		return
	}

	var acdErr *acderr.Error
	var cliErr *CLIError
	switch {
	case errors.As(err, &acdErr):
		formatDefinitionError(w, acdErr, source, useColor)
	case errors.As(err, &cliErr):
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), cliErr.Error())
		if cliErr.Hint != "" {
			_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Hint: ", ColorYellow, useColor), cliErr.Hint)
		}
	default:
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Error())
	}
}

func formatDefinitionError(w io.Writer, err *acderr.Error, source []byte, useColor bool) {
	_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Error())

	if err.Line > 0 && len(source) > 0 {
		if snippet := err.Snippet(source); snippet != "" {
			_, _ = fmt.Fprintf(w, "\n%s\n", Colorize(strings.TrimRight(snippet, "\n"), ColorGray, useColor))
		}
	}
	if len(err.Suggestions) > 0 {
		_, _ = fmt.Fprintf(w, "%sdid you mean %s?\n", Colorize("  ", ColorYellow, useColor), strings.Join(err.Suggestions, ", "))
	}
	if err.Hint != "" {
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Hint: ", ColorYellow, useColor), err.Hint)
	}
}

// FormatWarnings writes collected warnings, one per line.
func FormatWarnings(w io.Writer, warnings []acderr.Warning, useColor bool) {
	for _, warn := range warnings {
		_, _ = fmt.Fprintln(w, Colorize(warn.String(), ColorYellow, useColor))
	}
}
