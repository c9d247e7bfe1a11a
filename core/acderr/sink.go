package acderr

import (
	"fmt"
	"log/slog"
)

// Warning is a non-fatal diagnostic: an accepted abbreviation, a deprecated
// attribute alias, an expression that could not be evaluated.
type Warning struct {
	Message string
	File    string
	Line    int
	Program string
}

func (w Warning) String() string {
	switch {
	case w.File != "" && w.Line > 0:
		return fmt.Sprintf("%s:%d: warning: %s", w.File, w.Line, w.Message)
	case w.Line > 0:
		return fmt.Sprintf("line %d: warning: %s", w.Line, w.Message)
	case w.Program != "":
		return fmt.Sprintf("%s: warning: %s", w.Program, w.Message)
	default:
		return "warning: " + w.Message
	}
}

// Sink collects warnings and logs each one at Warn level. A nil *Sink
// discards everything, so components can be used without one.
type Sink struct {
	logger   *slog.Logger
	warnings []Warning
}

// NewSink returns a Sink logging through logger. A nil logger records
// warnings without logging them.
func NewSink(logger *slog.Logger) *Sink {
	return &Sink{logger: logger}
}

// Add records w.
func (s *Sink) Add(w Warning) {
	if s == nil {
		return
	}
	s.warnings = append(s.warnings, w)
	if s.logger != nil {
		attrs := []any{}
		if w.File != "" {
			attrs = append(attrs, "file", w.File)
		}
		if w.Line > 0 {
			attrs = append(attrs, "line", w.Line)
		}
		if w.Program != "" {
			attrs = append(attrs, "program", w.Program)
		}
		s.logger.Warn(w.Message, attrs...)
	}
}

// At records a positioned warning.
func (s *Sink) At(file string, line int, format string, args ...interface{}) {
	s.Add(Warning{Message: fmt.Sprintf(format, args...), File: file, Line: line})
}

// For records a run-time warning for program.
func (s *Sink) For(program string, format string, args ...interface{}) {
	s.Add(Warning{Message: fmt.Sprintf(format, args...), Program: program})
}

// Warnings returns the recorded warnings in order.
func (s *Sink) Warnings() []Warning {
	if s == nil {
		return nil
	}
	return s.warnings
}

// Len returns the number of recorded warnings.
func (s *Sink) Len() int {
	if s == nil {
		return 0
	}
	return len(s.warnings)
}
