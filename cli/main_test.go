package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opal-lang/acd/core/acderr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const demo = `application: demo [ documentation: "Demo program" ]
section: input
string: name [ parameter: Y ]
endsection: input
integer: count [ default: 3 minimum: 1 ]
boolean: verbose [ default: N ]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// stdinFile returns an open file holding the replies of a session.
func stdinFile(t *testing.T, replies string) *os.File {
	t.Helper()
	f, err := os.Open(writeFile(t, "stdin", replies))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func invoke(t *testing.T, replies string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	args = append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...)
	code := run(context.Background(), args, stdinFile(t, replies), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunWritesValues(t *testing.T) {
	def := writeFile(t, "demo.acd", demo)
	code, stdout, stderr := invoke(t, "", "run", def, "alpha", "-count", "5")
	require.Equal(t, ExitSuccess, code, stderr)

	assert.Contains(t, stdout, "name=alpha\n")
	assert.Contains(t, stdout, "count=5\n")
	assert.Contains(t, stdout, "verbose=N\n")
}

func TestRunPromptsForMissingParameter(t *testing.T) {
	def := writeFile(t, "demo.acd", demo)
	code, stdout, stderr := invoke(t, "beta\n", "run", def)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "name=beta\n")
}

func TestRunAutoFailsWithoutParameter(t *testing.T) {
	def := writeFile(t, "demo.acd", demo)
	code, _, stderr := invoke(t, "", "run", "--auto", def)
	assert.Equal(t, ExitValidationError, code)
	assert.Contains(t, stderr, "validation failure")
}

func TestRunJSONFormat(t *testing.T) {
	def := writeFile(t, "demo.acd", demo)
	code, stdout, stderr := invoke(t, "", "run", "--format", "json", def, "gamma")
	require.Equal(t, ExitSuccess, code, stderr)

	var rec struct {
		Program string `json:"program"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &rec), stdout)
	assert.Equal(t, "demo", rec.Program)
}

func TestRunFlagsAfterDefinitionBelongToProgram(t *testing.T) {
	def := writeFile(t, "demo.acd", demo)
	code, _, stderr := invoke(t, "", "run", def, "alpha", "--auto")
	assert.Equal(t, ExitCommandLineError, code)
	assert.Contains(t, stderr, "command line error")
}

func TestRunInvalidRetries(t *testing.T) {
	def := writeFile(t, "demo.acd", demo)
	code, _, stderr := invoke(t, "", "run", "--retries", "0", def, "alpha")
	assert.Equal(t, ExitInvalidArguments, code)
	assert.Contains(t, stderr, "retries must be at least 1")
}

func TestRunMissingFile(t *testing.T) {
	code, _, stderr := invoke(t, "", "run", filepath.Join(t.TempDir(), "missing.acd"))
	assert.Equal(t, ExitIOError, code)
	assert.Contains(t, stderr, "cannot read definition")
}

func TestCheckReportsEachFile(t *testing.T) {
	good := writeFile(t, "good.acd", demo)
	bad := writeFile(t, "bad.acd", "application: bad\nsection: a\n")

	code, stdout, stderr := invoke(t, "", "check", good, bad)
	assert.Equal(t, ExitDefinitionError, code)
	assert.Contains(t, stdout, "ok "+good+": demo (1 parameters, 2 qualifiers)")
	assert.Contains(t, stderr, "syntax error")
	assert.Equal(t, 1, strings.Count(stderr, "Error: "), "each failure is reported once")
}

func TestCheckWarnsOnAbbreviatedType(t *testing.T) {
	def := writeFile(t, "warn.acd", "application: demo\nint: window\n")
	code, _, stderr := invoke(t, "", "check", def)
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stderr, "integer")
}

func TestCheckList(t *testing.T) {
	def := writeFile(t, "demo.acd", demo)
	code, stdout, stderr := invoke(t, "", "check", "--list", def)
	require.Equal(t, ExitSuccess, code, stderr)

	want := `demo:
├─ today (variable)
├─ section input
│  └─ name (string, parameter 1)
├─ count (integer)
└─ verbose (boolean)
`
	assert.Contains(t, stdout, want)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain", errors.New("boom"), ExitInvalidArguments},
		{"usage", usageError("bad flag"), ExitInvalidArguments},
		{"io", ioError(os.ErrNotExist, "cannot read"), ExitIOError},
		{"syntax", acderr.Syntax("a.acd", 1, "bad"), ExitDefinitionError},
		{"semantic", acderr.Semantic("a.acd", 1, "bad"), ExitDefinitionError},
		{"command line", acderr.CommandLine("demo", "bad"), ExitCommandLineError},
		{"validation", acderr.Validation("demo", "bad"), ExitValidationError},
		{"reported", reported{acderr.Validation("demo", "bad")}, ExitValidationError},
		{"cancelled", context.Canceled, ExitValidationError},
		{"deadline", fmt.Errorf("prompt: %w", context.DeadlineExceeded), ExitValidationError},
		{"interrupted prompt", acderr.Wrap(acderr.KindValidation, context.Canceled, "-name: interrupted"), ExitValidationError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestFormatErrorShowsSnippet(t *testing.T) {
	src := []byte("application: demo\n  integer: count [ minimum: x ]\n")
	err := acderr.Semantic("demo.acd", 2, "bad minimum").
		WithSuggestions([]string{"maximum"}).
		WithHint("use a number")

	var buf bytes.Buffer
	FormatError(&buf, err, src, false)

	want := `Error: demo.acd:2: semantic error: bad minimum

  --> demo.acd:2
   |
 2 |   integer: count [ minimum: x ]
   |   ^
  did you mean maximum?
Hint: use a number
`
	assert.Equal(t, want, buf.String())
}

func TestFormatErrorCLIError(t *testing.T) {
	var buf bytes.Buffer
	FormatError(&buf, &CLIError{Code: ExitIOError, Message: "cannot read", Hint: "check the path"}, nil, false)
	assert.Equal(t, "Error: cannot read\nHint: check the path\n", buf.String())
}

func TestColorize(t *testing.T) {
	assert.Equal(t, "ok", Colorize("ok", ColorGreen, false))
	assert.Equal(t, ColorGreen+"ok"+ColorReset, Colorize("ok", ColorGreen, true))
}

func TestRunInterruptedIsValidationFailure(t *testing.T) {
	def := writeFile(t, "demo.acd", demo)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout, stderr bytes.Buffer
	args := []string{"--config", filepath.Join(t.TempDir(), "none.yaml"), "run", def, "alpha"}
	code := run(ctx, args, stdinFile(t, ""), &stdout, &stderr)
	assert.Equal(t, ExitValidationError, code)
	assert.Contains(t, stderr.String(), "interrupted")
	assert.Empty(t, stdout.String())
}
