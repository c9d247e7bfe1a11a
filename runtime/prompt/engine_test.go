package prompt

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/opal-lang/acd/core/acderr"
	"github.com/opal-lang/acd/core/model"
	"github.com/opal-lang/acd/runtime/cmdline"
	"github.com/opal-lang/acd/runtime/expr"
	"github.com/opal-lang/acd/runtime/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted replies with a fixed list of lines and records the prompts.
type scripted struct {
	lines   []string
	prompts []string
}

func (s *scripted) ReadLine(prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func prepare(t *testing.T, src string, argv ...string) *model.Definition {
	t.Helper()
	def, err := parser.Parse([]byte(src), parser.WithFile("test.acd"))
	require.NoError(t, err)
	require.NoError(t, parser.Process(def, expr.NewResolver(def)))
	_, err = cmdline.Match(argv, def)
	require.NoError(t, err)
	return def
}

func TestDefaultWithoutPrompting(t *testing.T) {
	def := prepare(t, "application: demo\ninteger: window [ default: 5 ]\n")
	e := New(def, WithAuto(true))
	require.NoError(t, e.Run(context.Background()))

	w := def.ByName("window")
	assert.Equal(t, model.Resolved, w.State)
	assert.Equal(t, "5", w.ValueString)
	assert.Equal(t, int64(5), w.Value)
	assert.False(t, w.UserDefined)
	assert.Equal(t, 0, e.Prompts())
}

func TestRequiredDefaultInAutoMode(t *testing.T) {
	def := prepare(t, "application: demo\ninteger: window [ standard: Y default: 5 ]\n")
	require.NoError(t, New(def, WithAuto(true)).Run(context.Background()))
	assert.Equal(t, "5", def.ByName("window").ValueString)
}

func TestBoundValuesNeedNoPrompts(t *testing.T) {
	src := "application: demo\nsequence: sequence [ parameter: Y ]\noutfile: outfile\n"
	def := prepare(t, src, "myseq.fasta", "-outfile=result.txt")
	reader := &scripted{}
	e := New(def, WithReader(reader))
	require.NoError(t, e.Run(context.Background()))

	assert.Empty(t, reader.prompts)
	assert.Equal(t, "myseq.fasta", def.ByName("sequence").ValueString)
	assert.True(t, def.ByName("sequence").UserDefined)
	assert.Equal(t, "result.txt", def.ByName("outfile").ValueString)
	assert.Equal(t, "myseq", def.ByName("sequence").Calc["name"])
	sbegin := def.AssocOf(def.ByName("sequence"))[0]
	assert.Equal(t, "sbegin", sbegin.Name)
	assert.Equal(t, "0", sbegin.ValueString)
}

func TestPromptUsesDefaultOnEmptyReply(t *testing.T) {
	def := prepare(t, "application: demo\ninteger: window [ standard: Y default: 7 prompt: \"Window size\" ]\n")
	reader := &scripted{lines: []string{""}}
	require.NoError(t, New(def, WithReader(reader)).Run(context.Background()))

	assert.Equal(t, []string{"Window size [7]: "}, reader.prompts)
	w := def.ByName("window")
	assert.Equal(t, "7", w.ValueString)
	assert.True(t, w.UserDefined)
}

func TestRetryThenAccept(t *testing.T) {
	def := prepare(t, "application: demo\ninteger: count [ standard: Y minimum: 1 ]\n")
	reader := &scripted{lines: []string{"zero", "0", "3"}}
	var out bytes.Buffer
	require.NoError(t, New(def, WithReader(reader), WithOutput(&out)).Run(context.Background()))

	assert.Len(t, reader.prompts, 3)
	assert.Equal(t, "3", def.ByName("count").ValueString)
	assert.Contains(t, out.String(), `Error: "zero" is not an integer`)
	assert.Contains(t, out.String(), "Error: 0 is less than the minimum 1")
}

func TestRetryExhaustionStopsProcessing(t *testing.T) {
	src := "application: demo\ninteger: count [ standard: Y minimum: 1 ]\nstring: later [ standard: Y ]\n"
	def := prepare(t, src)
	reader := &scripted{lines: []string{"0", "0", "0", "0", "x"}}
	err := New(def, WithReader(reader), WithRetries(2)).Run(context.Background())

	require.Error(t, err)
	assert.True(t, acderr.IsKind(err, acderr.KindValidation))
	assert.Contains(t, err.Error(), "no valid reply after 2 attempts")
	assert.Len(t, reader.prompts, 2)
	assert.Equal(t, model.Failed, def.ByName("count").State)
	assert.Equal(t, model.NotStarted, def.ByName("later").State)
	assert.False(t, def.ByName("later").Defined)
}

func TestHelpDoesNotUseARetry(t *testing.T) {
	def := prepare(t, "application: demo\ninteger: count [ standard: Y help: \"How many\" ]\n")
	reader := &scripted{lines: []string{"?", "4"}}
	var out bytes.Buffer
	require.NoError(t, New(def, WithReader(reader), WithOutput(&out), WithRetries(1)).Run(context.Background()))
	assert.Equal(t, "4", def.ByName("count").ValueString)
	assert.Contains(t, out.String(), "How many")
}

func TestEndOfInputFails(t *testing.T) {
	def := prepare(t, "application: demo\nstring: name [ standard: Y ]\n")
	err := New(def, WithReader(&scripted{})).Run(context.Background())
	require.Error(t, err)
	assert.True(t, acderr.IsKind(err, acderr.KindValidation))
	assert.ErrorIs(t, err, io.EOF)
}

func TestBadBoundValue(t *testing.T) {
	src := "application: demo\ninteger: window [ default: 5 maximum: 10 ]\n"

	def := prepare(t, src, "-window", "50")
	err := New(def).Run(context.Background())
	require.Error(t, err)
	assert.True(t, acderr.IsKind(err, acderr.KindCommandLine))
	assert.Contains(t, err.Error(), "bad value for -window")

	src = "application: demo\ninteger: window [ standard: Y maximum: 10 ]\n"
	def = prepare(t, src, "-window", "50")
	reader := &scripted{lines: []string{"9"}}
	require.NoError(t, New(def, WithReader(reader)).Run(context.Background()))
	assert.Equal(t, "9", def.ByName("window").ValueString)
}

func TestParametersAreRequired(t *testing.T) {
	def := prepare(t, "application: demo\nsequence: sequence [ parameter: Y ]\n")
	err := New(def, WithAuto(true)).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-sequence: default")
}

func TestAdditionalOnlyInOptionsMode(t *testing.T) {
	src := "application: demo\ninteger: extra [ additional: Y default: 2 ]\n"

	reader := &scripted{lines: []string{"8"}}
	require.NoError(t, New(prepare(t, src), WithReader(reader)).Run(context.Background()))
	assert.Empty(t, reader.prompts)

	def := prepare(t, src)
	reader = &scripted{lines: []string{"8"}}
	require.NoError(t, New(def, WithReader(reader), WithOptions(true)).Run(context.Background()))
	assert.Len(t, reader.prompts, 1)
	assert.Equal(t, "8", def.ByName("extra").ValueString)
}

func TestVariablesAndCalculatedAttributes(t *testing.T) {
	src := `application: demo
regexp: word [ standard: Y ]
variable: twice "@($(word.length) * 2)"
integer: size [ default: "$(twice)" ]
`
	def := prepare(t, src, "-word", "abc")
	require.NoError(t, New(def).Run(context.Background()))
	assert.Equal(t, "6", def.ByName("size").ValueString)
}

func TestMenuIsShown(t *testing.T) {
	def := prepare(t, "application: demo\nlist: mode [ standard: Y values: \"a:alpha;b:beta\" ]\n")
	reader := &scripted{lines: []string{"beta"}}
	var out bytes.Buffer
	require.NoError(t, New(def, WithReader(reader), WithOutput(&out)).Run(context.Background()))
	assert.Equal(t, "b", def.ByName("mode").ValueString)
	assert.Contains(t, out.String(), "a : alpha")
	assert.True(t, strings.HasPrefix(reader.prompts[0], "Select one"))
}

func TestCancelledContext(t *testing.T) {
	def := prepare(t, "application: demo\ninteger: window [ default: 5 ]\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(def).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, acderr.IsKind(err, acderr.KindValidation))
}

// stalled cancels the run on its first read and then blocks like a
// terminal nobody types into.
type stalled struct {
	cancel  context.CancelFunc
	release chan struct{}
}

func (s *stalled) ReadLine(string) (string, error) {
	s.cancel()
	<-s.release
	return "", io.EOF
}

func TestCancelWhilePrompting(t *testing.T) {
	def := prepare(t, "application: demo\ninteger: window [ standard: Y ]\n")
	ctx, cancel := context.WithCancel(context.Background())
	reader := &stalled{cancel: cancel, release: make(chan struct{})}
	t.Cleanup(func() { close(reader.release) })

	err := New(def, WithReader(reader)).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, acderr.IsKind(err, acderr.KindValidation))
	assert.Contains(t, err.Error(), "-window: interrupted")
	assert.Equal(t, model.Failed, def.ByName("window").State)
}

func TestBufferedReader(t *testing.T) {
	var out bytes.Buffer
	r := NewBufferedReader(strings.NewReader("one\r\ntwo"), &out)

	line, err := r.ReadLine("> ")
	require.NoError(t, err)
	assert.Equal(t, "one", line)
	line, err = r.ReadLine("> ")
	require.NoError(t, err)
	assert.Equal(t, "two", line)
	_, err = r.ReadLine("> ")
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "> > > ", out.String())
	assert.NoError(t, Close(r))
}
