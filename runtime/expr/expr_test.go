package expr

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eval(t *testing.T, src string) (string, []string) {
	t.Helper()
	e, err := Parse(src)
	require.NoError(t, err, "parse %q", src)
	var warnings []string
	out, err := EvaluateExpr(e, func(msg string) { warnings = append(warnings, msg) })
	require.NoError(t, err, "evaluate %q", src)
	return out, warnings
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"2 + 3", "5"},
		{"2+3", "5"},
		{"10 - 4", "6"},
		{"6 * 7", "42"},
		{"7 / 2", "3"},
		{"-3 + 5", "2"},
		{"4 - -2", "6"},
		{"2.5 + 1.5", "4.000000"},
		{"1 / 4.0", "0.250000"},
		{"2 + 3 * 4", "14"},
		{"1 - 2 - 3", "-4"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, _ := eval(t, tt.src)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComparisonAndLogic(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"3 == 3", "Y"},
		{"3 != 3", "N"},
		{"10 > 9", "Y"},
		{"1.5 < 1.25", "N"},
		{"abc == ABC", "Y"},
		{"apple < banana", "Y"},
		{"10 > 9.5", "Y"},
		{"!Y", "N"},
		{"!0", "Y"},
		{"!!yes", "Y"},
		{"Y & N", "N"},
		{"Y | N", "Y"},
		{"1 & 2", "Y"},
		{"0.0 | 0", "N"},
		{"1 < 2 & 3 > 2", "Y"},
		{"Y | N & N", "Y"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, _ := eval(t, tt.src)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConditional(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"Y ? fasta : gff", "fasta"},
		{"2 > 3 ? big : small", "small"},
		{"N ? a : Y ? b : c", "b"},
		{"Y ? /usr/share/data : none", "/usr/share/data"},
		{"N ? none : /usr/share/data", "/usr/share/data"},
		{"Y ? protein-seq : dna", "protein-seq"},
		{"Y ? a b : c", "a b"},
		{"N ? a : c d", "c d"},
		{`Y ? "x : y" : z`, "x : y"},
		{"Y ? : empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, warnings := eval(t, tt.src)
			assert.Equal(t, tt.want, got)
			assert.Empty(t, warnings)
		})
	}
}

func TestOneOf(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"dna == {dna|rna|protein}", "Y"},
		{"DNA == {dna | rna}", "Y"},
		{"dna != {dna|rna|protein}", "N"},
		{"pep != {dna|rna}", "Y"},
		{"pep == {dna}", "N"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, _ := eval(t, tt.src)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCase(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		want     string
		warnings int
	}{
		{"exact", "nuc = nuc:dna, prot:protein, else:unknown", "dna", 0},
		{"case-insensitive", "PROT = nuc:dna, prot:protein", "protein", 0},
		{"prefix", "pr = nuc:dna, prot:protein, else:unknown", "protein", 0},
		{"else", "xyz = nuc:dna, else:unknown", "unknown", 0},
		{"ambiguous prefix uses else", "n = nuc:dna, nucl:rna, else:other", "other", 1},
		{"multi-word result", "a = a:one two, b:three", "one two", 0},
		{"empty selector", "= a:one, else:none", "none", 0},
		{"quoted else is a label", `else = "else":quoted, else:bare`, "quoted", 0},
		{"hyphenated result", "p = p:protein-seq, else:dna", "protein-seq", 0},
		{"path result", "n = n:/data/nuc.mat, else:/data/prot.mat", "/data/nuc.mat", 0},
		{"operators in else", "x = a:1, else:a+b", "a+b", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, warnings := eval(t, tt.src)
			assert.Equal(t, tt.want, got)
			assert.Len(t, warnings, tt.warnings)
		})
	}
}

func TestCaseWithoutMatch(t *testing.T) {
	e, err := Parse("z = a:1, b:2")
	require.NoError(t, err)
	_, err = EvaluateExpr(e, nil)
	var evalErr *EvalError
	require.ErrorAs(t, err, &evalErr)
	assert.Contains(t, evalErr.Message, "no case matches")
}

func TestSpecialForms(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"filename: /data/seqs/MySeq.Fasta", "myseq"},
		{"filename: result", "result"},
		{"FILENAME: dir/archive.tar.gz", "archive.tar"},
		{"filename:", ""},
		{"exists: x", "Y"},
		{"exists:", "N"},
		{"exists:   ", "N"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, _ := eval(t, tt.src)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{
		"",
		"2 +",
		"Y ? a",
		"a == {b|c",
		"a == {b c}",
		`"open`,
		"1 2",
		"x = a",
	} {
		t.Run(src, func(t *testing.T) {
			_, err := Parse(src)
			var evalErr *EvalError
			assert.ErrorAs(t, err, &evalErr)
		})
	}
}

func TestEvaluationErrors(t *testing.T) {
	for _, src := range []string{
		"1 / 0",
		"1.0 / 0",
		"a + 1",
		"!maybe",
		"maybe ? a : b",
		"Y & maybe",
	} {
		t.Run(src, func(t *testing.T) {
			e, err := Parse(src)
			require.NoError(t, err)
			_, err = EvaluateExpr(e, nil)
			assert.Error(t, err)
		})
	}
}

func TestScan(t *testing.T) {
	toks, err := scan(`-1 - 2 == "a b" {x|y}`)
	require.NoError(t, err)

	type tok struct {
		Kind   tokenKind
		Text   string
		Quoted bool
	}
	var got []tok
	for _, tk := range toks {
		got = append(got, tok{tk.kind, tk.text, tk.quoted})
	}
	want := []tok{
		{tokWord, "-1", false},
		{tokOp, "-", false},
		{tokWord, "2", false},
		{tokOp, "==", false},
		{tokWord, "a b", true},
		{tokOp, "{", false},
		{tokWord, "x", false},
		{tokOp, "|", false},
		{tokWord, "y", false},
		{tokOp, "}", false},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestBoolWords(t *testing.T) {
	for _, s := range []string{"y", "YES", "true", "1", " Y "} {
		v, ok := ParseBool(s)
		assert.True(t, ok, s)
		assert.True(t, v, s)
	}
	for _, s := range []string{"n", "No", "FALSE", "0"} {
		v, ok := ParseBool(s)
		assert.True(t, ok, s)
		assert.False(t, v, s)
	}
	_, ok := ParseBool("maybe")
	assert.False(t, ok)
	assert.Equal(t, "Y", FormatBool(true))
	assert.Equal(t, "N", FormatBool(false))
	assert.False(t, IsTrue(""))
}
