package vocab

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardVocabularyLoads(t *testing.T) {
	v := Standard()
	require.NotNil(t, v)

	assert.Equal(t, []string{"application", "variable", "relations", "section", "endsection"}, v.Keywords)
	assert.GreaterOrEqual(t, len(v.Types), 50)

	for _, name := range []string{"boolean", "integer", "float", "string", "list", "selection", "sequence", "seqall", "seqset", "seqsetall", "seqout", "outfile", "report", "graph", "xygraph"} {
		_, ok := v.Type(name)
		assert.True(t, ok, "missing type %s", name)
	}
	_, ok := v.Type("seq")
	assert.False(t, ok, "Type does exact lookup only")
}

func TestStandardVocabularyIsShared(t *testing.T) {
	assert.Same(t, Standard(), Standard())
}

func TestSequenceTable(t *testing.T) {
	seq, ok := Standard().Type("sequence")
	require.True(t, ok)

	var names []string
	for _, a := range seq.Associated {
		names = append(names, a.Name)
	}
	want := []string{"sbegin", "send", "sreverse", "sask", "snucleotide", "sprotein", "slower", "supper", "sformat", "sdbname", "sid", "ufo", "fformat", "fopenfile"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("associated qualifiers mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, seq.IsCalculated("length"))
	assert.False(t, seq.IsCalculated("count"))

	all, _ := Standard().Type("seqall")
	assert.True(t, all.IsCalculated("count"))
	assert.Len(t, all.Associated, len(seq.Associated))
}

func TestMergedTypesInheritTables(t *testing.T) {
	v := Standard()
	outfile, _ := v.Type("outfile")
	outtree, ok := v.Type("outtree")
	require.True(t, ok)

	assert.Equal(t, "Phylogenetic tree output file", outtree.Prompt)
	assert.Equal(t, outfile.Fallback, outtree.Fallback)
	assert.Equal(t, outfile.AttributeNames(), outtree.AttributeNames())

	xy, _ := v.Type("xygraph")
	assert.Equal(t, "graphics", xy.Group)
	assert.NotEmpty(t, xy.Associated)
}

func TestBooleanTypesAndFallbacks(t *testing.T) {
	v := Standard()
	for name, fallback := range map[string]string{"boolean": "N", "toggle": "N", "integer": "0", "float": "0.0", "outfile": "stdout"} {
		typ, ok := v.Type(name)
		require.True(t, ok, name)
		assert.Equal(t, fallback, typ.Fallback, name)
	}
	b, _ := v.Type("boolean")
	assert.True(t, b.Boolean)
	i, _ := v.Type("integer")
	assert.False(t, i.Boolean)
}

func TestAliasesAndGeneric(t *testing.T) {
	v := Standard()

	target, ok := v.Alias("required")
	require.True(t, ok)
	assert.Equal(t, "standard", target)
	target, _ = v.Alias("opt")
	assert.Equal(t, "additional", target)
	_, ok = v.Alias("standard")
	assert.False(t, ok)

	assert.Contains(t, v.AliasNames(), "def")
	assert.IsIncreasing(t, v.AliasNames())

	needed, ok := v.GenericAttribute("needed")
	require.True(t, ok)
	assert.Equal(t, "Y", needed.Default)
	assert.Contains(t, v.GenericNames(), "parameter")
}

func TestStatementAttributes(t *testing.T) {
	v := Standard()
	var names []string
	for _, a := range v.StatementAttributes("section") {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"information", "type", "comment", "border", "side", "folder"}, names)
	assert.Empty(t, v.StatementAttributes("endsection"))
	assert.Nil(t, v.StatementAttributes("nonsense"))
}

func TestKnownTypeIsCaseInsensitive(t *testing.T) {
	desc, ok := Standard().KnownType("Output File")
	require.True(t, ok)
	assert.Equal(t, "Generic output file", desc)
}

const minimal = `
version: "1.0.0"
keywords: [application, variable, relations, section, endsection]
generic:
  - {name: default}
statements:
  application: []
  section: []
  endsection: []
  variable: []
  relations: []
types:
  - {name: integer, group: simple, prompt: Integer value}
`

func TestLoadRejectsInvalidDocuments(t *testing.T) {
	_, err := Load([]byte(minimal))
	require.NoError(t, err)

	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name:    "bad version",
			doc:     strings.Replace(minimal, `"1.0.0"`, `"one"`, 1),
			wantErr: "invalid vocabulary",
		},
		{
			name:    "unknown group",
			doc:     strings.Replace(minimal, "group: simple", "group: exotic", 1),
			wantErr: "invalid vocabulary",
		},
		{
			name:    "duplicate type",
			doc:     minimal + "  - {name: integer, group: simple, prompt: Again}\n",
			wantErr: `duplicate type "integer"`,
		},
		{
			name:    "associated type unknown",
			doc:     minimal + "  - {name: sequence, group: input, prompt: Seq, associated: [{name: sbegin, type: number}]}\n",
			wantErr: `unknown type "number"`,
		},
		{
			name:    "alias to unknown attribute",
			doc:     minimal + "aliases: {req: standard}\n",
			wantErr: `alias "req" names unknown attribute "standard"`,
		},
		{
			name:    "not yaml",
			doc:     "version: [",
			wantErr: "decode vocabulary",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimal), 0o644))

	v, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"integer"}, v.TypeNames())

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read ")
}
