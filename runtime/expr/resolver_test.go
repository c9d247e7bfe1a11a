package expr

import (
	"testing"

	"github.com/opal-lang/acd/core/acderr"
	"github.com/opal-lang/acd/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture builds:
//
//	application: demo
//	variable: base "5"
//	sequence: seqname [ default: "in.fasta" ]   (with an sbegin associated)
//	integer: window [ default: "@($(base) * 2)" ]
//	string: label [ default: "$(seqname.protein)" ]
func fixture(t *testing.T) (*model.Definition, *Resolver, *acderr.Sink) {
	t.Helper()
	def := model.New("demo", "demo.acd")

	_, err := def.NewItem(model.KindApplication, "demo", "", "application", 1)
	require.NoError(t, err)

	base, err := def.NewItem(model.KindVariable, "base", "", "variable", 2)
	require.NoError(t, err)
	base.Generic.Set("default", "5")

	sbegin := def.NewAssociated("sbegin", "integer", 3)
	sbegin.Generic.Set("default", "1")
	seq, err := def.NewItem(model.KindQualifier, "seqname", "", "sequence", 3)
	require.NoError(t, err)
	seq.Generic.Set("default", "in.fasta")
	seq.Generic.Set("information", "Input sequence")
	seq.Attrs.Set("type", "any")
	def.Link(seq, []int{sbegin.Index})

	window, err := def.NewItem(model.KindQualifier, "window", "", "integer", 4)
	require.NoError(t, err)
	window.Generic.Set("default", "@($(base) * 2)")

	label, err := def.NewItem(model.KindQualifier, "label", "", "string", 5)
	require.NoError(t, err)
	label.Generic.Set("default", "$(seqname.protein)")

	sink := acderr.NewSink(nil)
	return def, NewResolver(def, WithSink(sink)), sink
}

func TestResolveReferences(t *testing.T) {
	_, r, sink := fixture(t)

	tests := []struct {
		raw  string
		want string
	}{
		{"plain", "plain"},
		{"$(base)", "5"},
		{"$(base.default)", "5"},
		{"x$(base)y$(base)z", "x5y5z"},
		{"$(seqname.information)", "Input sequence"},
		{"$(seqname.type)", "any"},
		{"$(seqname.sbegin)", "1"},
		{"$(seqname.isdefined)", "N"},
		{"$(window)", "@(5 * 2)"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, r.substitute(tt.raw))
		})
	}
	assert.Zero(t, sink.Len())
}

func TestResolveExpressions(t *testing.T) {
	def, r, sink := fixture(t)

	assert.Equal(t, "5", r.Resolve("@(2 + 3)"))
	assert.Equal(t, "4.000000", r.Resolve("@(2.5 + 1.5)"))
	assert.Equal(t, "N", r.Resolve("@(dna != {dna|rna|protein})"))
	assert.Equal(t, "10", r.Attr(def.ByName("window"), "default"))
	assert.Equal(t, "size=11", r.Resolve("size=@(@($(base) * 2) + 1)"))
	assert.Equal(t, "in", r.Resolve("@(filename: $(seqname))"))
	assert.Equal(t, "protein", r.Resolve("@($(base) > 3 ? protein : nucleic)"))
	assert.Equal(t, "/usr/share/data", r.Resolve("@(Y ? /usr/share/data : none)"))
	assert.Equal(t, "protein-seq", r.Resolve("@(p = p:protein-seq, else:dna)"))
	assert.Equal(t, "in.fasta.out", r.Resolve("@($(base) > 3 ? $(seqname).out : none)"))
	assert.False(t, r.Bool(def.ByName("seqname"), "information"))
	assert.Zero(t, sink.Len())
}

func TestResolveKeepsFailedExpression(t *testing.T) {
	_, r, sink := fixture(t)

	assert.Equal(t, "@(1 / 0)", r.Resolve("@(1 / 0)"))
	assert.Equal(t, "a @(x y) b 3", r.Resolve("a @(x y) b @(1 + 2)"))
	assert.Equal(t, "@(@(1 /) + 1)", r.Resolve("@(@(1 /) + 1)"))
	assert.GreaterOrEqual(t, sink.Len(), 3)
	for _, w := range sink.Warnings() {
		assert.Equal(t, "demo", w.Program)
		assert.Contains(t, w.Message, "cannot evaluate")
	}
}

func TestCalculatedAttributeNeedsValue(t *testing.T) {
	def, r, sink := fixture(t)
	label := def.ByName("label")

	assert.Equal(t, "", r.Attr(label, "default"))
	require.Equal(t, 1, sink.Len())
	assert.Contains(t, sink.Warnings()[0].Message, "not available")

	def.ByName("seqname").SetValue("in.fasta", "in.fasta", map[string]string{"protein": "Y", "length": "120"}, true)
	assert.Equal(t, "Y", r.Attr(label, "default"))
	assert.Equal(t, "120", r.Resolve("$(seqname.length)"))
	assert.Equal(t, "in.fasta", r.Resolve("$(seqname)"))
	assert.Equal(t, "Y", r.Resolve("$(seqname.isdefined)"))
	assert.Equal(t, 1, sink.Len())
}

func TestResolveUnknown(t *testing.T) {
	_, r, sink := fixture(t)

	assert.Equal(t, "[]", r.Resolve("[$(missing)]"))
	assert.Equal(t, "[]", r.Resolve("[$(base.nosuch)]"))
	require.Equal(t, 2, sink.Len())
	assert.Contains(t, sink.Warnings()[0].Message, `unknown variable "missing"`)
	assert.Contains(t, sink.Warnings()[1].Message, `unknown attribute "nosuch"`)
}

func TestResolveIsBounded(t *testing.T) {
	def, r, sink := fixture(t)
	loop, err := def.NewItem(model.KindVariable, "loop", "", "variable", 9)
	require.NoError(t, err)
	loop.Generic.Set("default", "x$(loop)")

	r = NewResolver(def, WithSink(sink), WithMaxIterations(8))
	got := r.Resolve("$(loop)")
	assert.Equal(t, "xxxxxxxx$(loop)", got)
	require.Equal(t, 1, sink.Len())
	assert.Contains(t, sink.Warnings()[0].Message, "too many substitutions")
}

func TestAssociatedValueAfterResolution(t *testing.T) {
	def, r, _ := fixture(t)
	seq := def.ByName("seqname")
	sbegin := def.AssocOf(seq)[0]

	sbegin.SetValue(int64(10), "10", nil, true)
	assert.Equal(t, "10", r.Resolve("$(seqname.sbegin)"))
}
