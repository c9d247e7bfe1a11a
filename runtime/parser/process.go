package parser

import (
	"github.com/opal-lang/acd/core/acderr"
	"github.com/opal-lang/acd/core/model"
	"github.com/opal-lang/acd/runtime/expr"
)

// Process numbers the positional parameters of def. Every non-associated
// qualifier whose "parameter" attribute resolves true becomes a Parameter
// numbered 1..N in declaration order and defaults to standard. Associated
// qualifiers take their master's number.
func Process(def *model.Definition, r *expr.Resolver) error {
	n := 0
	for _, it := range def.Items {
		if it.IsAssociated || !it.IsQualifier() {
			continue
		}
		raw := r.Attr(it, "parameter")
		isParam, ok := expr.ParseBool(raw)
		if raw != "" && !ok {
			return acderr.Semantic(def.File, it.Line, "attribute parameter of %q is not a boolean: %q", it.Name, raw)
		}
		if !isParam {
			continue
		}
		n++
		it.Kind = model.KindParameter
		it.ParamNum = n
		it.Generic.Set("standard", "Y")
	}

	for _, it := range def.Items {
		for _, a := range def.AssocOf(it) {
			a.ParamNum = it.ParamNum
		}
	}
	return nil
}
