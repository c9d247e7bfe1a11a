package valuetype

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/opal-lang/acd/core/model"
	"github.com/opal-lang/acd/runtime/prefix"
)

// choice is one entry of a list or selection.
type choice struct {
	Code  string
	Label string
}

// listType covers list, whose values are "code:label" pairs, and selection,
// whose values are labels numbered from 1.
type listType struct{ base }

func (t listType) choices(attr AttrFunc) []choice {
	delim := attr("delimiter")
	if delim == "" {
		delim = ";"
	}
	codeDelim := ""
	if t.typ.Name == "list" {
		if codeDelim = attr("codedelimiter"); codeDelim == "" {
			codeDelim = ":"
		}
	}

	var out []choice
	for _, entry := range strings.Split(attr("values"), delim) {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if codeDelim == "" {
			out = append(out, choice{Code: strconv.Itoa(len(out) + 1), Label: entry})
			continue
		}
		code, label, ok := strings.Cut(entry, codeDelim)
		if !ok {
			label = code
		}
		out = append(out, choice{Code: strings.TrimSpace(code), Label: strings.TrimSpace(label)})
	}
	return out
}

func (t listType) Menu(it *model.Item, attr AttrFunc) []string {
	var lines []string
	if h := attr("header"); h != "" {
		lines = append(lines, h)
	}
	choices := t.choices(attr)
	width := 0
	for _, c := range choices {
		width = max(width, len(c.Code))
	}
	for _, c := range choices {
		lines = append(lines, fmt.Sprintf("  %*s : %s", width, c.Code, c.Label))
	}
	return lines
}

func (t listType) PromptText(it *model.Item, attr AttrFunc) string {
	if n, err := count(attr, "maximum"); err == nil && n != nil && *n > 1 {
		return "Select one or more"
	}
	return t.typ.Prompt
}

func (t listType) Set(it *model.Item, reply string, attr AttrFunc) (Result, error) {
	choices := t.choices(attr)
	if len(choices) == 0 {
		return Result{}, fmt.Errorf("no values to choose from")
	}
	caseSensitive := isTrue(attr("casesensitive"))

	words := strings.FieldsFunc(reply, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
	var codes []string
	seen := make(map[string]bool)
	for _, w := range words {
		c, err := pick(choices, w, caseSensitive)
		if err != nil {
			return Result{}, err
		}
		if !seen[c.Code] {
			seen[c.Code] = true
			codes = append(codes, c.Code)
		}
	}

	min, err := count(attr, "minimum")
	if err != nil {
		return Result{}, err
	}
	max, err := count(attr, "maximum")
	if err != nil {
		return Result{}, err
	}
	if min != nil && len(codes) < *min {
		return Result{}, fmt.Errorf("at least %d selection(s) required", *min)
	}
	if max != nil && len(codes) > *max {
		return Result{}, fmt.Errorf("at most %d selection(s) allowed", *max)
	}

	var value any = codes
	if max != nil && *max == 1 {
		if len(codes) == 1 {
			value = codes[0]
		} else {
			value = ""
		}
	}
	return Result{Value: value, Canonical: strings.Join(codes, ";")}, nil
}

// pick matches a word against the codes, then the labels, of choices. A
// case-sensitive list only accepts exact codes.
func pick(choices []choice, w string, caseSensitive bool) (choice, error) {
	if caseSensitive {
		for _, c := range choices {
			if c.Code == w {
				return c, nil
			}
		}
		return choice{}, fmt.Errorf("%q is not one of the listed values", w)
	}

	r := prefix.Lookup(w, func(c choice) []string { return []string{c.Code} }, choices)
	if r.Kind == prefix.None {
		r = prefix.Lookup(w, func(c choice) []string { return []string{c.Label} }, choices)
	}
	switch r.Kind {
	case prefix.Exact, prefix.Unique:
		return r.Value, nil
	case prefix.Ambiguous:
		names := make([]string, len(r.Candidates))
		for i, c := range r.Candidates {
			names[i] = c.Code
		}
		return choice{}, fmt.Errorf("%q is ambiguous (%s)", w, strings.Join(names, ", "))
	}
	return choice{}, fmt.Errorf("%q is not one of the listed values", w)
}
