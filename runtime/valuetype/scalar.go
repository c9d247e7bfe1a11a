package valuetype

import (
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/opal-lang/acd/core/model"
	"github.com/opal-lang/acd/runtime/expr"
)

func isTrue(s string) bool { return expr.IsTrue(s) }

// limit parses an optional numeric attribute.
func limit(attr AttrFunc, name string) (*float64, error) {
	raw := strings.TrimSpace(attr(name))
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("attribute %s is not a number: %q", name, raw)
	}
	return &f, nil
}

// count parses an optional non-negative integer attribute.
func count(attr AttrFunc, name string) (*int, error) {
	raw := strings.TrimSpace(attr(name))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("attribute %s is not a count: %q", name, raw)
	}
	return &n, nil
}

func numericBounds(typ string, attr AttrFunc) (bounds, error) {
	b := bounds{Type: typ}
	min, err := limit(attr, "minimum")
	if err != nil {
		return b, err
	}
	if b.Maximum, err = limit(attr, "maximum"); err != nil {
		return b, err
	}
	if min != nil && isTrue(attr("trueminimum")) {
		b.ExclusiveMinimum = min
	} else {
		b.Minimum = min
	}
	return b, nil
}

func baseName(path string) string {
	name := filepath.Base(path)
	if ext := filepath.Ext(name); ext != "" && ext != name {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}

type booleanType struct{ base }

func (t booleanType) Set(it *model.Item, reply string, attr AttrFunc) (Result, error) {
	b, ok := expr.ParseBool(strings.TrimSpace(reply))
	if !ok {
		return Result{}, fmt.Errorf("%q is not a boolean value (Y or N)", reply)
	}
	return Result{Value: b, Canonical: expr.FormatBool(b)}, nil
}

type integerType struct {
	base
	schemas *schemaCache
}

func (t integerType) Set(it *model.Item, reply string, attr AttrFunc) (Result, error) {
	reply = strings.TrimSpace(reply)
	n, err := strconv.ParseInt(strings.TrimPrefix(reply, "+"), 10, 64)
	if err != nil {
		return Result{}, fmt.Errorf("%q is not an integer", reply)
	}
	b, err := numericBounds("integer", attr)
	if err != nil {
		return Result{}, err
	}
	canonical := strconv.FormatInt(n, 10)
	if err := t.schemas.check(b, json.Number(canonical), canonical); err != nil {
		return Result{}, err
	}
	return Result{Value: n, Canonical: canonical}, nil
}

type floatType struct {
	base
	schemas *schemaCache
}

func (t floatType) Set(it *model.Item, reply string, attr AttrFunc) (Result, error) {
	reply = strings.TrimSpace(reply)
	f, err := strconv.ParseFloat(reply, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Result{}, fmt.Errorf("%q is not a number", reply)
	}
	b, err := numericBounds("number", attr)
	if err != nil {
		return Result{}, err
	}
	if err := t.schemas.check(b, json.Number(strconv.FormatFloat(f, 'g', -1, 64)), reply); err != nil {
		return Result{}, err
	}
	return Result{Value: f, Canonical: formatFloat(f, attr)}, nil
}

func formatFloat(f float64, attr AttrFunc) string {
	prec, err := strconv.Atoi(strings.TrimSpace(attr("precision")))
	if err != nil || prec < 0 {
		prec = 3
	}
	return strconv.FormatFloat(f, 'f', prec, 64)
}

type stringType struct {
	base
	schemas *schemaCache
}

func (t stringType) Set(it *model.Item, reply string, attr AttrFunc) (Result, error) {
	s, err := caseFold(reply, attr)
	if err != nil {
		return Result{}, err
	}
	if isTrue(attr("word")) && strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return Result{}, fmt.Errorf("%q must be a single word", s)
	}
	b, err := lengthBounds(attr)
	if err != nil {
		return Result{}, err
	}
	b.Pattern = attr("pattern")
	if err := t.schemas.check(b, s, s); err != nil {
		return Result{}, err
	}
	res := Result{Value: s, Canonical: s}
	if t.typ.IsCalculated("length") {
		setCalc(&res, "length", strconv.Itoa(len([]rune(s))))
	}
	return res, nil
}

func caseFold(s string, attr AttrFunc) (string, error) {
	upper, lower := isTrue(attr("upper")), isTrue(attr("lower"))
	switch {
	case upper && lower:
		return "", fmt.Errorf("attributes upper and lower cannot both be set")
	case upper:
		return strings.ToUpper(s), nil
	case lower:
		return strings.ToLower(s), nil
	}
	return s, nil
}

func lengthBounds(attr AttrFunc) (bounds, error) {
	b := bounds{Type: "string"}
	var err error
	if b.MinLength, err = count(attr, "minlength"); err != nil {
		return b, err
	}
	if b.MaxLength, err = count(attr, "maxlength"); err != nil {
		return b, err
	}
	return b, nil
}

// regexpType covers regexp and pattern. A regexp reply must compile.
type regexpType struct {
	base
	schemas *schemaCache
}

func (t regexpType) Set(it *model.Item, reply string, attr AttrFunc) (Result, error) {
	if res, done, err := allowEmpty(reply, attr); done {
		return res, err
	}
	s, err := caseFold(strings.TrimSpace(reply), attr)
	if err != nil {
		return Result{}, err
	}
	b, err := lengthBounds(attr)
	if err != nil {
		return Result{}, err
	}
	if err := t.schemas.check(b, s, s); err != nil {
		return Result{}, err
	}
	var value any = s
	if t.typ.Name == "regexp" {
		re, err := regexp.Compile(s)
		if err != nil {
			return Result{}, fmt.Errorf("invalid regular expression %q: %v", s, err)
		}
		value = re
	}
	res := Result{Value: value, Canonical: s}
	setCalc(&res, "length", strconv.Itoa(len([]rune(s))))
	return res, nil
}

// arrayType reads a list of floats separated by spaces or commas.
type arrayType struct{ base }

func (t arrayType) Set(it *model.Item, reply string, attr AttrFunc) (Result, error) {
	fields := strings.FieldsFunc(reply, func(r rune) bool { return r == ',' || unicode.IsSpace(r) })
	size, err := count(attr, "size")
	if err != nil {
		return Result{}, err
	}
	if size != nil && len(fields) != *size {
		return Result{}, fmt.Errorf("expected %d values, got %d", *size, len(fields))
	}
	min, err := limit(attr, "minimum")
	if err != nil {
		return Result{}, err
	}
	max, err := limit(attr, "maximum")
	if err != nil {
		return Result{}, err
	}

	values := make([]float64, len(fields))
	canon := make([]string, len(fields))
	sum := 0.0
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Result{}, fmt.Errorf("%q is not a number", f)
		}
		if min != nil && v < *min {
			return Result{}, fmt.Errorf("%s is less than the minimum %s", f, formatLimit(*min))
		}
		if max != nil && v > *max {
			return Result{}, fmt.Errorf("%s is greater than the maximum %s", f, formatLimit(*max))
		}
		values[i] = v
		canon[i] = formatFloat(v, attr)
		sum += v
	}

	if isTrue(attr("sumtest")) {
		want, err := limit(attr, "sum")
		if err != nil {
			return Result{}, err
		}
		tol, err := limit(attr, "tolerance")
		if err != nil {
			return Result{}, err
		}
		if want != nil {
			slack := 0.0
			if tol != nil {
				slack = *tol
			}
			if math.Abs(sum-*want) > slack {
				return Result{}, fmt.Errorf("values sum to %s, expected %s", formatLimit(sum), formatLimit(*want))
			}
		}
	}
	return Result{Value: values, Canonical: strings.Join(canon, ",")}, nil
}

// Span is one closed interval of a range value.
type Span struct {
	Start, End int64
}

// rangeType reads "start-end" spans separated by commas or spaces. Bare
// numbers are taken in pairs.
type rangeType struct{ base }

var spanPattern = regexp.MustCompile(`^(\d+)-(\d+)$`)

func (t rangeType) Set(it *model.Item, reply string, attr AttrFunc) (Result, error) {
	fields := strings.FieldsFunc(reply, func(r rune) bool { return r == ',' || unicode.IsSpace(r) })
	if len(fields) == 0 {
		return Result{Value: []Span(nil), Canonical: ""}, nil
	}

	var spans []Span
	var pending []int64
	for _, f := range fields {
		if m := spanPattern.FindStringSubmatch(f); m != nil {
			if len(pending) > 0 {
				return Result{}, fmt.Errorf("unpaired range start %d", pending[0])
			}
			s, _ := strconv.ParseInt(m[1], 10, 64)
			e, _ := strconv.ParseInt(m[2], 10, 64)
			spans = append(spans, Span{s, e})
			continue
		}
		n, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return Result{}, fmt.Errorf("%q is not a range", f)
		}
		pending = append(pending, n)
		if len(pending) == 2 {
			spans = append(spans, Span{pending[0], pending[1]})
			pending = pending[:0]
		}
	}
	if len(pending) > 0 {
		return Result{}, fmt.Errorf("unpaired range start %d", pending[0])
	}

	min, err := limit(attr, "minimum")
	if err != nil {
		return Result{}, err
	}
	max, err := limit(attr, "maximum")
	if err != nil {
		return Result{}, err
	}
	minSize, err := count(attr, "minsize")
	if err != nil {
		return Result{}, err
	}
	size, err := count(attr, "size")
	if err != nil {
		return Result{}, err
	}
	if size != nil && *size > 0 && len(spans) != *size {
		return Result{}, fmt.Errorf("expected %d ranges, got %d", *size, len(spans))
	}

	canon := make([]string, len(spans))
	for i, s := range spans {
		if s.Start > s.End {
			return Result{}, fmt.Errorf("range %d-%d ends before it starts", s.Start, s.End)
		}
		if min != nil && float64(s.Start) < *min {
			return Result{}, fmt.Errorf("range start %d is less than the minimum %s", s.Start, formatLimit(*min))
		}
		if max != nil && float64(s.End) > *max {
			return Result{}, fmt.Errorf("range end %d is greater than the maximum %s", s.End, formatLimit(*max))
		}
		if minSize != nil && s.End-s.Start+1 < int64(*minSize) {
			return Result{}, fmt.Errorf("range %d-%d is shorter than %d", s.Start, s.End, *minSize)
		}
		canon[i] = fmt.Sprintf("%d-%d", s.Start, s.End)
	}
	return Result{Value: spans, Canonical: strings.Join(canon, ",")}, nil
}
