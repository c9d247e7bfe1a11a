package expr

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	intPattern   = regexp.MustCompile(`^[+-]?[0-9]+$`)
	floatPattern = regexp.MustCompile(`^[+-]?([0-9]+\.?[0-9]*|\.[0-9]+)([eE][+-]?[0-9]+)?$`)
)

// ParseBool parses the boolean words of the definition language: y, yes,
// true, 1, n, no, false, 0, in any case.
func ParseBool(s string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true", "1":
		return true, true
	case "n", "no", "false", "0":
		return false, true
	}
	return false, false
}

// FormatBool writes a boolean as Y or N.
func FormatBool(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}

// IsTrue reports whether s is a true boolean word.
func IsTrue(s string) bool {
	v, ok := ParseBool(s)
	return ok && v
}

func parseInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if !intPattern.MatchString(s) {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !floatPattern.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

// EvaluateExpr evaluates a parsed expression to its string result. warn,
// when non-nil, receives non-fatal diagnostics such as an ambiguous case
// label.
func EvaluateExpr(e *Expr, warn func(string)) (string, error) {
	switch e.Kind {
	case ExprLiteral:
		return e.Value, nil

	case ExprNot:
		v, err := EvaluateExpr(e.Left, warn)
		if err != nil {
			return "", err
		}
		b, ok := truth(v)
		if !ok {
			return "", &EvalError{Message: "not a boolean", Text: v}
		}
		return FormatBool(!b), nil

	case ExprBinaryOp:
		return evaluateBinaryOp(e, warn)

	case ExprCond:
		c, err := EvaluateExpr(e.Cond, warn)
		if err != nil {
			return "", err
		}
		b, ok := truth(c)
		if !ok {
			return "", &EvalError{Message: "condition is not a boolean", Text: c}
		}
		if b {
			return EvaluateExpr(e.Left, warn)
		}
		return EvaluateExpr(e.Right, warn)

	case ExprOneOf:
		v, err := EvaluateExpr(e.Left, warn)
		if err != nil {
			return "", err
		}
		found := false
		for _, m := range e.Set {
			if strings.EqualFold(strings.TrimSpace(v), m) {
				found = true
				break
			}
		}
		return FormatBool(found != e.Negate), nil

	case ExprCase:
		return evaluateCase(e, warn)

	case ExprFilename:
		base := filepath.Base(strings.TrimSpace(e.Value))
		if base == "." || base == string(filepath.Separator) {
			return "", nil
		}
		if ext := filepath.Ext(base); ext != "" && ext != base {
			base = strings.TrimSuffix(base, ext)
		}
		return strings.ToLower(base), nil

	case ExprExists:
		return FormatBool(strings.TrimSpace(e.Value) != ""), nil

	default:
		return "", &EvalError{Message: "unknown expression kind"}
	}
}

func evaluateBinaryOp(e *Expr, warn func(string)) (string, error) {
	l, err := EvaluateExpr(e.Left, warn)
	if err != nil {
		return "", err
	}
	r, err := EvaluateExpr(e.Right, warn)
	if err != nil {
		return "", err
	}

	switch e.Op {
	case "+", "-", "*", "/":
		return arithmetic(e.Op, l, r)
	case "==", "!=", ">", "<":
		return FormatBool(compare(e.Op, l, r)), nil
	case "&", "|":
		lb, lok := truth(l)
		rb, rok := truth(r)
		if !lok || !rok {
			return "", &EvalError{Message: "operands of " + e.Op + " are not booleans", Text: l + " " + e.Op + " " + r}
		}
		if e.Op == "&" {
			return FormatBool(lb && rb), nil
		}
		return FormatBool(lb || rb), nil
	default:
		return "", &EvalError{Message: "unknown operator " + e.Op}
	}
}

// arithmetic computes l op r with integers when both operands are integers
// and with floats otherwise. Float results use six decimal places.
func arithmetic(op, l, r string) (string, error) {
	if a, ok := parseInt(l); ok {
		if b, ok := parseInt(r); ok {
			switch op {
			case "+":
				return strconv.FormatInt(a+b, 10), nil
			case "-":
				return strconv.FormatInt(a-b, 10), nil
			case "*":
				return strconv.FormatInt(a*b, 10), nil
			default:
				if b == 0 {
					return "", &EvalError{Message: "division by zero", Text: l + " / " + r}
				}
				return strconv.FormatInt(a/b, 10), nil
			}
		}
	}

	a, aok := parseFloat(l)
	b, bok := parseFloat(r)
	if !aok || !bok {
		return "", &EvalError{Message: "operands of " + op + " are not numbers", Text: l + " " + op + " " + r}
	}
	var v float64
	switch op {
	case "+":
		v = a + b
	case "-":
		v = a - b
	case "*":
		v = a * b
	default:
		if b == 0 {
			return "", &EvalError{Message: "division by zero", Text: l + " / " + r}
		}
		v = a / b
	}
	return fmt.Sprintf("%f", v), nil
}

// compare tries integer, then float, then case-insensitive string order.
func compare(op, l, r string) bool {
	var c int
	if a, ok := parseInt(l); ok {
		if b, ok := parseInt(r); ok {
			c = cmp3(a < b, a > b)
			return order(op, c)
		}
	}
	if a, ok := parseFloat(l); ok {
		if b, ok := parseFloat(r); ok {
			c = cmp3(a < b, a > b)
			return order(op, c)
		}
	}
	c = strings.Compare(strings.ToLower(strings.TrimSpace(l)), strings.ToLower(strings.TrimSpace(r)))
	return order(op, c)
}

func cmp3(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}

func order(op string, c int) bool {
	switch op {
	case "==":
		return c == 0
	case "!=":
		return c != 0
	case ">":
		return c > 0
	default:
		return c < 0
	}
}

// truth accepts integers and floats (non-zero is true) and boolean words.
func truth(s string) (bool, bool) {
	if n, ok := parseInt(s); ok {
		return n != 0, true
	}
	if f, ok := parseFloat(s); ok {
		return f != 0, true
	}
	return ParseBool(s)
}

// evaluateCase picks the arm whose label equals the selector, then the
// single label the selector abbreviates. Several abbreviated labels warn
// and fall to else.
func evaluateCase(e *Expr, warn func(string)) (string, error) {
	v := strings.TrimSpace(e.Left.Value)
	if e.Left.Kind != ExprLiteral {
		var err error
		if v, err = EvaluateExpr(e.Left, warn); err != nil {
			return "", err
		}
	}

	for _, c := range e.Cases {
		if c.Key == v {
			return c.Result, nil
		}
	}
	for _, c := range e.Cases {
		if strings.EqualFold(c.Key, v) {
			return c.Result, nil
		}
	}

	var hits []Case
	if v != "" {
		for _, c := range e.Cases {
			if strings.HasPrefix(strings.ToLower(c.Key), strings.ToLower(v)) {
				hits = append(hits, c)
			}
		}
	}
	if len(hits) == 1 {
		return hits[0].Result, nil
	}
	if len(hits) > 1 && warn != nil {
		keys := make([]string, len(hits))
		for i, h := range hits {
			keys[i] = h.Key
		}
		warn(fmt.Sprintf("case value %q is ambiguous (%s), using else", v, strings.Join(keys, ", ")))
	}
	if e.HasElse {
		return e.Else, nil
	}
	return "", &EvalError{Message: "no case matches " + strconv.Quote(v)}
}
