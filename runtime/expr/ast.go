// Package expr resolves attribute values: $(item) and $(item.attr)
// references against a definition, then @(...) expressions.
//
// An @() body is parsed into an Expr tree and evaluated with the operand
// typing rules of the definition language: arithmetic tries integers before
// floats, comparisons try integers, then floats, then case-insensitive
// strings, and logical operators accept numbers or boolean words. Booleans
// are written Y and N.
package expr

// ExprKind identifies the type of expression.
type ExprKind int

const (
	ExprLiteral  ExprKind = iota // word or quoted string
	ExprNot                      // !x
	ExprBinaryOp                 // + - * / == != > < & |
	ExprCond                     // c ? a : b
	ExprOneOf                    // v == {a|b}, v != {a|b}
	ExprCase                     // v = k1:r1, k2:r2, else:d
	ExprFilename                 // filename: path
	ExprExists                   // exists: x
)

// Expr is one node of a parsed @() body.
type Expr struct {
	Kind ExprKind

	// ExprLiteral, ExprFilename, ExprExists
	Value string

	// ExprBinaryOp, ExprNot (Left only), ExprCond (Cond ? Left : Right)
	Op    string
	Cond  *Expr
	Left  *Expr
	Right *Expr

	// ExprOneOf: Left compared against Set; Negate for !=
	Set    []string
	Negate bool

	// ExprCase: Left selects among Cases
	Cases   []Case
	Else    string
	HasElse bool
}

// Case is one "key: result" arm of a case expression.
type Case struct {
	Key    string
	Result string
}

// EvalError represents an error during parsing or evaluation.
type EvalError struct {
	Message string
	Text    string // offending expression text
}

func (e *EvalError) Error() string {
	if e.Text != "" {
		return e.Message + ": " + e.Text
	}
	return e.Message
}
