package expr

import "strings"

type tokenKind int

const (
	tokWord tokenKind = iota
	tokOp
)

type token struct {
	kind   tokenKind
	text   string
	quoted bool
	start  int // byte offsets in the source, quotes included
	end    int
}

func (t token) is(op string) bool {
	return t.kind == tokOp && t.text == op
}

const opChars = "+-*/!=<>&|?:{},"

// scan splits an @() body into words and operators. A '+' or '-' directly
// followed by a digit starts a number when it cannot be a binary operator.
func scan(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		ch := src[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			i++

		case ch == '"' || ch == '\'':
			end := strings.IndexByte(src[i+1:], ch)
			if end < 0 {
				return nil, &EvalError{Message: "unterminated quote", Text: src}
			}
			toks = append(toks, token{kind: tokWord, text: src[i+1 : i+1+end], quoted: true, start: i, end: i + end + 2})
			i += end + 2

		case (ch == '=' || ch == '!') && i+1 < len(src) && src[i+1] == '=':
			toks = append(toks, token{kind: tokOp, text: src[i : i+2], start: i, end: i + 2})
			i += 2

		case (ch == '-' || ch == '+') && signedNumber(toks, src[i+1:]):
			j := wordEnd(src, i+1)
			toks = append(toks, token{kind: tokWord, text: src[i:j], start: i, end: j})
			i = j

		case strings.IndexByte(opChars, ch) >= 0:
			toks = append(toks, token{kind: tokOp, text: string(ch), start: i, end: i + 1})
			i++

		default:
			j := wordEnd(src, i)
			toks = append(toks, token{kind: tokWord, text: src[i:j], start: i, end: j})
			i = j
		}
	}
	return toks, nil
}

func signedNumber(prev []token, rest string) bool {
	if rest == "" || !(rest[0] >= '0' && rest[0] <= '9' || rest[0] == '.') {
		return false
	}
	if len(prev) == 0 {
		return true
	}
	last := prev[len(prev)-1]
	return last.kind == tokOp && last.text != "}"
}

func wordEnd(src string, i int) int {
	for i < len(src) {
		ch := src[i]
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '"' || ch == '\'' || strings.IndexByte(opChars, ch) >= 0 {
			break
		}
		i++
	}
	return i
}
