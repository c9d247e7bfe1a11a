package lexer

import "fmt"

// Token is one whitespace-delimited word of a definition file. Brackets
// stay glued to the word they touch; the parser strips them.
type Token struct {
	Text   string
	Line   int // line of the first byte
	Column int

	// Byte offsets within Text of the opening and closing quote of the
	// quoted segment, -1 when the word has none.
	quoteStart int
	quoteEnd   int
}

// Quoted reports whether the word contains a quoted segment.
func (t Token) Quoted() bool {
	return t.quoteStart >= 0
}

// QuoteSpan returns the offsets of the opening and closing quote.
func (t Token) QuoteSpan() (start, end int, ok bool) {
	if t.quoteStart < 0 {
		return -1, -1, false
	}
	return t.quoteStart, t.quoteEnd, true
}

// OpensBlock reports whether the word starts with a '[' outside quotes.
func (t Token) OpensBlock() bool {
	return len(t.Text) > 0 && t.Text[0] == '[' && t.quoteStart != 0
}

// ClosesBlock reports whether the word ends with a ']' outside quotes.
func (t Token) ClosesBlock() bool {
	n := len(t.Text)
	if n == 0 || t.Text[n-1] != ']' {
		return false
	}
	return t.quoteStart < 0 || t.quoteEnd < n-1
}

// Trim returns the token with one leading '[' and one trailing ']' removed
// when they lie outside quotes.
func (t Token) Trim() Token {
	if t.ClosesBlock() {
		t.Text = t.Text[:len(t.Text)-1]
	}
	if t.OpensBlock() {
		t.Text = t.Text[1:]
		t.Column++
		if t.quoteStart >= 0 {
			t.quoteStart--
			t.quoteEnd--
		}
	}
	return t
}

// Value returns the text with the quotes of its quoted segment removed.
func (t Token) Value() string {
	if t.quoteStart < 0 {
		return t.Text
	}
	return t.Text[:t.quoteStart] + t.Text[t.quoteStart+1:t.quoteEnd] + t.Text[t.quoteEnd+1:]
}

// Slice returns the part of the token from byte offset i, keeping quote
// offsets consistent.
func (t Token) Slice(i int) Token {
	out := Token{Text: t.Text[i:], Line: t.Line, Column: t.Column + i, quoteStart: -1, quoteEnd: -1}
	if t.quoteStart >= i {
		out.quoteStart = t.quoteStart - i
		out.quoteEnd = t.quoteEnd - i
	}
	return out
}

func (t Token) String() string {
	return fmt.Sprintf("%d:%d %q", t.Line, t.Column, t.Text)
}
