// Package lexer splits definition source into words with line numbers.
//
// Words are separated by whitespace outside quotes. A quote opens a quoted
// segment when it starts a word, follows a leading '[', or follows a ':'
// inside the word; the segment runs to the matching quote character across
// whitespace and newlines. A '#' starting a word outside quotes begins a
// comment running to the end of the line.
package lexer

import (
	"io"
	"iter"
	"log/slog"
	"os"

	"github.com/opal-lang/acd/core/acderr"
	"github.com/opal-lang/acd/core/invariant"
)

// ASCII character lookup tables
var (
	isSpace [128]bool
	isQuote [128]bool
)

func init() {
	for i := 0; i < 128; i++ {
		ch := byte(i)
		isSpace[i] = ch == ' ' || ch == '\t' || ch == '\r' || ch == '\f' || ch == '\v' || ch == '\n'
		isQuote[i] = ch == '"' || ch == '\''
	}
}

func space(ch byte) bool { return ch < 128 && isSpace[ch] }
func quote(ch byte) bool { return ch < 128 && isQuote[ch] }

// LexerOpt configures a Lexer.
type LexerOpt func(*LexerConfig)

// LexerConfig holds lexer configuration.
type LexerConfig struct {
	file   string
	logger *slog.Logger
}

// WithFile names the source in error messages.
func WithFile(name string) LexerOpt {
	return func(c *LexerConfig) {
		c.file = name
	}
}

// WithLogger routes debug tracing to logger.
func WithLogger(logger *slog.Logger) LexerOpt {
	return func(c *LexerConfig) {
		c.logger = logger
	}
}

// Lexer is a single forward pass over one source.
type Lexer struct {
	input  []byte
	pos    int
	line   int
	col    int
	file   string
	logger *slog.Logger
	done   bool
}

// NewLexer creates a lexer over input. Tracing goes to stderr at debug level
// when ACD_DEBUG_LEXER is set, unless a logger is supplied.
func NewLexer(input []byte, opts ...LexerOpt) *Lexer {
	config := &LexerConfig{}
	for _, opt := range opts {
		opt(config)
	}

	logger := config.logger
	if logger == nil {
		level := slog.LevelInfo
		if os.Getenv("ACD_DEBUG_LEXER") != "" {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
					return slog.Attr{}
				}
				return a
			},
		}))
	}

	return &Lexer{
		input:  input,
		line:   1,
		col:    1,
		file:   config.file,
		logger: logger,
	}
}

// Next returns the next word, or io.EOF once the input is exhausted.
func (l *Lexer) Next() (Token, error) {
	if l.done {
		return Token{}, io.EOF
	}
	l.skipSpaceAndComments()
	if l.pos >= len(l.input) {
		l.done = true
		return Token{}, io.EOF
	}

	start := l.pos
	tok := Token{Line: l.line, Column: l.col, quoteStart: -1, quoteEnd: -1}
	for l.pos < len(l.input) && !space(l.input[l.pos]) {
		ch := l.input[l.pos]
		if quote(ch) && tok.quoteStart < 0 && l.opensQuote(start) {
			if err := l.scanQuoted(&tok, start); err != nil {
				l.done = true
				return Token{}, err
			}
			continue
		}
		l.advance()
	}
	invariant.Postcondition(l.pos > start, "lexer made no progress at %d:%d", tok.Line, tok.Column)

	tok.Text = string(l.input[start:l.pos])
	l.logger.Debug("token", "text", tok.Text, "line", tok.Line, "column", tok.Column)
	return tok, nil
}

// opensQuote reports whether a quote at the current position starts a
// quoted segment of the word beginning at start.
func (l *Lexer) opensQuote(start int) bool {
	if l.pos == start {
		return true
	}
	prev := l.input[l.pos-1]
	if prev == ':' {
		return true
	}
	return prev == '[' && l.pos-1 == start
}

// scanQuoted consumes a quoted segment including both quotes.
func (l *Lexer) scanQuoted(tok *Token, start int) error {
	q := l.input[l.pos]
	openLine := l.line
	tok.quoteStart = l.pos - start
	l.advance()
	for l.pos < len(l.input) {
		if l.input[l.pos] == q {
			tok.quoteEnd = l.pos - start
			l.advance()
			return nil
		}
		l.advance()
	}
	return acderr.Syntax(l.file, openLine, "unterminated %c quote", q)
}

func (l *Lexer) skipSpaceAndComments() {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case space(ch):
			l.advance()
		case ch == '#':
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *Lexer) advance() {
	if l.input[l.pos] == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	l.pos++
}

// Tokens returns the remaining words as a sequence. Iteration stops after
// the first error.
func (l *Lexer) Tokens() iter.Seq2[Token, error] {
	return func(yield func(Token, error) bool) {
		for {
			tok, err := l.Next()
			if err == io.EOF {
				return
			}
			if !yield(tok, err) || err != nil {
				return
			}
		}
	}
}

// GetTokens drains the lexer.
func (l *Lexer) GetTokens() ([]Token, error) {
	var out []Token
	for tok, err := range l.Tokens() {
		if err != nil {
			return out, err
		}
		out = append(out, tok)
	}
	return out, nil
}
