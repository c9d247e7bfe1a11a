package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	"golang.org/x/term"
)

// LineReader reads one reply per prompt. It returns io.EOF when input ends.
type LineReader interface {
	ReadLine(prompt string) (string, error)
}

// NewReader returns a line-editing reader when in is a terminal and a
// buffered reader otherwise. The caller closes the result.
func NewReader(in *os.File, out io.Writer) LineReader {
	if term.IsTerminal(int(in.Fd())) {
		ln := liner.NewLiner()
		ln.SetCtrlCAborts(true)
		return &terminalReader{ln: ln}
	}
	return NewBufferedReader(in, out)
}

// terminalReader edits lines with history across prompts.
type terminalReader struct {
	ln *liner.State
}

func (r *terminalReader) ReadLine(prompt string) (string, error) {
	line, err := r.ln.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(line) != "" {
		r.ln.AppendHistory(line)
	}
	return line, nil
}

func (r *terminalReader) Close() error {
	return r.ln.Close()
}

// BufferedReader reads lines from any reader, echoing the prompt to out.
type BufferedReader struct {
	in  *bufio.Reader
	out io.Writer
}

// NewBufferedReader returns a reader over in.
func NewBufferedReader(in io.Reader, out io.Writer) *BufferedReader {
	return &BufferedReader{in: bufio.NewReader(in), out: out}
}

func (r *BufferedReader) ReadLine(prompt string) (string, error) {
	if r.out != nil {
		fmt.Fprint(r.out, prompt)
	}
	line, err := r.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Close closes r when it holds resources.
func Close(r LineReader) error {
	if c, ok := r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
