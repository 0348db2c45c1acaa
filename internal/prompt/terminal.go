package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// IsTerminal reports whether r is an interactive terminal.
func IsTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// SecretReader reads secrets one line at a time. Input is not echoed when
// it comes from a terminal.
type SecretReader struct {
	in  io.Reader
	out io.Writer
	buf *bufio.Reader
}

// NewSecretReader creates a reader prompting on out.
func NewSecretReader(in io.Reader, out io.Writer) *SecretReader {
	return &SecretReader{in: in, out: out, buf: bufio.NewReader(in)}
}

// Read prints label and returns the next line without its line ending.
func (r *SecretReader) Read(label string) (string, error) {
	fmt.Fprintf(r.out, "%s: ", label)

	if f, ok := r.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(r.out)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", label, err)
		}
		return string(b), nil
	}

	line, err := r.buf.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read %s: %w", label, err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
