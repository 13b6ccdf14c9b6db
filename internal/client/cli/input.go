package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

// GetSimpleText prints a prompt to w and reads a single line of input from reader.
// The trailing newline is trimmed. If EOF occurs after some input was read,
// the partial line is returned.
//
// Example prompt format:
//
//	Prompt text
//	> _
func GetSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// GetPassword prints a password prompt to w and reads a password from the
// terminal fd without echo. A newline is printed after the read to keep the
// UI tidy.
//
// The returned byte slice should be wiped by the caller when no longer needed.
func GetPassword(w io.Writer, fd int) ([]byte, error) {
	if _, err := fmt.Fprint(w, "Password: "); err != nil {
		return nil, err
	}
	pw, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

// fileDescriptor is implemented by *os.File.
type fileDescriptor interface {
	Fd() uintptr
}

// prompter reads answers from the command input. Passwords are read without
// echo when the input is a terminal and as plain lines otherwise, so the
// commands can be scripted.
type prompter struct {
	raw    io.Reader
	reader *bufio.Reader
	out    io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{raw: in, reader: bufio.NewReader(in), out: out}
}

// text returns value if set, otherwise asks for it.
func (p *prompter) text(value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	return GetSimpleText(p.reader, prompt, p.out)
}

func (p *prompter) password() ([]byte, error) {
	if f, ok := p.raw.(fileDescriptor); ok && isTerminal(int(f.Fd())) {
		return GetPassword(p.out, int(f.Fd()))
	}
	line, err := GetSimpleText(p.reader, "Password", p.out)
	if err != nil {
		return nil, err
	}
	return []byte(line), nil
}
