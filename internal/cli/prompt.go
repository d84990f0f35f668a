package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// errNotInteractive is returned when input is needed but stdin is not a terminal.
var errNotInteractive = errors.New("stdin is not a terminal")

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// promptLine prints label and reads one trimmed line from in.
// Non-terminal input is read as-is so values can be piped in.
func promptLine(in io.Reader, out io.Writer, label string) (string, error) {
	if isTerminal(in) {
		fmt.Fprint(out, label)
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", errNotInteractive
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptSecret reads a value without echoing it when in is a terminal.
func promptSecret(in io.Reader, out io.Writer, label string) (string, error) {
	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return promptLine(in, out, label)
	}
	fmt.Fprint(out, label)
	b, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
