// Package prompt asks the user for credentials on the terminal.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// ErrNotInteractive is returned when input is required but stdin is not a
// terminal
var ErrNotInteractive = errors.New("stdin is not a terminal")

// Prompter reads answers from a terminal
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  uintptr

	isTerminal   func(fd uintptr) bool
	readPassword func(fd int) ([]byte, error)
}

// New returns a prompter on stdin that writes questions to stderr
func New() *Prompter {
	return &Prompter{
		in:           bufio.NewReader(os.Stdin),
		out:          os.Stderr,
		fd:           os.Stdin.Fd(),
		isTerminal:   terminal,
		readPassword: term.ReadPassword,
	}
}

func terminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Interactive reports whether stdin is a terminal
func (p *Prompter) Interactive() bool {
	return p.isTerminal(p.fd)
}

// Username asks for the gist owner
func (p *Prompter) Username() (string, error) {
	if !p.Interactive() {
		return "", ErrNotInteractive
	}

	_, _ = fmt.Fprint(p.out, "GitHub username: ")
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read username: %w", err)
	}

	username := strings.TrimSpace(line)
	if username == "" {
		return "", fmt.Errorf("no username entered")
	}
	return username, nil
}

// Password asks for the password of username without echoing it
func (p *Prompter) Password(username string) (string, error) {
	if !p.Interactive() {
		return "", ErrNotInteractive
	}

	_, _ = fmt.Fprintf(p.out, "GitHub password for %s: ", username)
	pw, err := p.readPassword(int(p.fd))
	_, _ = fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	return string(pw), nil
}
