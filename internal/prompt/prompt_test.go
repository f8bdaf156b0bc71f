package prompt

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPrompter(input string, tty bool, password string, pwErr error) (*Prompter, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &Prompter{
		in:         bufio.NewReader(strings.NewReader(input)),
		out:        out,
		isTerminal: func(uintptr) bool { return tty },
		readPassword: func(int) ([]byte, error) {
			return []byte(password), pwErr
		},
	}, out
}

func TestUsername(t *testing.T) {
	p, out := newTestPrompter("  octocat \n", true, "", nil)

	username, err := p.Username()
	require.NoError(t, err)
	assert.Equal(t, "octocat", username)
	assert.Contains(t, out.String(), "GitHub username")
}

func TestUsername_NoTrailingNewline(t *testing.T) {
	p, _ := newTestPrompter("octocat", true, "", nil)

	username, err := p.Username()
	require.NoError(t, err)
	assert.Equal(t, "octocat", username)
}

func TestUsername_Empty(t *testing.T) {
	p, _ := newTestPrompter("\n", true, "", nil)

	_, err := p.Username()
	assert.Error(t, err)
}

func TestUsername_NotInteractive(t *testing.T) {
	p, _ := newTestPrompter("octocat\n", false, "", nil)

	_, err := p.Username()
	assert.ErrorIs(t, err, ErrNotInteractive)
}

func TestPassword(t *testing.T) {
	p, out := newTestPrompter("", true, "hunter2", nil)

	pw, err := p.Password("octocat")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", pw)
	assert.Contains(t, out.String(), "password for octocat")
	assert.NotContains(t, out.String(), "hunter2")
}

func TestPassword_ReadError(t *testing.T) {
	p, _ := newTestPrompter("", true, "", errors.New("inappropriate ioctl"))

	_, err := p.Password("octocat")
	assert.Error(t, err)
}

func TestPassword_NotInteractive(t *testing.T) {
	p, _ := newTestPrompter("", false, "", nil)

	_, err := p.Password("octocat")
	assert.ErrorIs(t, err, ErrNotInteractive)
}
