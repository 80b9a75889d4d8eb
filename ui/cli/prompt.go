// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/toeirei/keymaster-remote/internal/i18n"
	"github.com/toeirei/keymaster-remote/internal/security"
)

// stdin feeds line prompts; tests replace it.
var stdin io.Reader = os.Stdin

// readPassword reads a secret without echo. Tests replace it.
var readPassword = func(prompt string) (security.Secret, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New(i18n.T("authkeys.error.no_terminal"))
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	return security.Secret(b), nil
}

// promptNewPassphrase asks for a passphrase twice.
func promptNewPassphrase() (security.Secret, error) {
	first, err := readPassword(i18n.T("authkeys.prompt.passphrase"))
	if err != nil {
		return nil, err
	}
	second, err := readPassword(i18n.T("authkeys.prompt.confirm"))
	defer second.Zero()
	if err != nil {
		first.Zero()
		return nil, err
	}
	if !first.Equal(second) {
		first.Zero()
		return nil, errors.New(i18n.T("authkeys.error.mismatch"))
	}
	return first, nil
}

// terminalPrompter asks for logon credentials on the terminal.
type terminalPrompter struct{}

func (terminalPrompter) PromptLogon() (string, security.Secret, error) {
	fmt.Fprint(os.Stderr, i18n.T("auth.prompt.username"))
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", nil, fmt.Errorf("read username: %w", err)
	}
	password, err := readPassword(i18n.T("auth.prompt.password"))
	if err != nil {
		return "", nil, err
	}
	return strings.TrimSpace(line), password, nil
}
