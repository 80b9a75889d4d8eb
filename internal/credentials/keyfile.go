// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/toeirei/keymaster-remote/internal/cryptocore"
	"github.com/toeirei/keymaster-remote/internal/security"
)

var (
	// ErrNoPrivateKey is returned by Sign without an installed key.
	ErrNoPrivateKey = errors.New("credentials: no private key loaded")
	// ErrKeyFileUnreadable wraps failures to read a key file.
	ErrKeyFileUnreadable = errors.New("credentials: key file unreadable")
	// ErrPublicKeyMismatch is returned when the private key does not belong
	// to the stored public key.
	ErrPublicKeyMismatch = errors.New("credentials: private key does not match public key")
)

// LoadOptions tune LoadPrivateKey.
type LoadOptions struct {
	// PublicKeyPath, when the file exists, must hold the matching public key.
	PublicKeyPath string
	// Passphrase decrypts an encrypted private key.
	Passphrase security.Secret
	// Agent may supply the signer for an encrypted key without a passphrase.
	Agent agent.Agent
}

// LoadPrivateKey reads, parses and self-tests the private key at path and
// installs it. On any failure the installed credentials stay untouched.
func (c *Credentials) LoadPrivateKey(path string, opts LoadOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrKeyFileUnreadable, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%w: %s is empty", cryptocore.ErrMalformedKey, path)
	}

	expected, err := c.readPublicKey(opts.PublicKeyPath)
	if err != nil {
		return err
	}

	signer, err := c.crypto.ParsePrivateKey(data, opts.Passphrase)
	if errors.Is(err, cryptocore.ErrPassphraseRequired) && opts.Agent != nil {
		signer, err = c.agentSigner(data, opts.Agent)
	}
	if err != nil {
		return err
	}

	if expected != nil && !cryptocore.SamePublicKey(signer.PublicKey(), expected) {
		return ErrPublicKeyMismatch
	}
	if err := c.crypto.SelfTest(signer, expected); err != nil {
		return err
	}

	c.mu.Lock()
	c.signer = signer
	c.mu.Unlock()
	return nil
}

func (c *Credentials) readPublicKey(path string) (ssh.PublicKey, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyFileUnreadable, err)
	}
	return c.crypto.ParsePublicKey(data)
}

// agentSigner finds the agent identity matching the public key stored in
// the header of an encrypted private key.
func (c *Credentials) agentSigner(privateKey []byte, a agent.Agent) (ssh.Signer, error) {
	pub, err := c.crypto.PublicKeyFromPrivate(privateKey)
	if err != nil {
		return nil, err
	}
	signers, err := a.Signers()
	if err != nil {
		return nil, fmt.Errorf("list agent identities: %w", err)
	}
	for _, s := range signers {
		if cryptocore.SamePublicKey(s.PublicKey(), pub) {
			return s, nil
		}
	}
	return nil, cryptocore.ErrPassphraseRequired
}
