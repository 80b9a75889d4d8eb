// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

package cryptocore

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"filippo.io/age"
	"filippo.io/age/armor"

	"github.com/toeirei/keymaster-remote/internal/security"
)

// ErrEmptyPassphrase is returned by Seal and Open without a passphrase.
var ErrEmptyPassphrase = errors.New("cryptocore: empty passphrase")

// Seal encrypts plaintext to an ASCII armored age file protected by
// passphrase.
func (c *Core) Seal(plaintext []byte, passphrase security.Secret) ([]byte, error) {
	if passphrase.IsEmpty() {
		return nil, ErrEmptyPassphrase
	}
	recipient, err := age.NewScryptRecipient(string(passphrase))
	if err != nil {
		return nil, fmt.Errorf("create scrypt recipient: %w", err)
	}
	recipient.SetWorkFactor(c.workFactor)

	var out bytes.Buffer
	armored := armor.NewWriter(&out)
	w, err := age.Encrypt(armored, recipient)
	if err != nil {
		return nil, fmt.Errorf("start encryption: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finish encryption: %w", err)
	}
	if err := armored.Close(); err != nil {
		return nil, fmt.Errorf("finish armor: %w", err)
	}
	return out.Bytes(), nil
}

// Open decrypts a file produced by Seal.
func (c *Core) Open(sealed []byte, passphrase security.Secret) (security.Secret, error) {
	if passphrase.IsEmpty() {
		return nil, ErrEmptyPassphrase
	}
	identity, err := age.NewScryptIdentity(string(passphrase))
	if err != nil {
		return nil, fmt.Errorf("create scrypt identity: %w", err)
	}
	r, err := age.Decrypt(armor.NewReader(bytes.NewReader(sealed)), identity)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read plaintext: %w", err)
	}
	return security.Secret(plain), nil
}

// IsSealed reports whether data looks like an armored age file.
func IsSealed(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(data), []byte(armor.Header))
}
