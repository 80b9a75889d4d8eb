// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package authkeys manages the authentication key pairs stored below the
// configured private and public key directories.
package authkeys

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/toeirei/keymaster-remote/internal/core"
	"github.com/toeirei/keymaster-remote/internal/cryptocore"
	"github.com/toeirei/keymaster-remote/internal/filesystem"
	"github.com/toeirei/keymaster-remote/internal/logging"
	"github.com/toeirei/keymaster-remote/internal/security"
)

var (
	ErrInvalidName = errors.New("authkeys: invalid key name")
	ErrInvalidKind = errors.New("authkeys: invalid key kind")
	ErrExists      = errors.New("authkeys: key already exists")
	ErrNotFound    = errors.New("authkeys: key not found")
)

// Kind selects the private or public half of a key pair.
type Kind string

const (
	Private Kind = "private"
	Public  Kind = "public"
)

// ParseKind parses "private" or "public".
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case Private, Public:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// Key describes a stored key pair.
type Key struct {
	Name        string
	HasPrivate  bool
	HasPublic   bool
	Fingerprint string
}

// Manager creates, lists, exports and imports authentication keys.
type Manager struct {
	fs     *filesystem.Filesystem
	crypto *cryptocore.Core
}

// New returns a Manager on top of the registry's filesystem and crypto core.
func New(fs *filesystem.Filesystem, crypto *cryptocore.Core) *Manager {
	return &Manager{fs: fs, crypto: crypto}
}

// FromCore returns a Manager for the subsystems of c.
func FromCore(c *core.Core) *Manager {
	return New(c.Filesystem(), c.CryptoCore())
}

func (m *Manager) path(name string, kind Kind) (string, error) {
	if !core.IsAuthenticationKeyNameValid(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	switch kind {
	case Private:
		return m.fs.PrivateKeyPath(name)
	case Public:
		return m.fs.PublicKeyPath(name)
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, kind)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Create generates a key pair called name. A non-empty passphrase encrypts
// the private key.
func (m *Manager) Create(name string, passphrase security.Secret) (Key, error) {
	privPath, err := m.path(name, Private)
	if err != nil {
		return Key{}, err
	}
	pubPath, err := m.path(name, Public)
	if err != nil {
		return Key{}, err
	}
	if exists(privPath) || exists(pubPath) {
		return Key{}, fmt.Errorf("%w: %s", ErrExists, name)
	}

	kp, err := m.crypto.GenerateKeyPair(name, passphrase)
	if err != nil {
		return Key{}, err
	}
	defer kp.PrivateKey.Zero()

	if err := m.fs.WriteKeyFile(privPath, kp.PrivateKey, true); err != nil {
		return Key{}, err
	}
	if err := m.fs.WriteKeyFile(pubPath, kp.PublicKey, false); err != nil {
		_ = m.fs.RemoveKey(privPath)
		return Key{}, err
	}
	logging.Infof("created authentication key pair %s", name)
	return m.describe(name)
}

// Delete removes one half of the key pair name.
func (m *Manager) Delete(name string, kind Kind) error {
	path, err := m.path(name, kind)
	if err != nil {
		return err
	}
	if !exists(path) {
		return fmt.Errorf("%w: %s (%s)", ErrNotFound, name, kind)
	}
	if err := m.fs.RemoveKey(path); err != nil {
		return err
	}
	logging.Infof("deleted %s key %s", kind, name)
	return nil
}

// List returns every stored key sorted by name.
func (m *Manager) List() ([]Key, error) {
	names := make(map[string]bool)
	for _, base := range []func() (string, error){m.fs.PrivateKeyBaseDir, m.fs.PublicKeyBaseDir} {
		dir, err := base()
		if err != nil {
			return nil, err
		}
		found, err := m.fs.KeyNames(dir)
		if err != nil {
			return nil, err
		}
		for _, n := range found {
			if core.IsAuthenticationKeyNameValid(n) {
				names[n] = true
			}
		}
	}

	keys := make([]Key, 0, len(names))
	for n := range names {
		k, err := m.describe(n)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Name < keys[j].Name })
	return keys, nil
}

func (m *Manager) describe(name string) (Key, error) {
	privPath, err := m.path(name, Private)
	if err != nil {
		return Key{}, err
	}
	pubPath, err := m.path(name, Public)
	if err != nil {
		return Key{}, err
	}
	k := Key{Name: name, HasPrivate: exists(privPath), HasPublic: exists(pubPath)}
	if k.HasPublic {
		if data, err := os.ReadFile(pubPath); err == nil {
			if pub, err := m.crypto.ParsePublicKey(data); err == nil {
				k.Fingerprint = cryptocore.Fingerprint(pub)
			}
		}
	} else if k.HasPrivate {
		if data, err := os.ReadFile(privPath); err == nil {
			if pub, err := m.crypto.PublicKeyFromPrivate(data); err == nil {
				k.Fingerprint = cryptocore.Fingerprint(pub)
			}
		}
	}
	return k, nil
}

// Export writes one half of the key pair to w. A private key exported with a
// passphrase is sealed with it.
func (m *Manager) Export(name string, kind Kind, w io.Writer, passphrase security.Secret) error {
	path, err := m.path(name, kind)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s (%s)", ErrNotFound, name, kind)
	}
	if err != nil {
		return fmt.Errorf("read %s key %s: %w", kind, name, err)
	}
	secret := security.Secret(data)
	defer secret.Zero()

	out := []byte(secret)
	if kind == Private && !passphrase.IsEmpty() {
		if out, err = m.crypto.Seal(secret, passphrase); err != nil {
			return err
		}
	}
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("write %s key %s: %w", kind, name, err)
	}
	return nil
}

// Import validates the key read from r and stores it as one half of the key
// pair name. Sealed private keys are opened with passphrase.
func (m *Manager) Import(name string, kind Kind, r io.Reader, passphrase security.Secret) error {
	path, err := m.path(name, kind)
	if err != nil {
		return err
	}
	if exists(path) {
		return fmt.Errorf("%w: %s (%s)", ErrExists, name, kind)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read key: %w", err)
	}
	data := security.Secret(raw)
	defer data.Zero()

	switch kind {
	case Private:
		if cryptocore.IsSealed(data) {
			opened, err := m.crypto.Open(data, passphrase)
			if err != nil {
				return err
			}
			data.Zero()
			data = opened
		}
		if _, err := m.crypto.PublicKeyFromPrivate(data); err != nil {
			return err
		}
	case Public:
		pub, err := m.crypto.ParsePublicKey(data)
		if err != nil {
			return err
		}
		data = cryptocore.MarshalPublicKey(pub, name)
	}

	if err := m.fs.WriteKeyFile(path, data, kind == Private); err != nil {
		return err
	}
	logging.Infof("imported %s key %s", kind, name)
	return nil
}

// Extract derives the public key of name from its private key.
func (m *Manager) Extract(name string) (Key, error) {
	privPath, err := m.path(name, Private)
	if err != nil {
		return Key{}, err
	}
	pubPath, err := m.path(name, Public)
	if err != nil {
		return Key{}, err
	}
	data, err := os.ReadFile(privPath)
	if errors.Is(err, os.ErrNotExist) {
		return Key{}, fmt.Errorf("%w: %s (%s)", ErrNotFound, name, Private)
	}
	if err != nil {
		return Key{}, fmt.Errorf("read private key %s: %w", name, err)
	}
	pub, err := m.crypto.PublicKeyFromPrivate(bytes.TrimSpace(data))
	if err != nil {
		return Key{}, err
	}
	if err := m.fs.WriteKeyFile(pubPath, cryptocore.MarshalPublicKey(pub, name), false); err != nil {
		return Key{}, err
	}
	logging.Infof("extracted public key %s", name)
	return m.describe(name)
}
