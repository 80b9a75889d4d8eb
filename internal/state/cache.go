// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

// package state provides an in-memory mailbox for key passphrases entered on
// the command line or in the TUI, so the authentication bootstrap can open an
// encrypted key file without prompting again.
package state

import (
	"sync"

	"github.com/toeirei/keymaster-remote/internal/security"
)

// AnyKey is the mailbox slot used when a passphrase applies to whichever key
// the bootstrap ends up selecting.
const AnyKey = "*"

// Passphrases is the process-wide passphrase mailbox.
var Passphrases = NewMailbox()

// Mailbox stores passphrases per authentication key name. It is safe for
// concurrent use.
type Mailbox struct {
	mu     sync.RWMutex
	values map[string]security.Secret
}

// NewMailbox returns an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{values: make(map[string]security.Secret)}
}

// Set stores a copy of pass for keyName, replacing and wiping any old value.
func (m *Mailbox) Set(keyName string, pass []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.values[keyName]; ok {
		old.Zero()
		delete(m.values, keyName)
	}
	if pass == nil {
		return
	}
	m.values[keyName] = security.FromBytes(pass)
}

// Get returns a copy of the passphrase for keyName, falling back to the
// AnyKey slot. The caller zeroes the returned secret.
func (m *Mailbox) Get(keyName string) security.Secret {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if v, ok := m.values[keyName]; ok {
		return security.FromBytes(v)
	}
	if v, ok := m.values[AnyKey]; ok {
		return security.FromBytes(v)
	}
	return nil
}

// Clear wipes every stored passphrase.
func (m *Mailbox) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.values {
		v.Zero()
		delete(m.values, k)
	}
}
