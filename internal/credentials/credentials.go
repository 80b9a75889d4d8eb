// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package credentials holds the authentication material of the running
// process: logon username and password, the authentication private key and
// an optional session token.
package credentials

import (
	"crypto/rand"
	"strings"
	"sync"

	"golang.org/x/crypto/ssh"

	"github.com/toeirei/keymaster-remote/internal/cryptocore"
	"github.com/toeirei/keymaster-remote/internal/security"
)

// Type is a bit set of credential kinds.
type Type uint8

const (
	UserLogon Type = 1 << iota
	PrivateKey
	Token

	None Type = 0
)

func (t Type) String() string {
	if t == None {
		return "none"
	}
	var parts []string
	if t&UserLogon != 0 {
		parts = append(parts, "logon")
	}
	if t&PrivateKey != 0 {
		parts = append(parts, "private-key")
	}
	if t&Token != 0 {
		parts = append(parts, "token")
	}
	return strings.Join(parts, "|")
}

// Credentials is the credentials subsystem. All methods are safe for
// concurrent use.
type Credentials struct {
	crypto *cryptocore.Core

	mu            sync.RWMutex
	logonUsername string
	logonPassword security.Secret
	signer        ssh.Signer
	token         security.Secret
}

// New returns empty credentials bound to the crypto subsystem.
func New(crypto *cryptocore.Core) *Credentials {
	return &Credentials{crypto: crypto}
}

// HasCredentials reports whether every kind in t is present.
func (c *Credentials) HasCredentials(t Type) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.present()&t == t
}

// Present returns the set of kinds currently held.
func (c *Credentials) Present() Type {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.present()
}

func (c *Credentials) present() Type {
	var t Type
	if c.logonUsername != "" && !c.logonPassword.IsEmpty() {
		t |= UserLogon
	}
	if c.signer != nil {
		t |= PrivateKey
	}
	if !c.token.IsEmpty() {
		t |= Token
	}
	return t
}

// SetLogon installs a logon username and a copy of password.
func (c *Credentials) SetLogon(username string, password security.Secret) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logonPassword.Zero()
	c.logonUsername = username
	c.logonPassword = security.FromBytes(password)
}

// LogonUsername returns the logon username.
func (c *Credentials) LogonUsername() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logonUsername
}

// LogonPassword returns a copy of the logon password.
func (c *Credentials) LogonPassword() security.Secret {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return security.FromBytes(c.logonPassword)
}

// SetToken installs a copy of token.
func (c *Credentials) SetToken(token security.Secret) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token.Zero()
	c.token = security.FromBytes(token)
}

// Token returns a copy of the token.
func (c *Credentials) Token() security.Secret {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return security.FromBytes(c.token)
}

// PrivateKey returns the installed signer, or nil.
func (c *Credentials) PrivateKey() ssh.Signer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.signer
}

// Sign signs data with the installed private key.
func (c *Credentials) Sign(data []byte) (*ssh.Signature, error) {
	signer := c.PrivateKey()
	if signer == nil {
		return nil, ErrNoPrivateKey
	}
	return signer.Sign(rand.Reader, data)
}

// Reset drops every credential and wipes secrets.
func (c *Credentials) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logonUsername = ""
	c.logonPassword.Zero()
	c.token.Zero()
	c.signer = nil
}

// Close wipes the credentials on registry teardown.
func (c *Credentials) Close() error {
	c.Reset()
	return nil
}
