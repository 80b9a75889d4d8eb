// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

package credentials

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/toeirei/keymaster-remote/internal/cryptocore"
	"github.com/toeirei/keymaster-remote/internal/security"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestHasCredentials(t *testing.T) {
	c := New(cryptocore.New())
	if c.HasCredentials(UserLogon) || c.Present() != None {
		t.Fatalf("fresh credentials should be empty")
	}

	c.SetLogon("alice", security.FromString("pw"))
	c.SetToken(security.FromString("tok"))
	if !c.HasCredentials(UserLogon | Token) {
		t.Fatalf("expected logon and token, have %v", c.Present())
	}
	if c.HasCredentials(UserLogon | PrivateKey) {
		t.Fatalf("private key reported without being loaded")
	}
	if got := c.Present().String(); got != "logon|token" {
		t.Fatalf("Present().String() = %q", got)
	}

	c.SetLogon("bob", nil)
	if c.HasCredentials(UserLogon) {
		t.Fatalf("logon without password must not count")
	}

	c.Reset()
	if c.Present() != None || c.LogonUsername() != "" {
		t.Fatalf("Reset left credentials behind")
	}
	if _, err := c.Sign([]byte("x")); !errors.Is(err, ErrNoPrivateKey) {
		t.Fatalf("expected ErrNoPrivateKey, got %v", err)
	}
}

func TestLoadPrivateKey_Success(t *testing.T) {
	crypto := cryptocore.New()
	kp, err := crypto.GenerateKeyPair("k", nil)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	dir := t.TempDir()
	priv := filepath.Join(dir, "private", "k", "key")
	pub := filepath.Join(dir, "public", "k", "key")
	writeFile(t, priv, kp.PrivateKey)
	writeFile(t, pub, kp.PublicKey)

	c := New(crypto)
	if err := c.LoadPrivateKey(priv, LoadOptions{PublicKeyPath: pub}); err != nil {
		t.Fatalf("LoadPrivateKey: %v", err)
	}
	if !c.HasCredentials(PrivateKey) {
		t.Fatalf("expected private key installed")
	}
	sig, err := c.Sign([]byte("challenge"))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	expected, _ := crypto.ParsePublicKey(kp.PublicKey)
	if err := crypto.Verify(expected, []byte("challenge"), sig); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestLoadPrivateKey_FailuresLeaveStateUntouched(t *testing.T) {
	crypto := cryptocore.New()
	a, _ := crypto.GenerateKeyPair("a", nil)
	b, _ := crypto.GenerateKeyPair("b", nil)
	dir := t.TempDir()

	good := filepath.Join(dir, "good")
	writeFile(t, good, a.PrivateKey)
	c := New(crypto)
	if err := c.LoadPrivateKey(good, LoadOptions{}); err != nil {
		t.Fatalf("LoadPrivateKey: %v", err)
	}
	installed := c.PrivateKey()

	garbage := filepath.Join(dir, "garbage")
	writeFile(t, garbage, []byte("not a key"))
	empty := filepath.Join(dir, "empty")
	writeFile(t, empty, nil)
	otherPub := filepath.Join(dir, "other.pub")
	writeFile(t, otherPub, b.PublicKey)

	cases := []struct {
		name string
		path string
		opts LoadOptions
		want error
	}{
		{"missing", filepath.Join(dir, "missing"), LoadOptions{}, ErrKeyFileUnreadable},
		{"malformed", garbage, LoadOptions{}, cryptocore.ErrMalformedKey},
		{"empty", empty, LoadOptions{}, cryptocore.ErrMalformedKey},
		{"mismatch", good, LoadOptions{PublicKeyPath: otherPub}, ErrPublicKeyMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := c.LoadPrivateKey(tc.path, tc.opts)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if c.PrivateKey() != installed {
				t.Fatalf("failed load replaced the installed key")
			}
		})
	}
}

func TestLoadPrivateKey_EncryptedWithPassphraseOrAgent(t *testing.T) {
	crypto := cryptocore.New()
	_, raw, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	block, err := ssh.MarshalPrivateKeyWithPassphrase(raw, "enc", []byte("pass"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "key")
	writeFile(t, path, pem.EncodeToMemory(block))

	c := New(crypto)
	if err := c.LoadPrivateKey(path, LoadOptions{}); !errors.Is(err, cryptocore.ErrPassphraseRequired) {
		t.Fatalf("expected ErrPassphraseRequired, got %v", err)
	}

	if err := c.LoadPrivateKey(path, LoadOptions{Passphrase: security.FromString("pass")}); err != nil {
		t.Fatalf("LoadPrivateKey with passphrase: %v", err)
	}

	c.Reset()
	empty := agent.NewKeyring()
	if err := c.LoadPrivateKey(path, LoadOptions{Agent: empty}); !errors.Is(err, cryptocore.ErrPassphraseRequired) {
		t.Fatalf("expected ErrPassphraseRequired with empty agent, got %v", err)
	}

	keyring := agent.NewKeyring()
	if err := keyring.Add(agent.AddedKey{PrivateKey: raw}); err != nil {
		t.Fatalf("agent add: %v", err)
	}
	if err := c.LoadPrivateKey(path, LoadOptions{Agent: keyring}); err != nil {
		t.Fatalf("LoadPrivateKey via agent: %v", err)
	}
	if !c.HasCredentials(PrivateKey) {
		t.Fatalf("expected agent signer installed")
	}
}
