// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

package cryptocore

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/toeirei/keymaster-remote/internal/security"
)

// ChallengeSize is the number of random bytes signed by SelfTest.
const ChallengeSize = 32

var (
	// ErrPassphraseRequired is returned for an encrypted private key when no
	// passphrase was supplied.
	ErrPassphraseRequired = errors.New("cryptocore: private key is passphrase protected")
	// ErrMalformedKey is returned for key material that does not parse.
	ErrMalformedKey = errors.New("cryptocore: malformed key")
	// ErrKeyMismatch is returned when a signature does not verify.
	ErrKeyMismatch = errors.New("cryptocore: key mismatch")
)

// Core is the crypto subsystem.
type Core struct {
	rand       io.Reader
	workFactor int
}

// Option configures a Core.
type Option func(*Core)

// WithScryptWorkFactor sets the log2 scrypt work factor used by Seal.
func WithScryptWorkFactor(logN int) Option {
	return func(c *Core) { c.workFactor = logN }
}

// WithRand replaces the randomness source.
func WithRand(r io.Reader) Option {
	return func(c *Core) { c.rand = r }
}

// New returns a Core.
func New(opts ...Option) *Core {
	c := &Core{rand: rand.Reader, workFactor: 18}
	for _, o := range opts {
		o(c)
	}
	return c
}

// KeyPair is a freshly generated authentication key pair.
type KeyPair struct {
	// PublicKey is a single authorized_keys line, newline terminated.
	PublicKey []byte
	// PrivateKey is the OpenSSH PEM encoded private key.
	PrivateKey security.Secret
}

// GenerateKeyPair creates an ed25519 key pair. A non-empty passphrase
// encrypts the private key.
func (c *Core) GenerateKeyPair(comment string, passphrase security.Secret) (KeyPair, error) {
	pubKey, privKey, err := ed25519.GenerateKey(c.rand)
	if err != nil {
		return KeyPair{}, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}

	sshPubKey, err := ssh.NewPublicKey(pubKey)
	if err != nil {
		return KeyPair{}, fmt.Errorf("failed to create SSH public key: %w", err)
	}

	var block *pem.Block
	if passphrase.IsEmpty() {
		block, err = ssh.MarshalPrivateKey(privKey, comment)
	} else {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(privKey, comment, passphrase.Bytes())
	}
	if err != nil {
		return KeyPair{}, fmt.Errorf("failed to marshal private key: %w", err)
	}

	return KeyPair{
		PublicKey:  MarshalPublicKey(sshPubKey, comment),
		PrivateKey: security.Secret(pem.EncodeToMemory(block)),
	}, nil
}

// ParsePrivateKey parses an OpenSSH or PKCS PEM private key into a signer.
func (c *Core) ParsePrivateKey(data []byte, passphrase security.Secret) (ssh.Signer, error) {
	var (
		signer ssh.Signer
		err    error
	)
	if passphrase.IsEmpty() {
		signer, err = ssh.ParsePrivateKey(data)
	} else {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(data, passphrase.Bytes())
	}
	if err == nil {
		return signer, nil
	}
	var missing *ssh.PassphraseMissingError
	if errors.As(err, &missing) {
		return nil, ErrPassphraseRequired
	}
	return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
}

// PublicKeyFromPrivate returns the public key of a private key. For an
// encrypted OpenSSH key it is read from the unencrypted header.
func (c *Core) PublicKeyFromPrivate(data []byte) (ssh.PublicKey, error) {
	signer, err := ssh.ParsePrivateKey(data)
	if err == nil {
		return signer.PublicKey(), nil
	}
	var missing *ssh.PassphraseMissingError
	if errors.As(err, &missing) && missing.PublicKey != nil {
		return missing.PublicKey, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
}

// ParsePublicKey parses an authorized_keys formatted public key.
func (c *Core) ParsePublicKey(data []byte) (ssh.PublicKey, error) {
	pub, _, _, _, err := ssh.ParseAuthorizedKey(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	return pub, nil
}

// MarshalPublicKey renders pub as an authorized_keys line with comment.
func MarshalPublicKey(pub ssh.PublicKey, comment string) []byte {
	line := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(pub)))
	if comment != "" {
		line += " " + comment
	}
	return []byte(line + "\n")
}

// Fingerprint returns the SHA256 fingerprint of pub.
func Fingerprint(pub ssh.PublicKey) string {
	return ssh.FingerprintSHA256(pub)
}

// SamePublicKey reports whether a and b encode the same key.
func SamePublicKey(a, b ssh.PublicKey) bool {
	return a != nil && b != nil && bytes.Equal(a.Marshal(), b.Marshal())
}

// Challenge returns ChallengeSize random bytes.
func (c *Core) Challenge() ([]byte, error) {
	buf := make([]byte, ChallengeSize)
	if _, err := io.ReadFull(c.rand, buf); err != nil {
		return nil, fmt.Errorf("read challenge: %w", err)
	}
	return buf, nil
}

// Verify checks sig over data against pub.
func (c *Core) Verify(pub ssh.PublicKey, data []byte, sig *ssh.Signature) error {
	if err := pub.Verify(data, sig); err != nil {
		return fmt.Errorf("%w: %v", ErrKeyMismatch, err)
	}
	return nil
}

// SelfTest signs a random challenge with signer and verifies the signature
// against expected, or against the signer's own public key when expected is
// nil.
func (c *Core) SelfTest(signer ssh.Signer, expected ssh.PublicKey) error {
	challenge, err := c.Challenge()
	if err != nil {
		return err
	}
	sig, err := signer.Sign(c.rand, challenge)
	if err != nil {
		return fmt.Errorf("sign challenge: %w", err)
	}
	if expected == nil {
		expected = signer.PublicKey()
	}
	return c.Verify(expected, challenge, sig)
}
