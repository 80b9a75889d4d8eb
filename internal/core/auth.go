// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"github.com/toeirei/keymaster-remote/internal/credentials"
	"github.com/toeirei/keymaster-remote/internal/logging"
	"github.com/toeirei/keymaster-remote/internal/security"
	"github.com/toeirei/keymaster-remote/internal/state"
)

// AuthKeyNameEnv selects a single key for key-file authentication.
const AuthKeyNameEnv = "KMREMOTE_AUTH_KEY_NAME"

// ErrInvalidMethods is returned for method sets with bits outside the
// defined methods.
var ErrInvalidMethods = errors.New("core: invalid authentication methods")

// Method is an authentication method.
type Method int

const (
	LogonAuthentication Method = iota
	KeyFileAuthentication
	methodCount
)

var methodNames = [methodCount]string{
	LogonAuthentication:   "logon",
	KeyFileAuthentication: "keyfile",
}

func (m Method) String() string {
	if m < 0 || m >= methodCount {
		return fmt.Sprintf("Method(%d)", int(m))
	}
	return methodNames[m]
}

// ParseMethod parses a method name as printed by String.
func ParseMethod(s string) (Method, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m := Method(0); m < methodCount; m++ {
		if methodNames[m] == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown method %q", ErrInvalidMethods, s)
}

var methodPriority = [methodCount]Method{KeyFileAuthentication, LogonAuthentication}

// MethodPriority returns the order in which requested methods are tried: key
// files before logon.
func MethodPriority() []Method {
	return append([]Method(nil), methodPriority[:]...)
}

// MethodSet is a set of methods, one bit per Method.
type MethodSet uint8

// Methods returns the set holding ms.
func Methods(ms ...Method) MethodSet {
	var s MethodSet
	for _, m := range ms {
		s |= 1 << uint(m)
	}
	return s
}

// Has reports whether m is in the set.
func (s MethodSet) Has(m Method) bool {
	return m >= 0 && m < methodCount && s&(1<<uint(m)) != 0
}

// Validate rejects bits that name no method.
func (s MethodSet) Validate() error {
	if extra := s >> uint(methodCount); extra != 0 {
		return fmt.Errorf("%w: %#x", ErrInvalidMethods, uint8(s))
	}
	return nil
}

func (s MethodSet) String() string {
	if s == 0 {
		return "none"
	}
	names := make([]string, 0, bits.OnesCount8(uint8(s)))
	for m := Method(0); m < methodCount; m++ {
		if s.Has(m) {
			names = append(names, m.String())
		}
	}
	if s.Validate() != nil {
		names = append(names, fmt.Sprintf("invalid(%#x)", uint8(s>>uint(methodCount))))
	}
	return strings.Join(names, ",")
}

// ParseMethodSet parses a comma separated method list such as
// "keyfile,logon".
func ParseMethodSet(s string) (MethodSet, error) {
	var set MethodSet
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		m, err := ParseMethod(part)
		if err != nil {
			return 0, err
		}
		set |= Methods(m)
	}
	return set, nil
}

// State is the progress of the authentication bootstrap.
type State int

const (
	NotStarted State = iota
	MethodsEvaluated
	LogonReady
	KeyFileReady
	Unavailable
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case MethodsEvaluated:
		return "methods evaluated"
	case LogonReady:
		return "logon ready"
	case KeyFileReady:
		return "key file ready"
	case Unavailable:
		return "unavailable"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// LogonPrompter asks the operator for logon credentials.
type LogonPrompter interface {
	PromptLogon() (username string, password security.Secret, err error)
}

// LogonPrompterFunc adapts a function to LogonPrompter.
type LogonPrompterFunc func() (string, security.Secret, error)

func (f LogonPrompterFunc) PromptLogon() (string, security.Secret, error) { return f() }

// InitAuthentication clears the credentials and readies the first method of
// MethodPriority that is requested and satisfiable. It returns true iff a
// method became ready. The error is non-nil only for sets that fail
// Validate. Callers serialize concurrent attempts.
func (c *Core) InitAuthentication(requested MethodSet) (bool, error) {
	if err := requested.Validate(); err != nil {
		return false, err
	}

	c.credentials.Reset()
	c.setAuth(MethodsEvaluated, "")

	for _, m := range methodPriority {
		if !requested.Has(m) {
			continue
		}
		var ready bool
		switch m {
		case KeyFileAuthentication:
			ready = c.initKeyFileAuthentication()
		case LogonAuthentication:
			ready = c.initLogonAuthentication()
		case methodCount:
			panic("core: methodCount is not a method")
		}
		if ready {
			logging.Infof("authentication via %s ready", m)
			return true, nil
		}
		logging.Debugf("authentication via %s not available", m)
	}

	c.setAuth(Unavailable, "")
	logging.Warnf("no requested authentication method (%s) is available", requested)
	return false, nil
}

// initKeyFileAuthentication loads the key named by KMREMOTE_AUTH_KEY_NAME, or
// else the first loadable key below the private key base directory.
func (c *Core) initKeyFileAuthentication() bool {
	if name, ok := c.env(AuthKeyNameEnv); ok && name != "" {
		if !IsAuthenticationKeyNameValid(name) {
			logging.Warnf("invalid authentication key name %q", name)
			return false
		}
		return c.loadAuthenticationKey(name)
	}

	base, err := c.fs.PrivateKeyBaseDir()
	if err != nil {
		logging.Warnf("key file authentication: %v", err)
		return false
	}
	names, err := c.fs.KeyNames(base)
	if err != nil {
		logging.Warnf("key file authentication: %v", err)
		return false
	}
	for _, name := range names {
		if !IsAuthenticationKeyNameValid(name) {
			logging.Debugf("skipping key directory %q", name)
			continue
		}
		if c.loadAuthenticationKey(name) {
			return true
		}
	}
	return false
}

func (c *Core) loadAuthenticationKey(name string) bool {
	privPath, err := c.fs.PrivateKeyPath(name)
	if err != nil {
		logging.Warnf("key %s: %v", name, err)
		return false
	}
	if !c.fs.IsReadable(privPath) {
		logging.Debugf("key %s: %s not readable", name, privPath)
		return false
	}
	pubPath, _ := c.fs.PublicKeyPath(name)
	passphrase := state.Passphrases.Get(name)
	defer passphrase.Zero()

	err = c.credentials.LoadPrivateKey(privPath, credentials.LoadOptions{
		PublicKeyPath: pubPath,
		Passphrase:    passphrase,
		Agent:         c.platform.SSHAgent(),
	})
	if err != nil {
		logging.Warnf("key %s: %v", name, err)
		return false
	}
	c.setAuth(KeyFileReady, name)
	return true
}

func (c *Core) initLogonAuthentication() bool {
	if !c.platform.UserFunctions().LogonIntegrationAvailable() {
		logging.Debugf("platform %s has no logon integration", c.platform.Name())
		return false
	}
	if c.prompter == nil {
		logging.Debugf("no logon prompter configured")
		return false
	}
	username, password, err := c.prompter.PromptLogon()
	defer password.Zero()
	if err != nil {
		logging.Warnf("logon prompt: %v", err)
		return false
	}
	username = StripDomain(strings.TrimSpace(username))
	if username == "" || password.IsEmpty() {
		return false
	}
	c.credentials.SetLogon(username, password)
	c.setAuth(LogonReady, "")
	return true
}

func (c *Core) setAuth(s State, keyName string) {
	c.authMu.Lock()
	c.authState = s
	c.keyName = keyName
	c.authMu.Unlock()
}

// State returns the authentication bootstrap state.
func (c *Core) State() State {
	c.authMu.RLock()
	defer c.authMu.RUnlock()
	return c.authState
}

// AuthenticationKeyName is the key used by key-file authentication, or "".
func (c *Core) AuthenticationKeyName() string {
	c.authMu.RLock()
	defer c.authMu.RUnlock()
	return c.keyName
}
