// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/toeirei/keymaster-remote/internal/cryptocore"
	"github.com/toeirei/keymaster-remote/internal/platform"
	"github.com/toeirei/keymaster-remote/internal/plugin"
	"github.com/toeirei/keymaster-remote/internal/security"
)

const testPlatformName = "testplatform"

type testUsers struct{ logon bool }

func (u testUsers) CurrentUser() (string, error)               { return "tester", nil }
func (u testUsers) UserGroups() ([]string, error)              { return []string{"staff"}, nil }
func (u testUsers) GroupsOfUser(name string) ([]string, error) { return []string{name}, nil }
func (u testUsers) LogonIntegrationAvailable() bool            { return u.logon }

type testPlatform struct {
	plugin.Info
	users testUsers
	agent agent.Agent
}

func newTestPlatform(logon bool) *testPlatform {
	return &testPlatform{
		Info:  plugin.Info{PluginName: testPlatformName, PluginVersion: "0.1"},
		users: testUsers{logon: logon},
	}
}

func (p *testPlatform) OS() string                            { return "" }
func (p *testPlatform) UserFunctions() platform.UserFunctions { return p.users }
func (p *testPlatform) SSHAgent() agent.Agent                 { return p.agent }

type testEnv map[string]string

func (e testEnv) lookup(key string) (string, bool) {
	v, ok := e[key]
	return v, ok
}

type testSetup struct {
	dir      string
	config   string
	platform *testPlatform
	env      testEnv
	prompter LogonPrompter
}

func newTestSetup(t *testing.T, extraYAML string) *testSetup {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`authentication:
  privateKeyBaseDir: %q
  publicKeyBaseDir: %q
platform:
  plugin: %s
directory:
  type: sqlite
  dsn: ":memory:"
%s`, filepath.Join(dir, "private"), filepath.Join(dir, "public"), testPlatformName, extraYAML)
	path := filepath.Join(dir, "kmremote.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &testSetup{dir: dir, config: path, platform: newTestPlatform(true), env: testEnv{}}
}

func (s *testSetup) options() Options {
	return Options{
		Component:     "test",
		ConfigFile:    s.config,
		Plugins:       []plugin.Plugin{s.platform},
		LogonPrompter: s.prompter,
		Env:           s.env.lookup,
	}
}

func (s *testSetup) start(t *testing.T) *Core {
	t.Helper()
	c, err := New(s.options())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// writeKey stores a generated key pair below the configured key dirs and
// returns the public key line.
func (s *testSetup) writeKey(t *testing.T, name string, passphrase security.Secret) []byte {
	t.Helper()
	kp, err := cryptocore.New().GenerateKeyPair(name, passphrase)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	s.writeFile(t, filepath.Join("private", name, "key"), kp.PrivateKey.Bytes(), 0o600)
	s.writeFile(t, filepath.Join("public", name, "key"), kp.PublicKey, 0o644)
	return kp.PublicKey
}

func (s *testSetup) writeFile(t *testing.T, rel string, data []byte, mode os.FileMode) {
	t.Helper()
	path := filepath.Join(s.dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		t.Fatal(err)
	}
}

func readTestFile(t *testing.T, s *testSetup, rel string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(s.dir, rel))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func rawPrivateKey(pemData []byte, passphrase security.Secret) (any, error) {
	return ssh.ParseRawPrivateKeyWithPassphrase(pemData, passphrase.Bytes())
}

type testSurface struct {
	title    string
	icon     string
	setCalls int
}

func (s *testSurface) Title() string { return s.title }
func (s *testSurface) SetTitle(t string) {
	s.title = t
	s.setCalls++
}

func (s *testSurface) SetIcon(i string) { s.icon = i }

func expectPanic(t *testing.T, want error, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic with %v", want)
		}
		if err, ok := r.(error); !ok || err != want {
			t.Fatalf("expected panic %v, got %v", want, r)
		}
	}()
	fn()
}
