// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/toeirei/keymaster-remote/internal/security"
	"github.com/toeirei/keymaster-remote/internal/state"
)

// writeTestConfig writes a config using the generic platform, so no host
// logon integration is involved, and a file backed directory.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`language: en
authentication:
  privateKeyBaseDir: %q
  publicKeyBaseDir: %q
  methods: keyfile
platform:
  plugin: generic
directory:
  type: sqlite
  dsn: %q
`, filepath.Join(dir, "private"), filepath.Join(dir, "public"), filepath.Join(dir, "directory.db"))
	path := filepath.Join(dir, "kmremote.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// runCLI executes a fresh command tree and closes the registry afterwards.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("KMREMOTE_AUTH_KEY_NAME", "")
	os.Unsetenv("KMREMOTE_AUTH_KEY_NAME")

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	closeCore()
	return out.String(), err
}

func fakePasswords(t *testing.T, answers ...string) {
	t.Helper()
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })
	readPassword = func(string) (security.Secret, error) {
		if len(answers) == 0 {
			return nil, errors.New("no more answers")
		}
		a := answers[0]
		answers = answers[1:]
		return security.FromString(a), nil
	}
}

func TestStatus_NoKeys(t *testing.T) {
	cfg := writeTestConfig(t)
	out, err := runCLI(t, "--config", cfg)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"Keymaster Remote", "generic", "unavailable", cfg} {
		if !strings.Contains(out, want) {
			t.Fatalf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestDebugFlag(t *testing.T) {
	cfg := writeTestConfig(t)
	if _, err := runCLI(t, "--config", cfg, "--debug", "plugins", "list"); err != nil {
		t.Fatalf("plugins list --debug: %v", err)
	}
	if !debugLogging {
		t.Fatalf("--debug should enable debug logging")
	}
	if _, err := runCLI(t, "--config", cfg, "plugins", "list"); err != nil {
		t.Fatalf("plugins list: %v", err)
	}
	if debugLogging {
		t.Fatalf("a fresh command tree should reset the debug flag")
	}
}

func TestAuthKeys_CreateListCheck(t *testing.T) {
	cfg := writeTestConfig(t)
	if _, err := runCLI(t, "--config", cfg, "authkeys", "create", "supervisor"); err != nil {
		t.Fatalf("create: %v", err)
	}
	out, err := runCLI(t, "--config", cfg, "authkeys", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "supervisor") || !strings.Contains(out, "SHA256:") {
		t.Fatalf("list output missing key:\n%s", out)
	}

	out, err = runCLI(t, "--config", cfg, "auth", "check")
	if err != nil {
		t.Fatalf("auth check: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Using key supervisor") {
		t.Fatalf("unexpected auth output:\n%s", out)
	}

	if _, err := runCLI(t, "--config", cfg, "authkeys", "create", "supervisor"); err == nil {
		t.Fatalf("expected duplicate create to fail")
	}
}

func TestAuthCheck_Unavailable(t *testing.T) {
	cfg := writeTestConfig(t)
	out, err := runCLI(t, "--config", cfg, "auth", "check", "--methods", "keyfile,logon")
	if !errors.Is(err, ErrAuthenticationUnavailable) {
		t.Fatalf("expected ErrAuthenticationUnavailable, got %v", err)
	}
	if !strings.Contains(out, "Error") {
		t.Fatalf("expected error line, got %q", out)
	}
	if _, err := runCLI(t, "--config", cfg, "auth", "check", "--methods", "bogus"); err == nil {
		t.Fatalf("expected invalid method to fail")
	}
}

func TestAuthCheck_EncryptedKeyPassphrase(t *testing.T) {
	cfg := writeTestConfig(t)
	fakePasswords(t, "hunter2", "hunter2", "wrong", "hunter2")
	if _, err := runCLI(t, "--config", cfg, "authkeys", "create", "locked", "--passphrase"); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := runCLI(t, "--config", cfg, "auth", "check"); !errors.Is(err, ErrAuthenticationUnavailable) {
		t.Fatalf("encrypted key without passphrase: expected ErrAuthenticationUnavailable, got %v", err)
	}
	if _, err := runCLI(t, "--config", cfg, "auth", "check", "--passphrase"); !errors.Is(err, ErrAuthenticationUnavailable) {
		t.Fatalf("wrong passphrase: expected ErrAuthenticationUnavailable, got %v", err)
	}
	out, err := runCLI(t, "--config", cfg, "auth", "check", "--passphrase")
	if err != nil {
		t.Fatalf("auth check --passphrase: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Using key locked") {
		t.Fatalf("unexpected auth output:\n%s", out)
	}
	if got := state.Passphrases.Get(state.AnyKey); got != nil {
		t.Fatalf("passphrase must not outlive the command")
	}
}

func TestAuthKeys_ExportImportSealed(t *testing.T) {
	cfg := writeTestConfig(t)
	fakePasswords(t, "pw", "pw", "pw")
	if _, err := runCLI(t, "--config", cfg, "authkeys", "create", "src"); err != nil {
		t.Fatalf("create: %v", err)
	}
	exported := filepath.Join(t.TempDir(), "src.key")
	if _, err := runCLI(t, "--config", cfg, "authkeys", "export", "src", "--kind", "private", "--passphrase", "-o", exported); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(exported)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(data, []byte("PRIVATE KEY")) {
		t.Fatalf("sealed export contains the plain key")
	}

	if _, err := runCLI(t, "--config", cfg, "authkeys", "import", "dst", "--kind", "private", "-i", exported); err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, err := runCLI(t, "--config", cfg, "authkeys", "extract", "dst"); err != nil {
		t.Fatalf("extract: %v", err)
	}

	out, err := runCLI(t, "--config", cfg, "authkeys", "list")
	if err != nil {
		t.Fatal(err)
	}
	fp := regexp.MustCompile(`SHA256:\S+`).FindAllString(out, -1)
	if len(fp) != 2 || fp[0] != fp[1] {
		t.Fatalf("expected matching fingerprints, got %v\n%s", fp, out)
	}
}

func TestAuthKeys_PassphraseMismatch(t *testing.T) {
	cfg := writeTestConfig(t)
	fakePasswords(t, "one", "two")
	if _, err := runCLI(t, "--config", cfg, "authkeys", "create", "k", "--passphrase"); err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func TestAuthKeys_ExportClipboard(t *testing.T) {
	cfg := writeTestConfig(t)
	var copied string
	orig := writeClipboard
	t.Cleanup(func() { writeClipboard = orig })
	writeClipboard = func(s string) error {
		copied = s
		return nil
	}
	if _, err := runCLI(t, "--config", cfg, "authkeys", "create", "clip"); err != nil {
		t.Fatal(err)
	}
	if _, err := runCLI(t, "--config", cfg, "authkeys", "export", "clip", "--clipboard"); err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasPrefix(copied, "ssh-ed25519 ") {
		t.Fatalf("unexpected clipboard content %q", copied)
	}
}

func TestAuthKeys_DeleteBoth(t *testing.T) {
	cfg := writeTestConfig(t)
	if _, err := runCLI(t, "--config", cfg, "authkeys", "create", "gone"); err != nil {
		t.Fatal(err)
	}
	if _, err := runCLI(t, "--config", cfg, "authkeys", "delete", "gone"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	out, err := runCLI(t, "--config", cfg, "authkeys", "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No authentication keys found") {
		t.Fatalf("unexpected list output %q", out)
	}
}

func TestConfig_SetGetExportImport(t *testing.T) {
	cfg := writeTestConfig(t)
	if _, err := runCLI(t, "--config", cfg, "config", "set", "branding.applicationName", "Acme Remote"); err != nil {
		t.Fatalf("set: %v", err)
	}
	out, err := runCLI(t, "--config", cfg, "config", "get", "branding.applicationName")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if strings.TrimSpace(out) != "Acme Remote" {
		t.Fatalf("unexpected value %q", out)
	}

	snapshot := filepath.Join(t.TempDir(), "settings.zst")
	if _, err := runCLI(t, "--config", cfg, "config", "export", snapshot); err != nil {
		t.Fatalf("export: %v", err)
	}

	other := writeTestConfig(t)
	if _, err := runCLI(t, "--config", other, "config", "import", snapshot); err != nil {
		t.Fatalf("import: %v", err)
	}
	out, err = runCLI(t, "--config", other)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Acme Remote") {
		t.Fatalf("imported branding not applied:\n%s", out)
	}

	if _, err := runCLI(t, "--config", cfg, "config", "get", "no.such.key"); err == nil {
		t.Fatalf("expected unset key error")
	}
}

func TestDirectory_AddListRemove(t *testing.T) {
	cfg := writeTestConfig(t)
	out, err := runCLI(t, "--config", cfg, "directory", "add", "location", "Room 101")
	if err != nil {
		t.Fatalf("add location: %v", err)
	}
	uid := regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f-]{27}`).FindString(out)
	if uid == "" {
		t.Fatalf("no uid in %q", out)
	}
	if _, err := runCLI(t, "--config", cfg, "directory", "add", "host", "pc1", "--address", "10.0.0.1", "--parent", uid); err != nil {
		t.Fatalf("add host: %v", err)
	}
	if _, err := runCLI(t, "--config", cfg, "directory", "add", "host", "pc2", "--parent", uid); err == nil {
		t.Fatalf("expected host without address to fail")
	}

	out, err = runCLI(t, "--config", cfg, "directory", "list", "--parent", uid)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "pc1") || !strings.Contains(out, "10.0.0.1") {
		t.Fatalf("list output missing host:\n%s", out)
	}

	if _, err := runCLI(t, "--config", cfg, "directory", "remove", uid); err != nil {
		t.Fatalf("remove: %v", err)
	}
	out, err = runCLI(t, "--config", cfg, "directory", "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "The directory is empty") {
		t.Fatalf("expected empty directory, got %q", out)
	}
}

func TestPlugins_List(t *testing.T) {
	cfg := writeTestConfig(t)
	out, err := runCLI(t, "--config", cfg, "plugins", "list")
	if err != nil {
		t.Fatalf("plugins list: %v", err)
	}
	for _, want := range []string{"generic", "builtin"} {
		if !strings.Contains(out, want) {
			t.Fatalf("plugins output missing %q:\n%s", want, out)
		}
	}
}

func TestTerminalPrompter(t *testing.T) {
	origIn := stdin
	t.Cleanup(func() { stdin = origIn })
	stdin = strings.NewReader("  CORP\\bob \n")
	fakePasswords(t, "secret")

	user, pw, err := terminalPrompter{}.PromptLogon()
	if err != nil {
		t.Fatalf("PromptLogon: %v", err)
	}
	if user != `CORP\bob` || string(pw) != "secret" {
		t.Fatalf("unexpected credentials %q %q", user, pw.Bytes())
	}
}
