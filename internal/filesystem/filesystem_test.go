// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
)

type staticDirs struct{ priv, pub string }

func (s staticDirs) PrivateKeyBaseDir() string { return s.priv }
func (s staticDirs) PublicKeyBaseDir() string  { return s.pub }

func TestExpandPath(t *testing.T) {
	f := New()
	f.hostname = func() (string, error) { return "lab-01", nil }

	if got := f.ExpandPath(""); got != "" {
		t.Fatalf("empty path should stay empty, got %q", got)
	}
	if got, want := f.ExpandPath("%GLOBALAPPDATA%/keys/private"), filepath.Join(GlobalAppDataDir(), "keys", "private"); got != want {
		t.Fatalf("ExpandPath = %q, want %q", got, want)
	}
	if got, want := f.ExpandPath("%TMP%/%HOSTNAME%"), filepath.Join(os.TempDir(), "lab-01"); got != want {
		t.Fatalf("ExpandPath = %q, want %q", got, want)
	}
	if got := f.ExpandPath("/var/lib/../lib/kmremote"); got != "/var/lib/kmremote" {
		t.Fatalf("expected cleaned path, got %q", got)
	}
}

func TestKeyPaths(t *testing.T) {
	f := New()
	if _, err := f.PrivateKeyPath("supervisor"); !errors.Is(err, ErrNoKeyDirs) {
		t.Fatalf("expected ErrNoKeyDirs before binding, got %v", err)
	}

	tmp := t.TempDir()
	f.BindKeyDirs(staticDirs{priv: filepath.Join(tmp, "private"), pub: filepath.Join(tmp, "public")})

	priv, err := f.PrivateKeyPath("supervisor")
	if err != nil {
		t.Fatalf("PrivateKeyPath: %v", err)
	}
	if want := filepath.Join(tmp, "private", "supervisor", KeyFileName); priv != want {
		t.Fatalf("PrivateKeyPath = %q, want %q", priv, want)
	}
	pub, _ := f.PublicKeyPath("supervisor")
	if want := filepath.Join(tmp, "public", "supervisor", KeyFileName); pub != want {
		t.Fatalf("PublicKeyPath = %q, want %q", pub, want)
	}
}

func TestKeyNames_SortedDirsOnly(t *testing.T) {
	f := New()
	dir := t.TempDir()
	for _, d := range []string{"zeta", "alpha", ".hidden"} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o700); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "stray"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	names, err := f.KeyNames(dir)
	if err != nil {
		t.Fatalf("KeyNames: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"alpha", "zeta"}) {
		t.Fatalf("unexpected names: %v", names)
	}

	names, err = f.KeyNames(filepath.Join(dir, "missing"))
	if err != nil || names != nil {
		t.Fatalf("missing dir should yield nil, nil; got %v, %v", names, err)
	}
}

func TestWriteKeyFile_Modes(t *testing.T) {
	f := New()
	dir := t.TempDir()
	priv := filepath.Join(dir, "private", "k", KeyFileName)

	if err := f.WriteKeyFile(priv, []byte("secret"), true); err != nil {
		t.Fatalf("WriteKeyFile: %v", err)
	}
	if !f.IsReadable(priv) {
		t.Fatalf("expected written key to be readable")
	}
	if runtime.GOOS != "windows" {
		st, err := os.Stat(priv)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if st.Mode().Perm() != 0o600 {
			t.Fatalf("private key mode = %v, want 0600", st.Mode().Perm())
		}
	}

	if err := f.RemoveKey(priv); err != nil {
		t.Fatalf("RemoveKey: %v", err)
	}
	if f.IsReadable(priv) {
		t.Fatalf("expected key to be gone")
	}
}
