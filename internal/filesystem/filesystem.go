// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package filesystem resolves the application's well-known paths and key file
// locations. Path settings may carry placeholders such as %GLOBALAPPDATA% that
// are expanded per platform.
package filesystem

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// KeyFileName is the file name of a key inside its per-name directory.
const KeyFileName = "key"

// ErrNoKeyDirs is returned when key paths are requested before the key
// directories have been bound.
var ErrNoKeyDirs = errors.New("filesystem: key directories not configured")

// KeyDirs supplies the configured (unexpanded) key base directories.
type KeyDirs interface {
	PrivateKeyBaseDir() string
	PublicKeyBaseDir() string
}

// Filesystem is the filesystem subsystem.
type Filesystem struct {
	dirs     KeyDirs
	hostname func() (string, error)
}

// New returns a Filesystem without key directories. The registry binds them
// once the configuration store exists.
func New() *Filesystem {
	return &Filesystem{hostname: os.Hostname}
}

// BindKeyDirs sets the source of the key base directories. It must be called
// before the filesystem is shared between goroutines.
func (f *Filesystem) BindKeyDirs(d KeyDirs) {
	f.dirs = d
}

// GlobalAppDataDir is the machine-wide data directory.
func GlobalAppDataDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("ProgramData"), "KeymasterRemote")
	}
	return "/etc/kmremote"
}

// AppDataDir is the per-user data directory.
func AppDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "kmremote")
	}
	return filepath.Join(dir, "kmremote")
}

// ExpandPath replaces the supported placeholders in p and cleans the result.
func (f *Filesystem) ExpandPath(p string) string {
	if p == "" {
		return ""
	}
	if !strings.Contains(p, "%") {
		return filepath.Clean(p)
	}

	home, _ := os.UserHomeDir()
	host := ""
	if f.hostname != nil {
		host, _ = f.hostname()
	}
	r := strings.NewReplacer(
		"%HOME%", home,
		"%PROFILE%", home,
		"%APPDATA%", AppDataDir(),
		"%GLOBALAPPDATA%", GlobalAppDataDir(),
		"%TMP%", os.TempDir(),
		"%TEMP%", os.TempDir(),
		"%HOSTNAME%", host,
	)
	return filepath.Clean(r.Replace(p))
}

// PrivateKeyBaseDir returns the expanded private key base directory.
func (f *Filesystem) PrivateKeyBaseDir() (string, error) {
	if f.dirs == nil {
		return "", ErrNoKeyDirs
	}
	return f.ExpandPath(f.dirs.PrivateKeyBaseDir()), nil
}

// PublicKeyBaseDir returns the expanded public key base directory.
func (f *Filesystem) PublicKeyBaseDir() (string, error) {
	if f.dirs == nil {
		return "", ErrNoKeyDirs
	}
	return f.ExpandPath(f.dirs.PublicKeyBaseDir()), nil
}

// PrivateKeyPath returns <private key base dir>/<name>/key. The caller
// validates name.
func (f *Filesystem) PrivateKeyPath(name string) (string, error) {
	base, err := f.PrivateKeyBaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, name, KeyFileName), nil
}

// PublicKeyPath returns <public key base dir>/<name>/key.
func (f *Filesystem) PublicKeyPath(name string) (string, error) {
	base, err := f.PublicKeyBaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, name, KeyFileName), nil
}

// KeyNames lists the sub directories of dir in sorted order. A missing dir
// yields no names and no error.
func (f *Filesystem) KeyNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list key directory %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// EnsurePathExists creates dir and its parents with owner-only permissions.
func (f *Filesystem) EnsurePathExists(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("could not create directory %s: %w", dir, err)
	}
	return nil
}

// IsReadable reports whether the current process may read path.
func (f *Filesystem) IsReadable(path string) bool {
	return isReadable(path)
}

// WriteKeyFile writes a key file, creating its directory. Private keys are
// written 0600, public keys 0644.
func (f *Filesystem) WriteKeyFile(path string, data []byte, private bool) error {
	if err := f.EnsurePathExists(filepath.Dir(path)); err != nil {
		return err
	}
	mode := os.FileMode(0o644)
	if private {
		mode = 0o600
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return fmt.Errorf("write key file %s: %w", path, err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, mode); err != nil {
		return fmt.Errorf("chmod key file %s: %w", path, err)
	}
	return nil
}

// RemoveKey removes the directory holding a key file.
func (f *Filesystem) RemoveKey(path string) error {
	if err := os.RemoveAll(filepath.Dir(path)); err != nil {
		return fmt.Errorf("remove key %s: %w", path, err)
	}
	return nil
}
