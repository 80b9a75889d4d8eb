// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// Save writes the effective configuration to the file in use, or to the
// user config path when no file was loaded. It returns the path written.
func (s *Store) Save() (string, error) {
	path := s.File()
	if path == "" {
		p, err := Path(false)
		if err != nil {
			return "", err
		}
		path = p
	}
	if err := WriteFile(path, s.Current()); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.file = path
	s.mu.Unlock()
	return path, nil
}

// WriteFile marshals c as YAML into path with owner-only permissions.
func WriteFile(path string, c Config) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}

	// 0600: the file may carry directory DSNs with credentials.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
