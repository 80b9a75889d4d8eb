// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

package config

import (
	"bytes"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"
	"github.com/klauspost/compress/zstd"
)

// Export writes every effective setting as zstd-compressed YAML to w.
func (s *Store) Export(w io.Writer) error {
	data, err := yaml.Marshal(s.Values())
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	if _, err := enc.Write(data); err != nil {
		_ = enc.Close()
		return fmt.Errorf("compress settings: %w", err)
	}
	return enc.Close()
}

// Import merges a snapshot written by Export over the current settings.
// Call Save to persist the result.
func (s *Store) Import(r io.Reader) error {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("create zstd reader: %w", err)
	}
	defer dec.Close()

	data, err := io.ReadAll(dec)
	if err != nil {
		return fmt.Errorf("decompress settings: %w", err)
	}

	var settings map[string]any
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return fmt.Errorf("parse settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.v.MergeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("merge settings: %w", err)
	}
	return s.reloadLocked()
}
