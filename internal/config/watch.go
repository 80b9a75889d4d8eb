// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

package config

import (
	"github.com/fsnotify/fsnotify"

	"github.com/toeirei/keymaster-remote/internal/logging"
)

// Watch calls fn with the new configuration whenever the config file changes
// on disk. It reports false when no file backs the store.
func (s *Store) Watch(fn func(Config)) bool {
	if s.File() == "" {
		return false
	}
	s.v.OnConfigChange(func(e fsnotify.Event) {
		logging.Debugf("config: %s changed (%s)", e.Name, e.Op)
		if err := s.mergeComponent(); err != nil {
			logging.Warnf("config: %v", err)
		}
		if err := s.reload(); err != nil {
			logging.Warnf("config: reload after change failed: %v", err)
			return
		}
		fn(s.Current())
	})
	s.v.WatchConfig()
	return true
}
