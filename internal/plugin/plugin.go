// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package plugin is the plugin manager. Plugins are Go values registered at
// startup; feature packages (platform, user groups, directory) look up the
// plugins implementing their interfaces through Of.
package plugin

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/toeirei/keymaster-remote/internal/logging"
)

// namespace seeds the deterministic UIDs of built-in plugins.
var namespace = uuid.MustParse("5b8f0c1e-7a43-4d3e-9a51-6f2d1c0b9e77")

// ErrDuplicate is returned when a plugin UID or name is registered twice.
var ErrDuplicate = errors.New("plugin: already registered")

// Plugin is implemented by every plugin.
type Plugin interface {
	UID() uuid.UUID
	Name() string
	Version() string
	Description() string
}

// NameUID derives the stable UID of a built-in plugin from its name.
func NameUID(name string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(strings.ToLower(name)))
}

// Manager is the plugin manager subsystem.
type Manager struct {
	mu       sync.RWMutex
	plugins  []Plugin
	byUID    map[uuid.UUID]Plugin
	byName   map[string]Plugin
	disabled map[string]bool
}

// NewManager returns a manager that skips plugins whose name or UID appears
// in disabled.
func NewManager(disabled []string) *Manager {
	m := &Manager{
		byUID:    make(map[uuid.UUID]Plugin),
		byName:   make(map[string]Plugin),
		disabled: make(map[string]bool, len(disabled)),
	}
	for _, d := range disabled {
		m.disabled[strings.ToLower(strings.TrimSpace(d))] = true
	}
	return m
}

// IsDisabled reports whether p is excluded by configuration.
func (m *Manager) IsDisabled(p Plugin) bool {
	return m.disabled[strings.ToLower(p.Name())] || m.disabled[p.UID().String()]
}

// Register adds p. Disabled plugins are skipped without error.
func (m *Manager) Register(p Plugin) error {
	if m.IsDisabled(p) {
		logging.Infof("plugin %s disabled by configuration", p.Name())
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	name := strings.ToLower(p.Name())
	if _, ok := m.byUID[p.UID()]; ok {
		return fmt.Errorf("%w: uid %s (%s)", ErrDuplicate, p.UID(), p.Name())
	}
	if _, ok := m.byName[name]; ok {
		return fmt.Errorf("%w: name %s", ErrDuplicate, p.Name())
	}
	m.plugins = append(m.plugins, p)
	m.byUID[p.UID()] = p
	m.byName[name] = p
	logging.Debugf("plugin %s %s registered (%s)", p.Name(), p.Version(), p.UID())
	return nil
}

// Discover registers every plugin and reports all failures together.
func (m *Manager) Discover(plugins ...Plugin) error {
	var errs []error
	for _, p := range plugins {
		if err := m.Register(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Plugins returns the registered plugins in registration order.
func (m *Manager) Plugins() []Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Plugin(nil), m.plugins...)
}

// Find looks a plugin up by UID.
func (m *Manager) Find(uid uuid.UUID) (Plugin, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.byUID[uid]
	return p, ok
}

// ByName looks a plugin up by case-insensitive name.
func (m *Manager) ByName(name string) (Plugin, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.byName[strings.ToLower(name)]
	return p, ok
}

// Of returns the registered plugins implementing T, in registration order.
func Of[T any](m *Manager) []T {
	var out []T
	for _, p := range m.Plugins() {
		if t, ok := p.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

// Close closes plugins implementing io.Closer in reverse registration order.
func (m *Manager) Close() error {
	plugins := m.Plugins()
	var errs []error
	for i := len(plugins) - 1; i >= 0; i-- {
		if c, ok := plugins[i].(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close plugin %s: %w", plugins[i].Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// Info is an embeddable Plugin implementation for built-in plugins.
type Info struct {
	PluginName        string
	PluginVersion     string
	PluginDescription string
}

func (i Info) UID() uuid.UUID      { return NameUID(i.PluginName) }
func (i Info) Name() string        { return i.PluginName }
func (i Info) Version() string     { return i.PluginVersion }
func (i Info) Description() string { return i.PluginDescription }
