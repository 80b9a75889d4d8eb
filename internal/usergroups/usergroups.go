// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package usergroups selects the user/group backend and caches its answers.
package usergroups

import (
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/toeirei/keymaster-remote/internal/logging"
	"github.com/toeirei/keymaster-remote/internal/platform"
	"github.com/toeirei/keymaster-remote/internal/plugin"
)

// DefaultBackendName names the backend built on the platform user functions.
const DefaultBackendName = "default"

const allGroupsKey = "\x00groups"

// Backend is implemented by user-group backend plugins.
type Backend interface {
	plugin.Plugin
	UserGroups() ([]string, error)
	GroupsOfUser(username string) ([]string, error)
}

// Default is the backend querying the local platform.
type Default struct {
	plugin.Info
	users platform.UserFunctions
}

// NewDefault returns the default backend on top of users.
func NewDefault(users platform.UserFunctions) *Default {
	return &Default{
		Info: plugin.Info{
			PluginName:        DefaultBackendName,
			PluginVersion:     "1.0",
			PluginDescription: "User groups of the local system",
		},
		users: users,
	}
}

func (d *Default) UserGroups() ([]string, error) { return d.users.UserGroups() }

func (d *Default) GroupsOfUser(username string) ([]string, error) {
	return d.users.GroupsOfUser(username)
}

// Manager is the user-groups backend manager subsystem.
type Manager struct {
	backend Backend
	cache   *gocache.Cache
}

// NewManager selects the backend named name among the registered plugins,
// falling back to fallback when it is missing. A ttl of zero disables caching.
func NewManager(plugins *plugin.Manager, name string, fallback Backend, ttl time.Duration) *Manager {
	backend := fallback
	if name != "" && !strings.EqualFold(name, fallback.Name()) {
		found := false
		for _, b := range plugin.Of[Backend](plugins) {
			if strings.EqualFold(b.Name(), name) {
				backend, found = b, true
				break
			}
		}
		if !found {
			logging.Warnf("user groups backend %q not available, using %s", name, fallback.Name())
		}
	}
	m := &Manager{backend: backend}
	if ttl > 0 {
		m.cache = gocache.New(ttl, 2*ttl)
	}
	return m
}

// Backend returns the selected backend.
func (m *Manager) Backend() Backend { return m.backend }

// UserGroups returns all groups known to the backend.
func (m *Manager) UserGroups() ([]string, error) {
	return m.cached(allGroupsKey, m.backend.UserGroups)
}

// GroupsOfUser returns the groups username belongs to.
func (m *Manager) GroupsOfUser(username string) ([]string, error) {
	return m.cached("user:"+username, func() ([]string, error) {
		return m.backend.GroupsOfUser(username)
	})
}

// Reload drops every cached answer.
func (m *Manager) Reload() {
	if m.cache != nil {
		m.cache.Flush()
	}
}

func (m *Manager) cached(key string, fetch func() ([]string, error)) ([]string, error) {
	if m.cache != nil {
		if v, ok := m.cache.Get(key); ok {
			if groups, ok := v.([]string); ok {
				return append([]string(nil), groups...), nil
			}
		}
	}
	groups, err := fetch()
	if err != nil {
		return nil, fmt.Errorf("user groups via %s: %w", m.backend.Name(), err)
	}
	if m.cache != nil {
		m.cache.SetDefault(key, append([]string(nil), groups...))
	}
	return groups, nil
}
