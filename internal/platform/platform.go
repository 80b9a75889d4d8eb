// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package platform abstracts the host operating system behind platform
// plugins and resolves the one matching the running system.
package platform

import (
	"errors"
	"fmt"
	"io"
	"os/user"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/crypto/ssh/agent"

	"github.com/toeirei/keymaster-remote/internal/logging"
	"github.com/toeirei/keymaster-remote/internal/plugin"
)

// GenericName is the fallback platform without OS integration.
const GenericName = "generic"

var (
	// ErrNoPlatform is returned when no platform plugin can be resolved.
	ErrNoPlatform = errors.New("platform: no usable platform plugin")
	// ErrNotSupported is returned by functions the platform lacks.
	ErrNotSupported = errors.New("platform: not supported")
)

// UserFunctions are the user and group queries of a platform.
type UserFunctions interface {
	CurrentUser() (string, error)
	UserGroups() ([]string, error)
	GroupsOfUser(username string) ([]string, error)
	// LogonIntegrationAvailable reports whether the platform can take part
	// in logon authentication.
	LogonIntegrationAvailable() bool
}

// Platform is implemented by platform plugins.
type Platform interface {
	plugin.Plugin
	// OS is the runtime.GOOS value the plugin serves, or "" for any.
	OS() string
	UserFunctions() UserFunctions
	// SSHAgent returns the user's SSH agent, or nil when none is running.
	SSHAgent() agent.Agent
}

// Builtins returns the built-in platform plugins.
func Builtins() []plugin.Plugin {
	return []plugin.Plugin{
		NewHost(runtime.GOOS),
		NewGeneric(),
	}
}

// Manager is the platform plugin manager subsystem.
type Manager struct {
	plugins *plugin.Manager
}

// NewManager returns a manager resolving platforms from plugins.
func NewManager(plugins *plugin.Manager) *Manager {
	return &Manager{plugins: plugins}
}

// Platforms returns every registered platform plugin.
func (m *Manager) Platforms() []Platform {
	return plugin.Of[Platform](m.plugins)
}

// Resolve returns the platform named name, or when name is empty the first
// plugin serving runtime.GOOS, falling back to the generic platform.
func (m *Manager) Resolve(name string) (Platform, error) {
	platforms := m.Platforms()
	if name != "" {
		for _, p := range platforms {
			if strings.EqualFold(p.Name(), name) {
				return p, nil
			}
		}
		return nil, fmt.Errorf("%w: %q not registered", ErrNoPlatform, name)
	}
	var generic Platform
	for _, p := range platforms {
		if p.OS() == runtime.GOOS {
			logging.Debugf("platform %s selected", p.Name())
			return p, nil
		}
		if p.OS() == "" && generic == nil {
			generic = p
		}
	}
	if generic != nil {
		logging.Warnf("no platform plugin for %s, using %s", runtime.GOOS, generic.Name())
		return generic, nil
	}
	return nil, fmt.Errorf("%w: nothing serves %s", ErrNoPlatform, runtime.GOOS)
}

// Host is the platform plugin for the running operating system.
type Host struct {
	plugin.Info
	goos string

	agentOnce   sync.Once
	agent       agent.Agent
	agentCloser io.Closer
}

// NewHost returns the host platform plugin for goos.
func NewHost(goos string) *Host {
	return &Host{
		Info: plugin.Info{
			PluginName:        goos,
			PluginVersion:     "1.0",
			PluginDescription: "Platform integration for " + goos,
		},
		goos: goos,
	}
}

func (h *Host) OS() string                   { return h.goos }
func (h *Host) UserFunctions() UserFunctions { return hostUsers{} }

// SSHAgent connects to the user's agent on first use.
func (h *Host) SSHAgent() agent.Agent {
	h.agentOnce.Do(func() {
		h.agent, h.agentCloser = getSSHAgent()
	})
	return h.agent
}

// Close releases the agent connection.
func (h *Host) Close() error {
	if h.agentCloser != nil {
		return h.agentCloser.Close()
	}
	return nil
}

type hostUsers struct{}

func (hostUsers) CurrentUser() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("current user: %w", err)
	}
	return u.Username, nil
}

func (hostUsers) UserGroups() ([]string, error) {
	return listGroups()
}

func (hostUsers) GroupsOfUser(username string) ([]string, error) {
	u, err := user.Lookup(username)
	if err != nil {
		return nil, fmt.Errorf("lookup user %s: %w", username, err)
	}
	ids, err := u.GroupIds()
	if err != nil {
		return nil, fmt.Errorf("groups of %s: %w", username, err)
	}
	groups := make([]string, 0, len(ids))
	for _, id := range ids {
		g, err := user.LookupGroupId(id)
		if err != nil {
			continue
		}
		groups = append(groups, g.Name)
	}
	return groups, nil
}

func (hostUsers) LogonIntegrationAvailable() bool {
	_, err := user.Current()
	return err == nil
}

// Generic is a platform without OS integration.
type Generic struct {
	plugin.Info
}

// NewGeneric returns the generic platform plugin.
func NewGeneric() *Generic {
	return &Generic{Info: plugin.Info{
		PluginName:        GenericName,
		PluginVersion:     "1.0",
		PluginDescription: "Fallback platform without operating system integration",
	}}
}

func (g *Generic) OS() string                   { return "" }
func (g *Generic) UserFunctions() UserFunctions { return genericUsers{} }
func (g *Generic) SSHAgent() agent.Agent        { return nil }

type genericUsers struct{}

func (genericUsers) CurrentUser() (string, error)          { return "", ErrNotSupported }
func (genericUsers) UserGroups() ([]string, error)         { return nil, ErrNotSupported }
func (genericUsers) GroupsOfUser(string) ([]string, error) { return nil, ErrNotSupported }
func (genericUsers) LogonIntegrationAvailable() bool       { return false }
