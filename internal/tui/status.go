// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package tui renders the interactive status view.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/toeirei/keymaster-remote/internal/config"
	"github.com/toeirei/keymaster-remote/internal/core"
	"github.com/toeirei/keymaster-remote/internal/i18n"
)

// Status is the snapshot shown by the view.
type Status struct {
	Platform   string
	Plugins    []string
	Auth       string
	KeyName    string
	ConfigFile string
}

// Source feeds the status view.
type Source interface {
	Status() Status
	Reauthenticate() (bool, error)
}

type keyMap struct {
	Reauth key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding  { return []key.Binding{k.Reauth, k.Quit} }
func (k keyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

func defaultKeys() keyMap {
	return keyMap{
		Reauth: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", i18n.T("status.help.reauth"))),
		Quit:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", i18n.T("status.help.quit"))),
	}
}

type authResultMsg struct {
	ok  bool
	err error
}

// Model is the status view. It implements core.Surface so the registry can
// brand its title and icon.
type Model struct {
	source Source
	status Status
	title  string
	icon   string
	keys   keyMap
	help   help.Model
	width  int
	err    error
	notice string

	// pending is set while a reauthentication runs.
	pending bool
}

var _ core.Surface = (*Model)(nil)

// NewModel returns a status view reading from source.
func NewModel(source Source) *Model {
	return &Model{
		source: source,
		status: source.Status(),
		title:  i18n.T("status.title"),
		keys:   defaultKeys(),
		help:   help.New(),
		width:  80,
	}
}

func (m *Model) Title() string         { return m.title }
func (m *Model) SetTitle(title string) { m.title = title }
func (m *Model) SetIcon(icon string)   { m.icon = icon }

// Icon returns the icon set by branding.
func (m *Model) Icon() string { return m.icon }

func (m *Model) Init() tea.Cmd {
	return tea.SetWindowTitle(m.title)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Reauth):
			if m.pending {
				return m, nil
			}
			m.pending = true
			src := m.source
			return m, func() tea.Msg {
				ok, err := src.Reauthenticate()
				return authResultMsg{ok: ok, err: err}
			}
		}
	case configChangedMsg:
		m.status = m.source.Status()
	case authResultMsg:
		m.pending = false
		m.status = m.source.Status()
		m.err = msg.err
		m.notice = ""
		if msg.err == nil {
			m.notice = m.status.Auth
		}
	}
	return m, nil
}

func (m *Model) View() string {
	none := i18n.T("status.none")
	orNone := func(s string) string {
		if s == "" {
			return none
		}
		return s
	}
	plugins := none
	if len(m.status.Plugins) > 0 {
		plugins = strings.Join(m.status.Plugins, ", ")
	}
	rows := []string{
		labelStyle.Render(i18n.T("status.platform")) + m.status.Platform,
		labelStyle.Render(i18n.T("status.plugins")) + plugins,
		labelStyle.Render(i18n.T("status.auth")) + m.status.Auth,
		labelStyle.Render(i18n.T("status.key")) + orNone(m.status.KeyName),
		labelStyle.Render(i18n.T("status.config")) + orNone(m.status.ConfigFile),
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")
	b.WriteString(paneStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...)))
	b.WriteString("\n")
	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("%s: %v", i18n.T("error.prefix"), m.err)))
		b.WriteString("\n")
	case m.notice != "":
		b.WriteString(successStyle.Render(m.notice))
		b.WriteString("\n")
	}
	footer := AlignFooter(m.help.View(m.keys), m.icon, m.width-4)
	b.WriteString(footerStyle.Render(footer))
	return docStyle.Render(b.String())
}

// CoreSource reads the status from a live registry.
type CoreSource struct {
	Core    *core.Core
	Methods core.MethodSet
}

func (s CoreSource) Status() Status {
	c := s.Core
	st := Status{
		Platform:   c.Platform().Name(),
		Auth:       c.State().String(),
		KeyName:    c.AuthenticationKeyName(),
		ConfigFile: c.Config().File(),
	}
	for _, p := range c.PluginManager().Plugins() {
		st.Plugins = append(st.Plugins, p.Name())
	}
	return st
}

// Reauthenticate retries key file authentication. The view owns the
// terminal, so logon is never offered here.
func (s CoreSource) Reauthenticate() (bool, error) {
	methods := core.Methods()
	if s.Methods.Has(core.KeyFileAuthentication) {
		methods = core.Methods(core.KeyFileAuthentication)
	}
	return s.Core.InitAuthentication(methods)
}

// configChangedMsg is sent when the config file changes on disk.
type configChangedMsg struct{}

// Run shows the branded status view until the user quits. Config file
// changes flush the user group cache and refresh the view.
func Run(c *core.Core, methods core.MethodSet) error {
	m := NewModel(CoreSource{Core: c, Methods: methods})
	c.EnforceBranding(m)
	p := tea.NewProgram(m, tea.WithAltScreen())
	c.Config().Watch(func(config.Config) {
		c.UserGroupsBackendManager().Reload()
		p.Send(configChangedMsg{})
	})
	_, err := p.Run()
	return err
}
