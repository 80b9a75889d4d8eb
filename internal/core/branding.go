// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import "strings"

// DefaultApplicationName is the product name used without branding.
const DefaultApplicationName = "Keymaster Remote"

// Surface is a titled, iconed user interface element.
type Surface interface {
	Title() string
	SetTitle(title string)
	SetIcon(icon string)
}

// ApplicationName is the display name, branding.applicationName when set.
func (c *Core) ApplicationName() string { return c.appName }

// EnforceBranding replaces the product name in the title of s with the
// application name and applies the configured icon. Applying it again
// changes nothing.
func (c *Core) EnforceBranding(s Surface) {
	brand(s, c.appName, c.config.Current().Branding.Icon)
}

func brand(s Surface, appName, icon string) {
	title := s.Title()
	switch {
	case title == "":
		title = appName
	case appName != DefaultApplicationName && strings.Contains(title, DefaultApplicationName):
		// A name extending the product name is only applied once.
		if !strings.Contains(appName, DefaultApplicationName) || !strings.Contains(title, appName) {
			title = strings.ReplaceAll(title, DefaultApplicationName, appName)
		}
	}
	if title != s.Title() {
		s.SetTitle(title)
	}
	if icon != "" {
		s.SetIcon(icon)
	}
}
