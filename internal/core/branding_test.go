// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"strings"
	"testing"
)

func TestEnforceBrandingIsIdempotent(t *testing.T) {
	s := newTestSetup(t, "branding:\n  applicationName: Acme Remote\n  icon: /usr/share/acme.png\n")
	c := s.start(t)
	if c.ApplicationName() != "Acme Remote" {
		t.Fatalf("unexpected application name %q", c.ApplicationName())
	}

	surface := &testSurface{title: "Keymaster Remote - Status"}
	c.EnforceBranding(surface)
	first := *surface
	c.EnforceBranding(surface)

	if surface.title != "Acme Remote - Status" || surface.icon != "/usr/share/acme.png" {
		t.Fatalf("branding not applied: %+v", surface)
	}
	if surface.title != first.title || surface.icon != first.icon || surface.setCalls != 1 {
		t.Fatalf("second application changed the surface: %+v vs %+v", surface, first)
	}
}

func TestBrandingWithDefaults(t *testing.T) {
	c := newTestSetup(t, "").start(t)

	untitled := &testSurface{}
	c.EnforceBranding(untitled)
	if untitled.title != DefaultApplicationName || untitled.icon != "" {
		t.Fatalf("unexpected surface %+v", untitled)
	}

	titled := &testSurface{title: "Keymaster Remote - Keys"}
	c.EnforceBranding(titled)
	if titled.setCalls != 0 {
		t.Fatalf("default branding must not touch the title")
	}
}

func TestBrandingNameContainingProductName(t *testing.T) {
	surface := &testSurface{title: "Keymaster Remote"}
	brand(surface, "Keymaster Remote Pro", "")
	brand(surface, "Keymaster Remote Pro", "")
	if surface.title != "Keymaster Remote Pro" || surface.setCalls != 1 {
		t.Fatalf("unexpected surface %+v", surface)
	}
}

func TestBrandingNameInsideProductName(t *testing.T) {
	for _, name := range []string{"Remote", "Keymaster", "Status"} {
		surface := &testSurface{title: "Keymaster Remote - Status"}
		brand(surface, name, "")
		want := strings.ReplaceAll("Keymaster Remote - Status", DefaultApplicationName, name)
		if surface.title != want {
			t.Fatalf("branding %q not applied: got %q, want %q", name, surface.title, want)
		}
		brand(surface, name, "")
		if surface.title != want || surface.setCalls != 1 {
			t.Fatalf("branding %q not idempotent: %+v", name, surface)
		}
	}
}
