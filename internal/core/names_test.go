// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestStripDomain(t *testing.T) {
	cases := map[string]string{
		`DOMAIN\alice`:   "alice",
		"alice@domain":   "alice",
		"alice":          "alice",
		"":               "",
		`DOMAIN\`:        "",
		`\alice`:         "alice",
		"@domain":        "",
		"alice@":         "alice",
		`A\B\alice`:      `B\alice`,
		"alice@x@y":      "alice",
		`DOMAIN\alice@x`: "alice@x",
	}
	for in, want := range cases {
		if got := StripDomain(in); got != want {
			t.Errorf("StripDomain(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStripDomainProperties(t *testing.T) {
	local := rapid.StringMatching(`[a-z][a-z0-9._-]{0,15}`)
	domain := rapid.StringMatching(`[A-Z][A-Z0-9.-]{0,15}`)
	rapid.Check(t, func(r *rapid.T) {
		user := local.Draw(r, "user")
		dom := domain.Draw(r, "domain")
		if got := StripDomain(dom + `\` + user); got != user {
			r.Fatalf("backslash form: got %q want %q", got, user)
		}
		if got := StripDomain(user + "@" + dom); got != user {
			r.Fatalf("at form: got %q want %q", got, user)
		}
		if got := StripDomain(user); got != user {
			r.Fatalf("bare form changed: %q", got)
		}
		// Stripping twice is the same as stripping a domain-free name.
		once := StripDomain(dom + `\` + user)
		if StripDomain(once) != once {
			r.Fatalf("not idempotent on %q", once)
		}
	})
}

func TestIsAuthenticationKeyNameValid(t *testing.T) {
	valid := []string{"a", "admin", "supervisor_key-1", strings.Repeat("k", MaxAuthenticationKeyNameLength)}
	invalid := []string{"", "..", "../etc", "a/b", `a\b`, "a.b", "with space", "ümlaut", "x\x00", strings.Repeat("k", MaxAuthenticationKeyNameLength+1)}
	for _, n := range valid {
		if !IsAuthenticationKeyNameValid(n) {
			t.Errorf("%q should be valid", n)
		}
	}
	for _, n := range invalid {
		if IsAuthenticationKeyNameValid(n) {
			t.Errorf("%q should be invalid", n)
		}
	}
}

func TestKeyNameValidityProperty(t *testing.T) {
	rapid.Check(t, func(r *rapid.T) {
		name := rapid.String().Draw(r, "name")
		if !IsAuthenticationKeyNameValid(name) {
			return
		}
		if strings.ContainsAny(name, `/\.:`) || strings.Contains(name, "..") || len(name) > MaxAuthenticationKeyNameLength {
			r.Fatalf("accepted unsafe name %q", name)
		}
	})
}
