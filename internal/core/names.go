// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import "strings"

// MaxAuthenticationKeyNameLength bounds authentication key names.
const MaxAuthenticationKeyNameLength = 64

// StripDomain returns the local part of a domain qualified identity.
// The first backslash wins (DOMAIN\user); without one the first '@' splits
// user@domain. An empty local part stays empty: `DOMAIN\` and `@domain`
// yield "".
func StripDomain(identity string) string {
	if _, user, ok := strings.Cut(identity, `\`); ok {
		return user
	}
	if user, _, ok := strings.Cut(identity, "@"); ok {
		return user
	}
	return identity
}

// IsAuthenticationKeyNameValid reports whether name may be used as a key
// directory name: 1 to 64 characters from [A-Za-z0-9_-].
func IsAuthenticationKeyNameValid(name string) bool {
	if name == "" || len(name) > MaxAuthenticationKeyNameLength {
		return false
	}
	for i := 0; i < len(name); i++ {
		switch ch := name[i]; {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		case ch == '_' || ch == '-':
		default:
			return false
		}
	}
	return true
}
