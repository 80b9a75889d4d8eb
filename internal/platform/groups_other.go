//go:build !unix

// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

package platform

func listGroups() ([]string, error) {
	return nil, ErrNotSupported
}
