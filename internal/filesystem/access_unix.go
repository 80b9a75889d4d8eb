//go:build unix

// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

package filesystem

import "golang.org/x/sys/unix"

func isReadable(path string) bool {
	return unix.Access(path, unix.R_OK) == nil
}
