// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package security holds the Secret wrapper used for logon passwords and key
// passphrases. Secrets redact themselves in every formatting and encoding
// path and can be zeroed once the owner is done with them.
package security
