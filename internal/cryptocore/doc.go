// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package cryptocore is the crypto subsystem: ed25519 authentication key
// pairs in OpenSSH format, challenge signing for key validation, and
// passphrase sealing of exported private keys with age.
package cryptocore
