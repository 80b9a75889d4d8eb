// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package core is the subsystem registry of Keymaster Remote. New builds the
// logger, filesystem, configuration, crypto core, credentials, plugin
// manager, platform, user-groups backend and network object directory in
// that order and owns them until Close tears them down in reverse.
//
// Components receive the *Core (or a single subsystem) through their
// constructors. Instance exists for host code that needs the live registry
// without an explicit handle.
package core
