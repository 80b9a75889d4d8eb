// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.
//
// Package cli implements the kmremote command line using Cobra. Commands
// build the core registry in PersistentPreRunE and delegate to its
// subsystems; the registry is closed when Execute returns.
package cli
