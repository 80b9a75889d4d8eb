// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

// Command kmremote is the Keymaster Remote command line.
package main

import (
	"os"

	"github.com/toeirei/keymaster-remote/ui/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		// cobra already printed the error.
		os.Exit(1)
	}
}
