// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for Keymaster Remote.
//
// Usage:
//
//	go run . [flags]
//	./kmremote [flags]
//
// See --help for options.
package main

import (
	"log"
	"os"

	"github.com/toeirei/keymaster-remote/ui/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Printf("kmremote: %v", err)
		os.Exit(1)
	}
}
