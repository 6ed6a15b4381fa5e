// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for Tunnelmaster.
//
// Usage:
//
//	go run . [flags]
//	./tunnelmaster [flags]
//
// This launches the Tunnelmaster CLI. See --help for options.
package main

import (
	"os"

	"github.com/toeirei/tunnelmaster/ui/cli"
)

func main() {
	// cobra already printed the error
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
