// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

// inspect_export prints a summary of an export file written by
// `tunnelmaster export`. Compressed (.zst) and plain YAML files are accepted.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/toeirei/tunnelmaster/internal/export"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "inspect_export: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("usage: inspect_export <file>")
	}
	snap, err := export.ReadFile(args[0])
	if err != nil {
		return err
	}

	routes := 0
	for _, t := range snap.Tunnels {
		routes += len(t.Routes)
	}
	fmt.Fprintf(out, "version: %d\n", snap.Version)
	fmt.Fprintf(out, "server: %s\n", snap.Server)
	fmt.Fprintf(out, "exported: %s\n", snap.ExportedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(out, "tunnels: %d, routes: %d\n", len(snap.Tunnels), routes)
	for _, t := range snap.Tunnels {
		fmt.Fprintf(out, "tunnel: %s (%s) %s\n", t.Name, t.ID, t.Status)
		for _, r := range t.Routes {
			fmt.Fprintf(out, "  route: %s %s%s -> %s\n", r.Protocol, r.Hostname, r.Prefix, r.Target)
		}
	}
	return nil
}
