// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/toeirei/tunnelmaster/internal/export"
	"github.com/toeirei/tunnelmaster/internal/i18n"
)

// now is replaced in tests.
var now = time.Now

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [output-file]",
		Short: "Write a YAML snapshot of all tunnels and routes",
		Long: `Fetches all tunnels and routes and writes them, grouped by tunnel, to a
YAML file. Tokens are never included. A file name ending in '.zst' is
written Zstandard-compressed.

If no output file is given, 'tunnelmaster-export-YYYY-MM-DD.yaml.zst' is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts := now()
			filename := export.DefaultFilename(ts)
			if len(args) > 0 {
				filename = args[0]
			}

			snap, err := export.Build(cmd.Context(), client, client.BaseURL(), ts)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			if err := export.WriteFile(filename, snap); err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			routes := 0
			for _, t := range snap.Tunnels {
				routes += len(t.Routes)
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.exported", len(snap.Tunnels), routes, filename))
			return nil
		},
	}
}
