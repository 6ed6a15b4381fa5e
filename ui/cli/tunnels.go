// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/toeirei/tunnelmaster/internal/i18n"
	"github.com/toeirei/tunnelmaster/internal/model"
	"github.com/toeirei/tunnelmaster/internal/security"
)

func newTunnelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tunnels",
		Aliases: []string{"tunnel"},
		Short:   "Manage tunnels (list, create, rename, delete, rotate and reveal tokens)",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List all tunnels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := console.Tunnels.Refresh(cmd.Context()); err != nil {
				return fmt.Errorf("failed to list tunnels: %w", err)
			}
			tunnels := console.Tunnels.List()
			out := cmd.OutOrStdout()
			if len(tunnels) == 0 {
				fmt.Fprintln(out, i18n.T("cli.no_tunnels"))
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSTATUS\tLAST SEEN")
			for _, t := range tunnels {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.Name, statusText(t.Status), lastSeenText(t))
			}
			return w.Flush()
		},
	}

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a tunnel; the server assigns its id and token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := console.SaveTunnel(cmd.Context(), model.TunnelDraft{Name: args[0]})
			return report(cmd, err, "notify.tunnel_created", args[0])
		},
	}

	rename := &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a tunnel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := console.Tunnels.Refresh(cmd.Context()); err != nil {
				return fmt.Errorf("failed to load tunnels: %w", err)
			}
			t, ok := console.Tunnels.Get(args[0])
			if !ok {
				return fmt.Errorf("tunnel not found: %s", args[0])
			}
			d := model.DraftFromTunnel(t)
			d.Name = args[1]
			err := console.SaveTunnel(cmd.Context(), d)
			return report(cmd, err, "notify.tunnel_updated", args[1])
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a tunnel together with its routes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := console.DeleteTunnel(cmd.Context(), args[0])
			return report(cmd, err, "notify.tunnel_deleted", args[0])
		},
	}

	rotate := &cobra.Command{
		Use:   "rotate-token <id>",
		Short: "Invalidate the tunnel's token and have the server issue a new one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := console.RotateToken(cmd.Context(), args[0])
			return report(cmd, err, "notify.token_rotated", args[0])
		},
	}

	reveal := &cobra.Command{
		Use:   "reveal-token <id>",
		Short: "Print (or copy) the tunnel's current install token",
		Long: `Fetches the tunnel's current install token. The token is printed to
stdout unless --copy is given, in which case it goes to the clipboard only.
--decode prints the tunnel id and server encoded in the token without the
secret part.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			copyIt, _ := cmd.Flags().GetBool("copy")
			decode, _ := cmd.Flags().GetBool("decode")
			out := cmd.OutOrStdout()

			if decode {
				it, err := console.InstallToken(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "tunnel: %s\nserver: %s\ncredential: %s\n", it.TunnelID, it.Server, it.Credential)
				return nil
			}

			tok, err := console.RevealToken(cmd.Context(), id)
			if err != nil {
				return err
			}
			if copyIt {
				return copyToken(cmd, id, tok)
			}
			fmt.Fprintln(out, tok.Expose())
			return nil
		},
	}
	reveal.Flags().Bool("copy", false, "Copy the token to the clipboard instead of printing it")
	reveal.Flags().Bool("decode", false, "Show the tunnel id and server encoded in the token")

	cmd.AddCommand(list, create, rename, del, rotate, reveal)
	return cmd
}

func copyToken(cmd *cobra.Command, id string, tok security.Secret) error {
	if err := tok.Use(func(b []byte) error { return writeClipboard(string(b)) }); err != nil {
		return fmt.Errorf("%s", i18n.T("notify.clipboard_failed", err))
	}
	fmt.Fprintln(cmd.OutOrStdout(), i18n.T("notify.token_copied", id))
	return nil
}

func statusText(s model.Status) string {
	if !s.Known() {
		return "unknown"
	}
	return string(s)
}

func lastSeenText(t model.Tunnel) string {
	ts, ok := t.LastSeen()
	if !ok {
		return i18n.T("app.never")
	}
	return ts.UTC().Format(time.RFC3339)
}
