// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/toeirei/tunnelmaster/internal/i18n"
	"github.com/toeirei/tunnelmaster/internal/model"
	"github.com/toeirei/tunnelmaster/internal/store"
)

func newRoutesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "routes",
		Aliases: []string{"route"},
		Short:   "Manage routes (list, create, update, delete)",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List routes, optionally only those of one tunnel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tunnelID, _ := cmd.Flags().GetString("tunnel")
			var s *store.Store[model.Route]
			if tunnelID == "" {
				s = console.Routes
				if err := s.Refresh(cmd.Context()); err != nil {
					return fmt.Errorf("failed to list routes: %w", err)
				}
			} else {
				var err error
				if s, err = console.OpenRoutes(cmd.Context(), tunnelID); err != nil {
					return fmt.Errorf("failed to list routes: %w", err)
				}
			}

			routes := s.List()
			out := cmd.OutOrStdout()
			if len(routes) == 0 {
				fmt.Fprintln(out, i18n.T("cli.no_routes"))
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTUNNEL\tPROTOCOL\tHOSTNAME\tPREFIX\tTARGET")
			for _, r := range routes {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.TunnelID, r.Protocol, r.Hostname, r.Prefix, r.Target)
			}
			return w.Flush()
		},
	}
	list.Flags().String("tunnel", "", "Only list routes of this tunnel id")

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a route",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := model.RouteDraft{Protocol: model.ProtocolHTTP}
			applyRouteFlags(cmd.Flags(), &d)
			err := console.SaveRoute(cmd.Context(), d)
			return report(cmd, err, "notify.route_created", d.Hostname+d.Prefix)
		},
	}
	addRouteFlags(create.Flags())

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a route; only the given flags change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := console.Routes.Refresh(cmd.Context()); err != nil {
				return fmt.Errorf("failed to load routes: %w", err)
			}
			r, ok := console.Routes.Get(args[0])
			if !ok {
				return fmt.Errorf("route not found: %s", args[0])
			}
			d := model.DraftFromRoute(r)
			applyRouteFlags(cmd.Flags(), &d)
			err := console.SaveRoute(cmd.Context(), d)
			return report(cmd, err, "notify.route_updated", d.Hostname+d.Prefix)
		},
	}
	addRouteFlags(update.Flags())

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a route",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := console.DeleteRoute(cmd.Context(), args[0])
			return report(cmd, err, "notify.route_deleted", args[0])
		},
	}

	cmd.AddCommand(list, create, update, del)
	return cmd
}

func addRouteFlags(fs *pflag.FlagSet) {
	fs.String("tunnel", "", "Tunnel id the route belongs to")
	fs.String("hostname", "", "Public hostname to match")
	fs.String("prefix", "", "Path prefix to match (starts with /)")
	fs.String("target", "", "Forwarding target as host:port or an http(s) URL")
	fs.String("protocol", string(model.ProtocolHTTP), "Protocol")
}

// applyRouteFlags copies every flag the user set into d.
func applyRouteFlags(fs *pflag.FlagSet, d *model.RouteDraft) {
	set := func(name string, dst *string) {
		if fs.Changed(name) {
			*dst, _ = fs.GetString(name)
		}
	}
	set("tunnel", &d.TunnelID)
	set("hostname", &d.Hostname)
	set("prefix", &d.Prefix)
	set("target", &d.Target)
	if fs.Changed("protocol") {
		p, _ := fs.GetString("protocol")
		d.Protocol = model.Protocol(p)
	}
}
