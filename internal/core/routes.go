// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"fmt"

	"github.com/toeirei/tunnelmaster/internal/logging"
	"github.com/toeirei/tunnelmaster/internal/model"
	"github.com/toeirei/tunnelmaster/internal/validation"
)

// SaveRoute creates the route when d has no id and updates it otherwise.
// Afterwards the all-routes collection and, if open, the collection of the
// route's tunnel are refreshed.
func (c *Console) SaveRoute(ctx context.Context, d model.RouteDraft) error {
	if err := validation.Check(d); err != nil {
		return err
	}
	r := d.Route()
	tunnels := []string{r.TunnelID}
	op := "update route"
	var err error
	if d.IsNew() {
		op = "create route"
		err = c.api.CreateRoute(ctx, r)
	} else {
		// a route moved to another tunnel also leaves the old tunnel's view
		if prev, ok := c.Routes.Get(r.ID); ok && prev.TunnelID != r.TunnelID {
			tunnels = append(tunnels, prev.TunnelID)
		}
		err = c.api.UpdateRoute(ctx, r)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return c.resyncRoutes(ctx, op, r, tunnels...)
}

// DeleteRoute deletes one route and refreshes the route collections.
func (c *Console) DeleteRoute(ctx context.Context, id string) error {
	if id == "" {
		return ErrMissingID
	}
	r, known := c.Routes.Get(id)
	if err := c.api.DeleteRoute(ctx, id); err != nil {
		return fmt.Errorf("delete route: %w", err)
	}
	if !known {
		// owner unknown locally, refresh everything that may hold it
		logging.Infof("deleted route %s", id)
		return resync(ctx, "delete route", c.refreshRouteStores)
	}
	return c.resyncRoutes(ctx, "delete route", r, r.TunnelID)
}

func (c *Console) resyncRoutes(ctx context.Context, op string, r model.Route, tunnelIDs ...string) error {
	logging.Infof("%s %s", op, r)
	fns := []func(context.Context) error{c.Routes.Refresh}
	for _, id := range tunnelIDs {
		if s, ok := c.scopedStore(id); ok {
			fns = append(fns, s.Refresh)
		}
	}
	return resync(ctx, op, fns...)
}
