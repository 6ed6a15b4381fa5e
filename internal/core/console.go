// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/toeirei/tunnelmaster/internal/logging"
	"github.com/toeirei/tunnelmaster/internal/model"
	"github.com/toeirei/tunnelmaster/internal/store"
)

// Console owns the synchronized collections: all tunnels, all routes, and
// one lazily created route collection per tunnel that a view has opened.
type Console struct {
	api API

	Tunnels *store.Store[model.Tunnel]
	Routes  *store.Store[model.Route]

	mu     sync.Mutex
	scoped map[string]*store.Store[model.Route]
}

// NewConsole builds a Console on top of api. Nothing is fetched until the
// first Refresh.
func NewConsole(api API) *Console {
	c := &Console{api: api, scoped: map[string]*store.Store[model.Route]{}}
	c.Tunnels = store.New("tunnels", api.ListTunnels, model.Tunnel.Key,
		store.WithFilter(scrubToken))
	c.Routes = store.New("routes", api.ListRoutes, model.Route.Key)
	return c
}

// scrubToken drops a token that a list response should never have carried.
func scrubToken(t model.Tunnel) model.Tunnel {
	if t.Token != "" {
		logging.Warnf("server returned a token for tunnel %s in a list response; discarding it", t.ID)
		t.Token = ""
	}
	return t
}

// RoutesFor returns the route collection scoped to one tunnel, creating it
// on first use. The returned store is empty until refreshed.
func (c *Console) RoutesFor(tunnelID string) *store.Store[model.Route] {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.scoped[tunnelID]; ok {
		return s
	}
	s := store.New("routes/"+tunnelID, func(ctx context.Context) ([]model.Route, error) {
		return c.api.ListRoutesByTunnel(ctx, tunnelID)
	}, model.Route.Key)
	c.scoped[tunnelID] = s
	return s
}

// OpenRoutes returns the scoped route collection of tunnelID after one
// refresh of it.
func (c *Console) OpenRoutes(ctx context.Context, tunnelID string) (*store.Store[model.Route], error) {
	if tunnelID == "" {
		return nil, ErrMissingID
	}
	s := c.RoutesFor(tunnelID)
	if err := ignoreSuperseded(s.Refresh(ctx)); err != nil {
		return s, err
	}
	return s, nil
}

func (c *Console) scopedStore(tunnelID string) (*store.Store[model.Route], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.scoped[tunnelID]
	return s, ok
}

func (c *Console) routeStores() []*store.Store[model.Route] {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []*store.Store[model.Route]{c.Routes}
	for _, id := range sortedKeys(c.scoped) {
		out = append(out, c.scoped[id])
	}
	return out
}

// RefreshAll refreshes tunnels and every route collection. All refreshes
// are attempted; the first failure is returned.
func (c *Console) RefreshAll(ctx context.Context) error {
	return refreshEach(ctx, c.Tunnels.Refresh, c.refreshRouteStores)
}

func (c *Console) refreshRouteStores(ctx context.Context) error {
	var fns []func(context.Context) error
	for _, s := range c.routeStores() {
		fns = append(fns, s.Refresh)
	}
	return refreshEach(ctx, fns...)
}

// refreshEach runs every refresh in order. A superseded refresh is not an
// error: a newer one for the same store is in flight.
func refreshEach(ctx context.Context, fns ...func(context.Context) error) error {
	var first error
	for _, fn := range fns {
		if err := ignoreSuperseded(fn(ctx)); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func ignoreSuperseded(err error) error {
	if errors.Is(err, store.ErrSuperseded) {
		return nil
	}
	return err
}

// resync runs the refreshes that follow a successful mutation.
func resync(ctx context.Context, op string, fns ...func(context.Context) error) error {
	if err := refreshEach(ctx, fns...); err != nil {
		logging.Warnf("%s: resync failed: %v", op, err)
		return &ResyncError{Op: op, Err: err}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
