// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/toeirei/tunnelmaster/internal/model"
)

// Paths of the REST surface.
const (
	PathTunnels = "/api/tunnels"
	PathRoutes  = "/api/routes"
	PathToken   = "/api/token"
)

func tunnelPath(id string) string       { return PathTunnels + "/" + url.PathEscape(id) }
func rotateTokenPath(id string) string  { return tunnelPath(id) + "/refreshtoken" }
func revealTokenPath(id string) string  { return PathToken + "/" + url.PathEscape(id) }
func routePath(id string) string        { return PathRoutes + "/" + url.PathEscape(id) }
func tunnelRoutesPath(id string) string { return PathRoutes + "/" + url.PathEscape(id) }

type createTunnelRequest struct {
	Name string `json:"name"`
}

// ListTunnels fetches all tunnels. The server never includes tokens here.
func (c *Client) ListTunnels(ctx context.Context) ([]model.Tunnel, error) {
	return Do[[]model.Tunnel](ctx, c, http.MethodGet, PathTunnels, nil)
}

// CreateTunnel submits a new tunnel. The server assigns id and token.
func (c *Client) CreateTunnel(ctx context.Context, name string) error {
	_, err := Do[json.RawMessage](ctx, c, http.MethodPost, PathTunnels, createTunnelRequest{Name: name})
	return err
}

// UpdateTunnel sends the mutable fields of t. The token is always stripped.
func (c *Client) UpdateTunnel(ctx context.Context, t model.Tunnel) error {
	t.Token = ""
	_, err := Do[json.RawMessage](ctx, c, http.MethodPut, tunnelPath(t.ID), t)
	return err
}

// DeleteTunnel removes a tunnel (and, server side, its routes).
func (c *Client) DeleteTunnel(ctx context.Context, id string) error {
	_, err := Do[json.RawMessage](ctx, c, http.MethodDelete, tunnelPath(id), nil)
	return err
}

// RotateToken invalidates the tunnel's secret and has the server issue a
// new one. Whatever data the server sends back is dropped: secrets are
// only obtained through RevealToken.
func (c *Client) RotateToken(ctx context.Context, id string) error {
	_, err := Do[json.RawMessage](ctx, c, http.MethodPost, rotateTokenPath(id), nil)
	return err
}

// RevealToken fetches the current secret for one tunnel.
func (c *Client) RevealToken(ctx context.Context, id string) (string, error) {
	return Do[string](ctx, c, http.MethodGet, revealTokenPath(id), nil)
}

// ListRoutes fetches every route.
func (c *Client) ListRoutes(ctx context.Context) ([]model.Route, error) {
	return Do[[]model.Route](ctx, c, http.MethodGet, PathRoutes, nil)
}

// ListRoutesByTunnel fetches the routes bound to one tunnel.
func (c *Client) ListRoutesByTunnel(ctx context.Context, tunnelID string) ([]model.Route, error) {
	return Do[[]model.Route](ctx, c, http.MethodGet, tunnelRoutesPath(tunnelID), nil)
}

// CreateRoute submits a new route; r.ID is ignored by the server.
func (c *Client) CreateRoute(ctx context.Context, r model.Route) error {
	r.ID = ""
	_, err := Do[json.RawMessage](ctx, c, http.MethodPost, PathRoutes, r)
	return err
}

// UpdateRoute replaces the route identified by r.ID.
func (c *Client) UpdateRoute(ctx context.Context, r model.Route) error {
	_, err := Do[json.RawMessage](ctx, c, http.MethodPut, routePath(r.ID), r)
	return err
}

// DeleteRoute removes one route.
func (c *Client) DeleteRoute(ctx context.Context, id string) error {
	_, err := Do[json.RawMessage](ctx, c, http.MethodDelete, routePath(id), nil)
	return err
}
