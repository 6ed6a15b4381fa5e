// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

// Package core wires the remote API to the resource stores and implements
// the mutation operations used by the CLI and TUI. Every successful
// mutation is followed by a refresh of the affected stores; the stores are
// never patched locally.
package core

import (
	"context"

	"github.com/toeirei/tunnelmaster/internal/model"
)

// TunnelAPI is the tunnel half of the remote API.
type TunnelAPI interface {
	ListTunnels(ctx context.Context) ([]model.Tunnel, error)
	CreateTunnel(ctx context.Context, name string) error
	UpdateTunnel(ctx context.Context, t model.Tunnel) error
	DeleteTunnel(ctx context.Context, id string) error
	RotateToken(ctx context.Context, id string) error
	RevealToken(ctx context.Context, id string) (string, error)
}

// RouteAPI is the route half of the remote API.
type RouteAPI interface {
	ListRoutes(ctx context.Context) ([]model.Route, error)
	ListRoutesByTunnel(ctx context.Context, tunnelID string) ([]model.Route, error)
	CreateRoute(ctx context.Context, r model.Route) error
	UpdateRoute(ctx context.Context, r model.Route) error
	DeleteRoute(ctx context.Context, id string) error
}

// API is implemented by *api.Client.
type API interface {
	TunnelAPI
	RouteAPI
}
