// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"fmt"

	"github.com/toeirei/tunnelmaster/internal/logging"
	"github.com/toeirei/tunnelmaster/internal/model"
	"github.com/toeirei/tunnelmaster/internal/security"
	"github.com/toeirei/tunnelmaster/internal/validation"
)

// SaveTunnel creates the tunnel when d has no id and updates it otherwise,
// then refreshes the tunnel collection. An invalid draft is rejected
// without contacting the server. Updates send the whole tunnel as last
// listed with the draft overlaid, so server-owned fields are kept.
func (c *Console) SaveTunnel(ctx context.Context, d model.TunnelDraft) error {
	if err := validation.Check(d); err != nil {
		return err
	}
	op := "update tunnel"
	var err error
	if d.IsNew() {
		op = "create tunnel"
		err = c.api.CreateTunnel(ctx, d.Name)
	} else {
		var current model.Tunnel
		if current, err = c.currentTunnel(ctx, d.ID); err == nil {
			err = c.api.UpdateTunnel(ctx, d.ApplyTo(current))
		}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	logging.Infof("%s %q", op, d.Name)
	return resync(ctx, op, c.Tunnels.Refresh)
}

// currentTunnel returns the listed tunnel id, refreshing the tunnel
// collection once when it is not known yet.
func (c *Console) currentTunnel(ctx context.Context, id string) (model.Tunnel, error) {
	if t, ok := c.Tunnels.Get(id); ok {
		return t, nil
	}
	if err := ignoreSuperseded(c.Tunnels.Refresh(ctx)); err != nil {
		return model.Tunnel{}, err
	}
	if t, ok := c.Tunnels.Get(id); ok {
		return t, nil
	}
	return model.Tunnel{}, fmt.Errorf("%w: %s", ErrUnknownTunnel, id)
}

// DeleteTunnel deletes a tunnel. The server also deletes its routes, so
// every route collection is refreshed along with the tunnels.
func (c *Console) DeleteTunnel(ctx context.Context, id string) error {
	if id == "" {
		return ErrMissingID
	}
	if err := c.api.DeleteTunnel(ctx, id); err != nil {
		return fmt.Errorf("delete tunnel: %w", err)
	}
	logging.Infof("deleted tunnel %s", id)
	return resync(ctx, "delete tunnel", c.Tunnels.Refresh, c.refreshRouteStores)
}

// RotateToken invalidates the tunnel's current secret. The new secret is
// not returned; use RevealToken to obtain it.
func (c *Console) RotateToken(ctx context.Context, id string) error {
	if id == "" {
		return ErrMissingID
	}
	if err := c.api.RotateToken(ctx, id); err != nil {
		return fmt.Errorf("rotate token: %w", err)
	}
	logging.Infof("rotated token of tunnel %s", id)
	return resync(ctx, "rotate token", c.Tunnels.Refresh)
}

// RevealToken fetches the current secret of one tunnel. The value is only
// handed to the caller; it is never stored.
func (c *Console) RevealToken(ctx context.Context, id string) (security.Secret, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	tok, err := c.api.RevealToken(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reveal token: %w", err)
	}
	logging.Debugf("revealed token of tunnel %s", id)
	return security.FromString(tok), nil
}

// InstallToken reveals the tunnel's secret and decodes it as an install
// token. Tokens the server sends in bare form come back with only the
// credential set.
func (c *Console) InstallToken(ctx context.Context, id string) (security.InstallToken, error) {
	sec, err := c.RevealToken(ctx, id)
	if err != nil {
		return security.InstallToken{}, err
	}
	it, err := security.ParseInstallToken(sec)
	if err != nil {
		return security.InstallToken{TunnelID: id, Credential: sec}, nil
	}
	return it, nil
}
