// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

// package model defines the resources managed through the tunnel API.
package model // import "github.com/toeirei/tunnelmaster/internal/model"

import (
	"fmt"
	"time"
)

// Status is the connection state reported by the server for a tunnel.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	// StatusUnknown covers an absent or unrecognised status.
	StatusUnknown Status = ""
)

// Known reports whether s is one of the states the server documents.
func (s Status) Known() bool {
	return s == StatusOnline || s == StatusOffline
}

// Tunnel is a registered reverse-tunnel endpoint.
// The server assigns ID and Token; Token is only ever populated by the
// reveal endpoint and never by list results.
type Tunnel struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Token  string `json:"token,omitempty" yaml:"-"`
	Status Status `json:"status,omitempty" yaml:"status,omitempty"`
	Uptime int64  `json:"uptime,omitempty" yaml:"uptime,omitempty"` // unix seconds of the last connection event
}

// Key returns the tunnel id.
func (t Tunnel) Key() string { return t.ID }

// LastSeen converts Uptime into a time. ok is false when the tunnel has
// never connected.
func (t Tunnel) LastSeen() (ts time.Time, ok bool) {
	if t.Uptime <= 0 {
		return time.Time{}, false
	}
	return time.Unix(t.Uptime, 0), true
}

// String returns "name (id)".
func (t Tunnel) String() string {
	return fmt.Sprintf("%s (%s)", t.Name, t.ID)
}

// Route is a forwarding rule bound to a tunnel: requests for
// Hostname+Prefix are forwarded to Target over Protocol.
type Route struct {
	ID       string   `json:"id,omitempty" yaml:"id"`
	TunnelID string   `json:"tunnel_id" yaml:"tunnel_id"`
	Hostname string   `json:"hostname" yaml:"hostname"`
	Prefix   string   `json:"prefix" yaml:"prefix,omitempty"`
	Target   string   `json:"target" yaml:"target"`
	Protocol Protocol `json:"protocol" yaml:"protocol"`
}

// Key returns the route id.
func (r Route) Key() string { return r.ID }

// String returns "protocol://hostname/prefix -> target".
func (r Route) String() string {
	return fmt.Sprintf("%s://%s%s -> %s", r.Protocol, r.Hostname, r.Prefix, r.Target)
}

// TunnelDraft is the editable part of a tunnel. An empty ID means create.
// Drafts never carry a token.
type TunnelDraft struct {
	ID   string `json:"id,omitempty" mapstructure:"id"`
	Name string `json:"name" mapstructure:"name" validate:"required,min=3"`
}

// IsNew reports whether submitting the draft creates a tunnel.
func (d TunnelDraft) IsNew() bool { return d.ID == "" }

// ApplyTo returns current with the draft's editable fields overlaid. The
// result is the full update body: status and uptime pass through unchanged
// and the token is cleared.
func (d TunnelDraft) ApplyTo(current Tunnel) Tunnel {
	current.ID, current.Name, current.Token = d.ID, d.Name, ""
	return current
}

// DraftFromTunnel seeds an edit draft from an existing tunnel.
func DraftFromTunnel(t Tunnel) TunnelDraft {
	return TunnelDraft{ID: t.ID, Name: t.Name}
}

// RouteDraft is the editable part of a route. An empty ID means create.
type RouteDraft struct {
	ID       string   `json:"id,omitempty" mapstructure:"id"`
	TunnelID string   `json:"tunnel_id" mapstructure:"tunnel_id" validate:"required"`
	Hostname string   `json:"hostname" mapstructure:"hostname" validate:"required,hostname_rfc1123"`
	Prefix   string   `json:"prefix" mapstructure:"prefix" validate:"omitempty,startswith=/"`
	Target   string   `json:"target" mapstructure:"target" validate:"required,hostname_port|http_url"`
	Protocol Protocol `json:"protocol" mapstructure:"protocol" validate:"required,min=2,protocol"`
}

// IsNew reports whether submitting the draft creates a route.
func (d RouteDraft) IsNew() bool { return d.ID == "" }

// Route returns the request payload for the draft.
func (d RouteDraft) Route() Route {
	return Route{
		ID:       d.ID,
		TunnelID: d.TunnelID,
		Hostname: d.Hostname,
		Prefix:   d.Prefix,
		Target:   d.Target,
		Protocol: d.Protocol,
	}
}

// DraftFromRoute seeds an edit draft from an existing route.
func DraftFromRoute(r Route) RouteDraft {
	return RouteDraft{
		ID:       r.ID,
		TunnelID: r.TunnelID,
		Hostname: r.Hostname,
		Prefix:   r.Prefix,
		Target:   r.Target,
		Protocol: r.Protocol,
	}
}
