// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

package security

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// InstallToken is the decoded form of the secret handed out by the token
// endpoint: base64 of a JSON object naming the tunnel, its credential and
// the server the agent should dial.
type InstallToken struct {
	TunnelID   string `json:"tunnel_id"`
	Credential Secret `json:"-"`
	Server     string `json:"server"`
}

type installTokenWire struct {
	TunnelID string `json:"tunnel_id"`
	Token    string `json:"token"`
	Server   string `json:"server"`
}

// ErrNotInstallToken is returned when a secret is not an encoded install
// token (servers may also hand out bare tokens).
var ErrNotInstallToken = errors.New("secret is not an encoded install token")

// ParseInstallToken decodes s. The secret itself is never copied into an
// error message.
func ParseInstallToken(s Secret) (InstallToken, error) {
	raw := strings.TrimSpace(string(s))
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return InstallToken{}, fmt.Errorf("%w: not base64", ErrNotInstallToken)
	}
	var w installTokenWire
	if err := json.Unmarshal(data, &w); err != nil {
		return InstallToken{}, fmt.Errorf("%w: not a JSON object", ErrNotInstallToken)
	}
	if w.TunnelID == "" || w.Token == "" {
		return InstallToken{}, fmt.Errorf("%w: missing tunnel_id or token", ErrNotInstallToken)
	}
	return InstallToken{TunnelID: w.TunnelID, Credential: FromString(w.Token), Server: w.Server}, nil
}

// Encode produces the wire form of t. Used by tests and fake servers.
func (t InstallToken) Encode() (Secret, error) {
	b, err := json.Marshal(installTokenWire{TunnelID: t.TunnelID, Token: t.Credential.Expose(), Server: t.Server})
	if err != nil {
		return nil, err
	}
	return FromString(base64.StdEncoding.EncodeToString(b)), nil
}
