// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

// Package export writes point-in-time YAML snapshots of tunnels and routes.
// Snapshots never contain tunnel tokens. A file name ending in ".zst" is
// written zstd-compressed.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/toeirei/tunnelmaster/internal/model"
	"gopkg.in/yaml.v3"
)

// Version of the snapshot format.
const Version = 1

// Snapshot is the exported document.
type Snapshot struct {
	Version    int            `yaml:"version"`
	Server     string         `yaml:"server"`
	ExportedAt time.Time      `yaml:"exported_at"`
	Tunnels    []TunnelRecord `yaml:"tunnels"`
}

// TunnelRecord groups one tunnel with its routes.
type TunnelRecord struct {
	model.Tunnel `yaml:",inline"`
	Routes       []model.Route `yaml:"routes,omitempty"`
}

// Source is what a snapshot is built from.
type Source interface {
	ListTunnels(ctx context.Context) ([]model.Tunnel, error)
	ListRoutes(ctx context.Context) ([]model.Route, error)
}

// Build fetches tunnels and routes and groups the routes under their tunnel.
// Routes of unknown tunnels are dropped.
func Build(ctx context.Context, src Source, server string, now time.Time) (*Snapshot, error) {
	tunnels, err := src.ListTunnels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tunnels: %w", err)
	}
	routes, err := src.ListRoutes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	return Assemble(tunnels, routes, server, now), nil
}

// Assemble builds a Snapshot from already fetched collections.
func Assemble(tunnels []model.Tunnel, routes []model.Route, server string, now time.Time) *Snapshot {
	snap := &Snapshot{Version: Version, Server: server, ExportedAt: now.UTC()}
	pos := make(map[string]int, len(tunnels))
	for _, t := range tunnels {
		t.Token = ""
		pos[t.ID] = len(snap.Tunnels)
		snap.Tunnels = append(snap.Tunnels, TunnelRecord{Tunnel: t})
	}
	for _, r := range routes {
		if i, ok := pos[r.TunnelID]; ok {
			snap.Tunnels[i].Routes = append(snap.Tunnels[i].Routes, r)
		}
	}
	return snap
}

// Write encodes snap as YAML to w, compressing it when compress is set.
func Write(w io.Writer, snap *Snapshot, compress bool) error {
	if !compress {
		return encode(w, snap)
	}
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("could not create zstd writer: %w", err)
	}
	if err := encode(zw, snap); err != nil {
		_ = zw.Close()
		return err
	}
	return zw.Close()
}

func encode(w io.Writer, snap *Snapshot) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("could not encode snapshot: %w", err)
	}
	return enc.Close()
}

// WriteFile writes snap to filename, compressed when it ends in ".zst".
func WriteFile(filename string, snap *Snapshot) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}
	if err := Write(file, snap, IsCompressed(filename)); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// Read decodes a snapshot written by Write.
func Read(r io.Reader, compressed bool) (*Snapshot, error) {
	if compressed {
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("could not create zstd reader: %w", err)
		}
		defer zr.Close()
		r = zr
	}
	var snap Snapshot
	if err := yaml.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("could not decode snapshot: %w", err)
	}
	return &snap, nil
}

// ReadFile reads a snapshot file written by WriteFile.
func ReadFile(filename string) (*Snapshot, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer func() { _ = file.Close() }()
	return Read(file, IsCompressed(filename))
}

// IsCompressed reports whether filename selects zstd compression.
func IsCompressed(filename string) bool {
	return strings.HasSuffix(filename, ".zst")
}

// DefaultFilename returns "tunnelmaster-export-YYYY-MM-DD.yaml.zst".
func DefaultFilename(now time.Time) string {
	return fmt.Sprintf("tunnelmaster-export-%s.yaml.zst", now.Format("2006-01-02"))
}
