// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/toeirei/tunnelmaster/internal/export"
	"github.com/toeirei/tunnelmaster/internal/model"
)

func TestRunPrintsSummary(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := export.Assemble(
		[]model.Tunnel{{ID: "tun-1", Name: "edge", Token: "secret", Status: model.StatusOnline}},
		[]model.Route{{ID: "rt-1", TunnelID: "tun-1", Hostname: "app.example.com", Target: "127.0.0.1:80", Protocol: model.ProtocolHTTP}},
		"http://localhost:8080", now,
	)
	p := filepath.Join(t.TempDir(), export.DefaultFilename(now))
	if err := export.WriteFile(p, snap); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var out bytes.Buffer
	if err := run([]string{p}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := out.String()
	for _, want := range []string{
		"tunnels: 1, routes: 1",
		"tunnel: edge (tun-1) online",
		"route: http app.example.com -> 127.0.0.1:80",
		"exported: 2026-03-01T12:00:00Z",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "secret") {
		t.Errorf("token leaked into output")
	}
}

func TestRunUsage(t *testing.T) {
	if err := run(nil, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected usage error")
	}
	if err := run([]string{filepath.Join(t.TempDir(), "missing.yaml")}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
