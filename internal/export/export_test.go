// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

package export_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/toeirei/tunnelmaster/internal/api"
	"github.com/toeirei/tunnelmaster/internal/export"
	"github.com/toeirei/tunnelmaster/internal/model"
	"github.com/toeirei/tunnelmaster/internal/testutil"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestAssemble_GroupsRoutesAndDropsTokens(t *testing.T) {
	tunnels := []model.Tunnel{
		{ID: "t1", Name: "alpha", Token: "secret", Status: model.StatusOnline},
		{ID: "t2", Name: "beta"},
	}
	routes := []model.Route{
		{ID: "r1", TunnelID: "t1", Hostname: "a.example.com", Target: "127.0.0.1:80", Protocol: model.ProtocolHTTP},
		{ID: "r2", TunnelID: "gone", Hostname: "x.example.com", Target: "127.0.0.1:80", Protocol: model.ProtocolHTTP},
	}
	snap := export.Assemble(tunnels, routes, "https://tunnels.example.com", now)

	if len(snap.Tunnels) != 2 {
		t.Fatalf("expected 2 tunnels, got %d", len(snap.Tunnels))
	}
	if snap.Tunnels[0].Token != "" {
		t.Errorf("token leaked into snapshot")
	}
	if len(snap.Tunnels[0].Routes) != 1 || len(snap.Tunnels[1].Routes) != 0 {
		t.Errorf("unexpected grouping: %+v", snap.Tunnels)
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, snap, false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if strings.Contains(buf.String(), "secret") || strings.Contains(buf.String(), "token") {
		t.Errorf("yaml contains token material:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "hostname: a.example.com") {
		t.Errorf("unexpected yaml:\n%s", buf.String())
	}
}

func TestWriteFile_Compressed(t *testing.T) {
	snap := export.Assemble([]model.Tunnel{{ID: "t1", Name: "alpha"}}, nil, "", now)
	path := filepath.Join(t.TempDir(), export.DefaultFilename(now))
	if !export.IsCompressed(path) {
		t.Fatalf("default filename should select compression: %s", path)
	}
	if err := export.WriteFile(path, snap); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := export.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got.Version != export.Version || len(got.Tunnels) != 1 || got.Tunnels[0].Name != "alpha" {
		t.Errorf("unexpected snapshot: %+v", got)
	}
	if !got.ExportedAt.Equal(now) {
		t.Errorf("exported_at = %v, want %v", got.ExportedAt, now)
	}
}

func TestBuild_FromAPI(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.LeakTokens = true
	tun := fake.SeedTunnel("alpha", model.StatusOnline, 1700000000)
	fake.SeedRoute(model.Route{TunnelID: tun.ID, Hostname: "a.example.com", Target: "127.0.0.1:80", Protocol: model.ProtocolHTTP})
	c, err := api.NewClient(fake.URL())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	snap, err := export.Build(context.Background(), c, c.BaseURL(), now)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(snap.Tunnels) != 1 || len(snap.Tunnels[0].Routes) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.Tunnels[0].Token != "" {
		t.Errorf("token leaked into snapshot")
	}
}

func TestBuild_PropagatesFailure(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.FailNext("GET", "/api/routes", 3, "boom")
	c, _ := api.NewClient(fake.URL())

	if _, err := export.Build(context.Background(), c, "", now); !api.IsApplication(err) {
		t.Fatalf("expected application error, got %v", err)
	}
}
