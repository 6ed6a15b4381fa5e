// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

package buildvars

import (
	"runtime/debug"
	"testing"
)

func TestResolve_MainVersion(t *testing.T) {
	info := &debug.BuildInfo{
		Main: debug.Module{Path: modulePath, Version: "v1.2.3"},
	}
	v, c, d := Resolve(info)
	if v != "v1.2.3" {
		t.Fatalf("expected v1.2.3 got %s", v)
	}
	if c != Commit || d != Date {
		t.Fatalf("expected package defaults for commit/date, got %q %q", c, d)
	}
}

func TestResolve_DependencyFallback(t *testing.T) {
	info := &debug.BuildInfo{
		Main: debug.Module{Path: "example.com/wrapper", Version: "(devel)"},
		Deps: []*debug.Module{{Path: modulePath, Version: "v0.3.1"}},
	}
	if v, _, _ := Resolve(info); v != "v0.3.1" {
		t.Fatalf("expected dependency version fallback got %s", v)
	}
}

func TestResolve_CommitFallback(t *testing.T) {
	orig := Commit
	defer func() { Commit = orig }()
	Commit = "deadbeef"
	info := &debug.BuildInfo{Main: debug.Module{Path: modulePath, Version: "(devel)"}}
	if v, _, _ := Resolve(info); v != "deadbeef" {
		t.Fatalf("expected commit fallback got %s", v)
	}
}

func TestResolve_VCSSettings(t *testing.T) {
	info := &debug.BuildInfo{
		Main: debug.Module{Path: modulePath, Version: "v1.0.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc123"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
		},
	}
	_, c, d := Resolve(info)
	if c != "abc123" || d != "2026-01-02T03:04:05Z" {
		t.Fatalf("unexpected vcs info: %q %q", c, d)
	}
}
