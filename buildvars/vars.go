// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

// Package buildvars contains variables injected at build time.
package buildvars

import "runtime/debug"

const modulePath = "github.com/toeirei/tunnelmaster"

// Version, Commit and Date are set at link time, e.g.
// `-ldflags -X github.com/toeirei/tunnelmaster/buildvars.Version=v1.2.3`.
var (
	Version = "dev"
	Commit  = "dev"
	Date    = ""
)

// Resolve computes the best-available version, commit and build date. If
// info is nil it is read from the running binary.
func Resolve(info *debug.BuildInfo) (version, commit, date string) {
	version, commit, date = Version, Commit, Date
	if info == nil {
		if local, ok := debug.ReadBuildInfo(); ok {
			info = local
		}
	}
	if info != nil {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
		if version == "dev" {
			for _, dep := range info.Deps {
				if dep.Path == modulePath && dep.Version != "" {
					version = dep.Version
					break
				}
			}
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if s.Value != "" && commit == "dev" {
					commit = s.Value
				}
			case "vcs.time":
				if s.Value != "" && date == "" {
					date = s.Value
				}
			}
		}
	}
	if version == "dev" && commit != "dev" && commit != "" {
		version = commit
	}
	return version, commit, date
}

// String renders "version (commit) built: date", omitting unknown parts.
func String() string {
	v, c, d := Resolve(nil)
	out := v
	if c != "" && c != "dev" && c != v {
		out += " (" + c + ")"
	}
	if d != "" {
		out += " built: " + d
	}
	return out
}
