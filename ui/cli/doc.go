// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.
//
// Package cli implements the command-line interface for Tunnelmaster using
// Cobra. It wires configuration and the shared core.Console; commands stay
// thin and delegate to `core`.
package cli
