// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

// Package tui implements the interactive terminal UI. Presentation and
// input handling live here; all reads and writes go through core.Console.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/toeirei/tunnelmaster/internal/core"
)

// Run shows the TUI until the user quits.
func Run(ctx context.Context, c *core.Console) error {
	if ctx == nil {
		ctx = context.Background()
	}
	_, err := tea.NewProgram(
		New(ctx, c),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	).Run()
	return err
}
