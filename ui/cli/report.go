// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/toeirei/tunnelmaster/internal/api"
	"github.com/toeirei/tunnelmaster/internal/core"
	"github.com/toeirei/tunnelmaster/internal/i18n"
	"github.com/toeirei/tunnelmaster/internal/validation"
)

// report prints the success notification for a mutation. A failed resync
// is only a warning: the mutation itself went through.
func report(cmd *cobra.Command, err error, successID string, args ...any) error {
	if core.IsResync(err) {
		fmt.Fprintln(cmd.OutOrStdout(), i18n.T(successID, args...))
		fmt.Fprintln(cmd.ErrOrStderr(), i18n.T("notify.resync_failed", api.Message(err)))
		return nil
	}
	if fe, ok := validation.AsFieldErrors(err); ok {
		lines := []string{i18n.T("validation.summary")}
		for _, f := range fe.Fields() {
			lines = append(lines, "  "+f+": "+fe[f])
		}
		return fmt.Errorf("%s", strings.Join(lines, "\n"))
	}
	if err != nil {
		return fmt.Errorf("%s", i18n.T("notify.failed", api.Message(err)))
	}
	fmt.Fprintln(cmd.OutOrStdout(), i18n.T(successID, args...))
	return nil
}
