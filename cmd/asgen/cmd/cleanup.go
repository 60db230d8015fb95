package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newCleanupCmd() *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove cache and media entries for packages no longer in any mutable suite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, closeFn, err := openWorkspace()
			if err != nil {
				return err
			}
			defer closeFn()

			err = withProgress(cmd.Context(), ws, plain, func(ctx context.Context) error {
				return ws.eng.Cleanup(ctx)
			})
			if err != nil {
				return fmt.Errorf("cleanup: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "force plain text progress output even on a TTY")
	return cmd
}
