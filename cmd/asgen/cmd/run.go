package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var forced, plain bool
	cmd := &cobra.Command{
		Use:   "run <suite> [section]",
		Short: "Scan a suite's packages and export its catalog",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, closeFn, err := openWorkspace()
			if err != nil {
				return err
			}
			defer closeFn()

			section := ""
			if len(args) == 2 {
				section = args[1]
			}
			err = withProgress(cmd.Context(), ws, plain, func(ctx context.Context) error {
				return ws.eng.Run(ctx, args[0], section, forced)
			})
			if err != nil {
				return fmt.Errorf("run %s: %w", args[0], err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&forced, "force", false, "reprocess even if the backend reports no changes")
	cmd.Flags().BoolVar(&plain, "plain", false, "force plain text progress output even on a TTY")
	return cmd
}
