package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// newPublishCmd runs a suite unconditionally (ignoring the backend
// change-watermark) and records a statistics snapshot, the "finalize for
// public consumption" step spec §4.6 step 6 calls out after a suite's
// (section, arch) triples are all done.
func newPublishCmd() *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "publish <suite> [section]",
		Short: "Force a full re-export of a suite and record statistics",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, closeFn, err := openWorkspace()
			if err != nil {
				return err
			}
			defer closeFn()

			suiteName := args[0]
			section := ""
			if len(args) == 2 {
				section = args[1]
			}

			err = withProgress(cmd.Context(), ws, plain, func(ctx context.Context) error {
				return ws.eng.Run(ctx, suiteName, section, true)
			})
			if err != nil {
				return fmt.Errorf("publish %s: %w", suiteName, err)
			}

			snapshot, err := json.Marshal(map[string]string{"suite": suiteName, "section": section})
			if err != nil {
				return fmt.Errorf("marshal statistics: %w", err)
			}
			if err := ws.eng.RecordStatistics(cmd.Context(), snapshot); err != nil {
				return fmt.Errorf("record statistics: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "force plain text progress output even on a TTY")
	return cmd
}
