package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newProcessFileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process-file <suite> <section> <file...>",
		Short: "Extract and cache metadata for one or more archive files directly",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, closeFn, err := openWorkspace()
			if err != nil {
				return err
			}
			defer closeFn()

			suite, section, paths := args[0], args[1], args[2:]
			if err := ws.eng.ProcessFile(cmd.Context(), suite, section, paths); err != nil {
				return fmt.Errorf("process-file: %w", err)
			}
			return nil
		},
	}
}
