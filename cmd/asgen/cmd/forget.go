package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newForgetCmd drops a single package's cached record by pkid
// ("name/version/arch"), independent of whether the backend still finds
// it in any suite.
func newForgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget <identifier>",
		Short: "Forget one package's cached record by pkid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, closeFn, err := openWorkspace()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx := cmd.Context()
			identifier := args[0]
			if err := ws.contents.RemovePackages(ctx, []string{identifier}); err != nil {
				return fmt.Errorf("remove contents for %s: %w", identifier, err)
			}
			if err := ws.data.RemovePackage(ctx, identifier); err != nil {
				return fmt.Errorf("forget %s: %w", identifier, err)
			}
			return nil
		},
	}
}
