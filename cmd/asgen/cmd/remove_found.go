package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newRemoveFoundCmd drops the cached DataStore/ContentsStore record for
// every package the backend currently reports in suite, so the next `run`
// that processes their suite/section/arch extracts them from scratch. A
// triple whose package index is unchanged is still skipped by `run` unless
// the run is forced.
func newRemoveFoundCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-found <suite>",
		Short: "Forget cached records for every package currently found in a suite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, closeFn, err := openWorkspace()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx := cmd.Context()
			suiteName := args[0]
			def, ok := ws.cfg.Suites[suiteName]
			if !ok {
				return fmt.Errorf("unknown suite %q", suiteName)
			}

			var pkids []string
			for _, section := range def.Sections {
				for _, arch := range def.Architectures {
					pkgs, err := ws.idx.PackagesFor(ctx, suiteName, section, arch, false)
					if err != nil {
						return fmt.Errorf("list packages for %s/%s/%s: %w", suiteName, section, arch, err)
					}
					for _, pkg := range pkgs {
						pkids = append(pkids, pkg.Pkid())
					}
				}
			}

			if err := ws.contents.RemovePackages(ctx, pkids); err != nil {
				return fmt.Errorf("remove contents: %w", err)
			}
			for _, pkid := range pkids {
				if err := ws.data.RemovePackage(ctx, pkid); err != nil {
					return fmt.Errorf("remove %s: %w", pkid, err)
				}
			}
			fmt.Printf("removed %d cached package records from %s\n", len(pkids), suiteName)
			return nil
		},
	}
}
