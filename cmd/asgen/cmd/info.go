package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type pkgInfo struct {
	Pkid      string                       `json:"pkid"`
	Ignored   bool                         `json:"ignored"`
	HasRecord bool                         `json:"hasRecord"`
	GCIDs     []string                     `json:"gcids,omitempty"`
	Hints     map[string][]json.RawMessage `json:"hints,omitempty"`
}

// newInfoCmd prints everything currently cached for one package's pkid:
// whether it is recorded or ignored, its GCIDs, and its recorded hints.
func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <pkid>",
		Short: "Show cached DataStore information for a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, closeFn, err := openWorkspace()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx := cmd.Context()
			pkid := args[0]

			info := pkgInfo{Pkid: pkid}
			info.Ignored, err = ws.data.IsIgnored(ctx, pkid)
			if err != nil {
				return fmt.Errorf("check ignored: %w", err)
			}
			info.HasRecord, err = ws.data.HasRecord(ctx, pkid)
			if err != nil {
				return fmt.Errorf("check record: %w", err)
			}
			info.GCIDs, err = ws.data.GetGCIDsForPackage(ctx, pkid)
			if err != nil {
				return fmt.Errorf("read gcids: %w", err)
			}

			raw, ok, err := ws.data.GetHints(ctx, pkid)
			if err != nil {
				return fmt.Errorf("read hints: %w", err)
			}
			if ok {
				if err := json.Unmarshal(raw, &info.Hints); err != nil {
					return fmt.Errorf("parse hints: %w", err)
				}
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
	}
}
