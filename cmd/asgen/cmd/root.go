// Package cmd provides the CLI commands for asgen.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/asgen-go/asgen/internal/logging"
)

// version is set at build time via -ldflags "-X .../cmd.version=...".
var version = "dev"

var (
	workspaceDir string
	debugMode    bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the asgen CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "asgen",
		Short:   "AppStream metadata generator",
		Long: `asgen scans package archives for AppStream metainfo and desktop files,
extracts and caches component metadata, and exports per-suite catalogs,
hints, and icon tarballs for a software distribution.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.SetVersionTemplate("asgen version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&workspaceDir, "workspace", ".", "workspace directory containing asgen-config.json")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newPublishCmd())
	cmd.AddCommand(newCleanupCmd())
	cmd.AddCommand(newProcessFileCmd())
	cmd.AddCommand(newRemoveFoundCmd())
	cmd.AddCommand(newForgetCmd())
	cmd.AddCommand(newInfoCmd())

	return cmd
}

func startLogging(_ *cobra.Command, _ []string) error {
	logCfg := logging.DefaultConfig()
	if debugMode {
		logCfg = logging.DebugConfig()
	}
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return err
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
