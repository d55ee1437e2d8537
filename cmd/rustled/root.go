package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rustle-deploy/rustle-deploy/internal/ports"
)

// rootFlags holds the persistent flags shared by every subcommand. There is
// no bare-args TUI fallback here: the interactive dashboard surface is out
// of scope for this CLI.
type rootFlags struct {
	verbose  bool
	cacheDir string
}

func newRootCmd(logger ports.Logger) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "rustled",
		Short:         "Plan-to-deployment pipeline: compile and run zero-infrastructure configuration tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringVar(&flags.cacheDir, "cache-dir", defaultCacheDir(), "Compilation cache root directory")

	cmd.AddCommand(newDeployCmd(flags, logger))
	cmd.AddCommand(newRunCmd(flags, logger))
	cmd.AddCommand(newCacheCmd(flags, logger))
	cmd.AddCommand(newCapabilitiesCmd(logger))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".rustled-cache"
	}
	return filepath.Join(dir, "rustled")
}
