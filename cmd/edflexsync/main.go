package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"edflex-sync/internal/sync"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootFlags struct {
	configPath string
	envOnly    bool
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "edflexsync",
		Short:         "Mirror the Edflex catalog and keep course content in step with it",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "config/edflex.yaml", "path to the YAML config file")
	root.PersistentFlags().BoolVar(&flags.envOnly, "env-only", false, "ignore the config file and read EDFLEX_* variables only")

	root.AddCommand(
		newSyncCommand(flags, "sync", "Run a full catalog synchronization", sync.ModeFull),
		newSyncCommand(flags, "sync-new", "Fetch resources not yet cached", sync.ModeNew),
		newRefreshCommand(flags),
		newExportCommand(flags),
		newServeCommand(flags),
	)
	return root
}
