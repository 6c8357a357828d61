package main

import (
	"flag"
	"fmt"

	"github.com/spf13/cobra"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/giantswarm/chronosphere-sync/pkg/config"
)

func newRootCmd() *cobra.Command {
	// Zap logging options
	opts := zap.Options{
		Development: false,
	}

	rootCmd := &cobra.Command{
		Use:   "chronosphere-sync",
		Short: "Sync Chronosphere configuration assets from files",
		Long: `chronosphere-sync loads teams, collections, monitors and notification policies from
YAML asset files, validates them and creates or updates them on a Chronosphere tenant.

Examples:
  # Show what would be synced
  chronosphere-sync sync --root assets --dry-run

  # Sync a tenant
  CHRONOSPHERE_API_TOKEN=... chronosphere-sync sync --root assets --tenant acme
`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(*cobra.Command, []string) {
			logf.SetLogger(zap.New(zap.UseFlagOptions(&opts)))
		},
	}

	goFlags := flag.NewFlagSet("zap", flag.ContinueOnError)
	opts.BindFlags(goFlags)
	rootCmd.PersistentFlags().AddGoFlagSet(goFlags)

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	})

	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// noArgs rejects positional arguments with a configuration error.
func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	return nil
}
