package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/giantswarm/chronosphere-sync/internal/app"
	"github.com/giantswarm/chronosphere-sync/pkg/chronosphere"
	"github.com/giantswarm/chronosphere-sync/pkg/config"
	"github.com/giantswarm/chronosphere-sync/pkg/report"
)

const (
	// Sync configuration flag names
	flagRoot         = "root"
	flagDryRun       = "dry-run"
	flagConcurrency  = "concurrency"
	flagChangedFiles = "changed-files"
	flagOutput       = "output"

	// Chronosphere configuration flag names
	flagTenant         = "tenant"
	flagAPIURL         = "api-url"
	flagRequestTimeout = "request-timeout"
	flagMaxRetries     = "max-retries"

	// Metrics configuration flag names
	flagMetricsTextfile = "metrics-textfile"
	flagPushgatewayURL  = "pushgateway-url"
)

func newSyncCmd() *cobra.Command {
	var cfg config.Config

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Validate the asset files and sync them to the tenant",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.LoadEnvironment(); err != nil {
				return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
			}
			cfg.Resolve()
			cfg.Sync.ChangedOnly = cmd.Flags().Changed(flagChangedFiles)

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}

			ctx := logf.IntoContext(cmd.Context(), logf.Log.WithName("sync"))
			return app.New(cfg, cmd.OutOrStdout()).Run(ctx)
		},
	}

	addSyncFlags(syncCmd.Flags(), &cfg)

	return syncCmd
}

// addSyncFlags binds the sync command line flags to cfg.
func addSyncFlags(flags *pflag.FlagSet, cfg *config.Config) {
	// Sync configuration flags
	flags.StringVar(&cfg.Sync.Root, flagRoot, ".",
		"Directory holding the asset files")
	flags.BoolVar(&cfg.Sync.DryRun, flagDryRun, false,
		"Load and validate the assets without calling the API")
	flags.IntVar(&cfg.Sync.Concurrency, flagConcurrency, 4,
		"Maximum number of assets of one type synced at once")
	flags.StringSliceVar(&cfg.Sync.ChangedFiles, flagChangedFiles, nil,
		"Comma-separated list of changed asset files, only their assets are synced")
	flags.StringVarP(&cfg.Sync.Output, flagOutput, "o", report.FormatTable,
		fmt.Sprintf("Report format, one of %v", report.Formats))

	// Chronosphere configuration flags
	flags.StringVar(&cfg.Chronosphere.Tenant, flagTenant, "",
		"Chronosphere tenant, defaults to CHRONOSPHERE_ORG_NAME")
	flags.StringVar(&cfg.Chronosphere.APIURL, flagAPIURL, "",
		"Chronosphere API URL, defaults to CHRONOSPHERE_API_URL or the tenant URL")
	flags.DurationVar(&cfg.Chronosphere.RequestTimeout, flagRequestTimeout, chronosphere.DefaultTimeout,
		"Timeout of a single API request")
	flags.Uint64Var(&cfg.Chronosphere.MaxRetries, flagMaxRetries, chronosphere.DefaultMaxRetries,
		"Maximum number of retries of a failed API request")

	// Metrics configuration flags
	flags.StringVar(&cfg.Metrics.TextfilePath, flagMetricsTextfile, "",
		"Write run metrics to this node exporter textfile (.prom)")
	flags.StringVar(&cfg.Metrics.PushgatewayURL, flagPushgatewayURL, "",
		"Push run metrics to this Pushgateway")
}
