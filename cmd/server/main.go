package main

import (
	"fmt"
	"os"

	"globalnews_translator/internal/platform/config"
	"globalnews_translator/internal/platform/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version = "dev"
	commit  = "none"
)

// Loaded once by the root command's PersistentPreRunE.
var (
	cfg *config.Config
	log *zap.Logger
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "globalnews-translator",
		Short: "Translation job pipeline for the GlobalNews aggregator",
		Long: `globalnews-translator schedules article translations, runs the worker pool
that sends them to the language model gateway, and reports queue health.

Configuration comes from defaults, the YAML file named by TRANSLATOR_CONFIG_FILE,
a local .env file and the environment, in that order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.Load(); err != nil {
				return err
			}
			if log, err = logger.New(cfg.App.LogLevel, cfg.App.Env); err != nil {
				return err
			}
			log = log.With(zap.String("version", version))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if log != nil {
				_ = log.Sync()
			}
		},
	}

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newEnqueueCmd(),
		newBulkCmd(),
		newMetricsCmd(),
		newVersionCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("globalnews-translator %s (%s)\n", version, commit)
		},
	}
}
