// Package commands defines the pixd command line interface.
package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/config"
	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "pixd",
	Short: "PIX registry synchronization daemon",
	Long: `pixd mirrors PIX keys and transactions from the central bank's
open-data endpoints into a local SQLite store, keeps the copy durable with
timestamped backups, and exposes an operator API for on-demand sync,
backup and restore.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")
}

// loadEnvironment loads config and builds the logger most subcommands need.
func loadEnvironment() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
