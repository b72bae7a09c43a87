// Package cmd implements the driveline command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lumadocs/driveline/internal/config"
	"github.com/lumadocs/driveline/internal/logger"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "driveline",
	Short: "Sync Google Drive documents into local storage and a vector index",
	Long: `driveline continuously synchronizes a Google Drive folder into local
blob storage and a pgvector index, keeping both in step with the remote
content so downstream retrieval always sees the current documents.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ./config.yaml and user config dir)")
}

// loadConfig loads configuration and initializes the global logger
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	outputs := []logger.OutputConfig{{Type: logger.OutputStderr}}
	if cfg.Log.File.Enabled {
		outputs = append(outputs, logger.OutputConfig{Type: logger.OutputFile})
	}
	logCfg := logger.Config{
		Level:   logger.ParseLevel(cfg.Log.Level),
		Format:  logger.ParseFormat(cfg.Log.Format),
		Outputs: outputs,
		File: logger.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       config.ExpandPath(cfg.Log.File.Path),
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			MaxBackups: cfg.Log.File.MaxBackups,
			Compress:   cfg.Log.File.Compress,
		},
	}
	if err := logger.Init(logCfg); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, nil
}
