package main

import (
	"fmt"
	"os"

	"RelVal/pkg/config"

	"github.com/spf13/cobra"
)

var (
	configPath string
	dataDir    string
	dataSource string
	logLevel   string
)

// rootCmd is the base command for the relval CLI
var rootCmd = &cobra.Command{
	Use:   "relval",
	Short: "Pairs relative-value analysis",
	Long: `relval fits a hedge ratio between two price series, models the residual
spread as an Ornstein-Uhlenbeck process, turns it into z-score signals and
backtests a threshold strategy on them.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path (missing file means defaults)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "override data.csv_dir")
	rootCmd.PersistentFlags().StringVar(&dataSource, "source", "", "override data.source (csv|clickhouse)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level")
}

// loadConfig reads the config file, env and flag overrides, in that order.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	if dataDir != "" {
		cfg.Data.CSVDir = dataDir
	}
	if dataSource != "" {
		cfg.Data.Source = dataSource
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
