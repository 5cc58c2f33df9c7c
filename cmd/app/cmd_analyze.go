package main

import (
	"encoding/json"
	"fmt"

	"RelVal/internal/di"
	"RelVal/internal/usecase"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze one pair and print the summary as JSON",
	Long: `Analyze regresses --y on --x over the regression lookback, fits the OU
model on the trailing OU lookback of the residuals and backtests the signals.

Examples:
  relval analyze --x SPY --y QQQ
  relval analyze --x SPY --y QQQ --regression-lookback 1Y --ou-lookback 13W --threshold 2`,
	RunE: runAnalyze,
}

var (
	analyzeX         string
	analyzeY         string
	analyzeReg       string
	analyzeOU        string
	analyzeThreshold float64
	analyzeFrom      string
	analyzeTo        string
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeX, "x", "", "independent symbol")
	analyzeCmd.Flags().StringVar(&analyzeY, "y", "", "dependent symbol")
	analyzeCmd.Flags().StringVar(&analyzeReg, "regression-lookback", "", "regression window, e.g. 2Y (default model.regression_lookback)")
	analyzeCmd.Flags().StringVar(&analyzeOU, "ou-lookback", "", "OU window, e.g. 26W (default model.ou_lookback)")
	analyzeCmd.Flags().Float64Var(&analyzeThreshold, "threshold", 0, "signal threshold (default model.signal_threshold)")
	analyzeCmd.Flags().StringVar(&analyzeFrom, "from", "", "first date to load")
	analyzeCmd.Flags().StringVar(&analyzeTo, "to", "", "last date to load")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := usecase.NewAnalyzeParams(analyzeX, analyzeY,
		firstNonEmpty(analyzeReg, cfg.Model.RegressionLookback),
		firstNonEmpty(analyzeOU, cfg.Model.OULookback),
		firstPositive(analyzeThreshold, cfg.Model.SignalThreshold),
		analyzeFrom, analyzeTo)
	if err != nil {
		return err
	}

	r, cleanup, err := di.InitializeRunner(cfg)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer cleanup()

	res, err := r.Analyzer.Analyze(cmd.Context(), p)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res.Summary())
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(vals ...float64) float64 {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
