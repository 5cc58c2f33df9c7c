package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"RelVal/internal/di"
	"RelVal/internal/domain/models"
	"RelVal/internal/usecase"
	"RelVal/pkg/config"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Analyze many pairs concurrently",
	Long: `Scan runs the full pipeline for every pair, scan.workers at a time.
Pairs that fail structurally (missing or too short history) are reported
and do not stop the others.

Examples:
  relval scan --pairs SPY:QQQ,GLD:GDX
  relval scan --only-mean-reverting --format json`,
	RunE: runScan,
}

var (
	scanPairs             string
	scanReg               string
	scanOU                string
	scanThreshold         float64
	scanOnlyMeanReverting bool
	scanFormat            string
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanPairs, "pairs", "", "comma-separated X:Y pairs (default scan.pairs)")
	scanCmd.Flags().StringVar(&scanReg, "regression-lookback", "", "regression window (default model.regression_lookback)")
	scanCmd.Flags().StringVar(&scanOU, "ou-lookback", "", "OU window (default model.ou_lookback)")
	scanCmd.Flags().Float64Var(&scanThreshold, "threshold", 0, "signal threshold (default model.signal_threshold)")
	scanCmd.Flags().BoolVar(&scanOnlyMeanReverting, "only-mean-reverting", false, "drop pairs without a finite positive theta")
	scanCmd.Flags().StringVar(&scanFormat, "format", "table", "output format (table|json)")
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanFormat != "table" && scanFormat != "json" {
		return fmt.Errorf("unknown format %q", scanFormat)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pairs, err := scanPairList(cfg)
	if err != nil {
		return err
	}
	base, err := usecase.NewScanParams(
		firstNonEmpty(scanReg, cfg.Model.RegressionLookback),
		firstNonEmpty(scanOU, cfg.Model.OULookback),
		firstPositive(scanThreshold, cfg.Model.SignalThreshold))
	if err != nil {
		return err
	}

	r, cleanup, err := di.InitializeRunner(cfg)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer cleanup()

	results, err := r.Scanner.Scan(cmd.Context(), pairs, base)
	if err != nil {
		return err
	}
	if scanOnlyMeanReverting {
		results = usecase.FilterMeanReverting(results)
	}

	items := make([]models.ScanItem, 0, len(results))
	for _, res := range results {
		items = append(items, res.Item())
	}
	if scanFormat == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	return writeScanTable(cmd.OutOrStdout(), items)
}

func scanPairList(cfg *config.Config) ([]models.PairRef, error) {
	if scanPairs != "" {
		return usecase.ParsePairs(scanPairs)
	}
	if len(cfg.Scan.Pairs) == 0 {
		return nil, fmt.Errorf("no pairs: pass --pairs or set scan.pairs")
	}
	out := make([]models.PairRef, 0, len(cfg.Scan.Pairs))
	for _, p := range cfg.Scan.Pairs {
		out = append(out, models.PairRef{X: p.X, Y: p.Y})
	}
	return out, nil
}

func writeScanTable(w io.Writer, items []models.ScanItem) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PAIR\tBETA\tTHETA\tHALF-LIFE\tEQ-VOL\tSIGNAL\tCAGR\tSHARPE\tMAX-DD\tSTATUS")
	for _, it := range items {
		pair := models.PairKey(it.SymbolX, it.SymbolY)
		if it.Result == nil {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t-\t-\t-\t-\t%s\n", pair, it.Error)
			continue
		}
		s := it.Result
		status := "ok"
		if !s.MeanReverting {
			status = "not mean-reverting"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n", pair,
			num(s.Beta), num(s.Theta), num(s.HalfLife), num(s.EquilibriumVol),
			num(s.LastSignal), pct(s.CAGR), num(s.SharpeRatio), pct(s.MaxDrawdown), status)
	}
	return tw.Flush()
}

func num(f models.Float) string {
	if !f.Finite() {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", float64(f))
}

func pct(f models.Float) string {
	if !f.Finite() {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", float64(f)*100)
}
