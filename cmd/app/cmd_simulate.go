package main

import (
	"fmt"
	"math/rand/v2"
	"time"

	"RelVal/internal/domain/models"
	"RelVal/internal/repository"
	"RelVal/internal/services/ou"
	"RelVal/pkg/util"

	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Write a synthetic cointegrated pair as CSV price files",
	Long: `Simulate generates x as a Gaussian random walk and
y = beta*x + intercept + s, where s is an Euler-Maruyama OU path.
Both series are written to data.csv_dir as <SYMBOL>.csv on business days
ending at --end.

Examples:
  relval simulate --x SIMX --y SIMY --days 750 --theta 20 --sigma 1.5`,
	RunE: runSimulate,
}

var (
	simX         string
	simY         string
	simDays      int
	simEnd       string
	simStart     float64
	simBeta      float64
	simIntercept float64
	simTheta     float64
	simMu        float64
	simSigma     float64
	simSeed      uint64
)

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringVar(&simX, "x", "SIMX", "symbol for the random-walk leg")
	simulateCmd.Flags().StringVar(&simY, "y", "SIMY", "symbol for the cointegrated leg")
	simulateCmd.Flags().IntVar(&simDays, "days", 600, "number of business days")
	simulateCmd.Flags().StringVar(&simEnd, "end", "", "last date, YYYY-MM-DD (default today)")
	simulateCmd.Flags().Float64Var(&simStart, "start-price", 100, "first x price")
	simulateCmd.Flags().Float64Var(&simBeta, "beta", 1.3, "hedge ratio of y on x")
	simulateCmd.Flags().Float64Var(&simIntercept, "intercept", 2, "intercept of y on x")
	simulateCmd.Flags().Float64Var(&simTheta, "theta", 25, "spread mean-reversion speed (per year)")
	simulateCmd.Flags().Float64Var(&simMu, "mu", 0, "spread long-run mean")
	simulateCmd.Flags().Float64Var(&simSigma, "sigma", 1.5, "spread volatility (per sqrt year)")
	simulateCmd.Flags().Uint64Var(&simSeed, "seed", 42, "random seed")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if simDays < 2 {
		return fmt.Errorf("--days must be at least 2")
	}
	if simX == "" || simY == "" || simX == simY {
		return fmt.Errorf("--x and --y must be distinct non-empty symbols")
	}
	end := time.Now().UTC().Truncate(24 * time.Hour)
	if simEnd != "" {
		var err error
		if end, err = util.ParseDate(simEnd); err != nil {
			return fmt.Errorf("--end: %w", err)
		}
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	x, y, err := simulatePair(end, rand.New(rand.NewPCG(simSeed, 1)))
	if err != nil {
		return err
	}

	store := repository.NewCSVPriceStore(cfg.Data.CSVDir)
	if err := store.SaveCloses(cmd.Context(), simX, x); err != nil {
		return err
	}
	if err := store.SaveCloses(cmd.Context(), simY, y); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d closes for %s and %s to %s (%s .. %s)\n",
		simDays, simX, simY, cfg.Data.CSVDir,
		x.First().Format("2006-01-02"), x.Last().Format("2006-01-02"))
	return nil
}

func simulatePair(end time.Time, rng *rand.Rand) (models.TimeSeries, models.TimeSeries, error) {
	spread, err := ou.Simulate(models.OUParams{Theta: simTheta, Mu: simMu, Sigma: simSigma}, simMu, ou.DT, simDays, rng)
	if err != nil {
		return models.TimeSeries{}, models.TimeSeries{}, err
	}
	xs := make([]float64, simDays)
	ys := make([]float64, simDays)
	level := simStart
	for i := range xs {
		level += rng.NormFloat64()
		xs[i] = level
		ys[i] = simBeta*level + simIntercept + spread[i]
	}
	times := businessDays(end, simDays)
	x, err := models.NewTimeSeries(times, xs)
	if err != nil {
		return models.TimeSeries{}, models.TimeSeries{}, err
	}
	y, err := models.NewTimeSeries(append([]time.Time(nil), times...), ys)
	if err != nil {
		return models.TimeSeries{}, models.TimeSeries{}, err
	}
	return x, y, nil
}

// businessDays returns n weekdays ending at or before end, oldest first.
func businessDays(end time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	d := end
	for i := n - 1; i >= 0; d = d.AddDate(0, 0, -1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		out[i] = d
		i--
	}
	return out
}
