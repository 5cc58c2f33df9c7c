// Package backtest simulates a threshold strategy on a signal series and
// reports CAGR, Sharpe ratio and maximum drawdown. Transaction costs and
// slippage are not modeled.
package backtest

import (
	"math"

	"RelVal/internal/domain/models"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	stage          = "backtest"
	MinPoints      = 2
	PeriodsPerYear = 252
)

// Result carries the summary metrics with the series they were derived from.
type Result struct {
	Metrics         models.BacktestMetrics
	Positions       models.TimeSeries
	StrategyReturns models.TimeSeries
	Equity          models.TimeSeries
}

// Positions maps signals to -1 (signal above threshold), +1 (below -threshold)
// or, inside the band, the previous position. The first position defaults to 0.
func Positions(signals []float64, threshold float64) []float64 {
	out := make([]float64, len(signals))
	prev := 0.0
	for i, s := range signals {
		switch {
		case s > threshold:
			prev = -1
		case s < -threshold:
			prev = 1
		}
		out[i] = prev
	}
	return out
}

// Returns computes simple period returns; the first element is 0.
func Returns(prices []float64) []float64 {
	out := make([]float64, len(prices))
	for i := 1; i < len(prices); i++ {
		out[i] = (prices[i] - prices[i-1]) / prices[i-1]
	}
	return out
}

// StrategyReturns applies the position held at t-1 to the return at t.
// Undefined products (NaN) count as 0. positions and returns share an index.
func StrategyReturns(positions, returns []float64) []float64 {
	out := make([]float64, len(returns))
	for t := 1; t < len(returns); t++ {
		v := positions[t-1] * returns[t]
		if math.IsNaN(v) {
			v = 0
		}
		out[t] = v
	}
	return out
}

// Equity is the compounded growth of one unit: prod(1 + r) up to each period.
func Equity(strategyReturns []float64) []float64 {
	growth := make([]float64, len(strategyReturns))
	for i, r := range strategyReturns {
		growth[i] = 1 + r
	}
	return floats.CumProd(make([]float64, len(growth)), growth)
}

// MaxDrawdown is the most negative (equity - running peak) / running peak.
func MaxDrawdown(equity []float64) float64 {
	if len(equity) == 0 {
		return 0
	}
	peak := math.Inf(-1)
	dd := make([]float64, len(equity))
	for i, v := range equity {
		peak = math.Max(peak, v)
		dd[i] = (v - peak) / peak
	}
	return floats.Min(dd)
}

// Metrics summarizes a strategy return series. A zero standard deviation
// leaves the Sharpe ratio non-finite.
func Metrics(strategyReturns []float64) models.BacktestMetrics {
	mean, std := stat.MeanStdDev(strategyReturns, nil)
	return models.BacktestMetrics{
		CAGR:        math.Pow(1+mean, PeriodsPerYear) - 1,
		SharpeRatio: mean / std * math.Sqrt(PeriodsPerYear),
		MaxDrawdown: MaxDrawdown(Equity(strategyReturns)),
	}
}

// Run backtests signals against prices. Both series must share the same index.
func Run(prices, signals models.TimeSeries, threshold float64) (Result, error) {
	if err := models.CheckAligned(stage, prices, signals); err != nil {
		return Result{}, err
	}
	if prices.Len() < MinPoints {
		return Result{}, &models.InsufficientDataError{Stage: stage, Have: prices.Len(), Need: MinPoints}
	}

	pos := Positions(signals.Values, threshold)
	strat := StrategyReturns(pos, Returns(prices.Values))
	return Result{
		Metrics:         Metrics(strat),
		Positions:       prices.WithValues(pos),
		StrategyReturns: prices.WithValues(strat),
		Equity:          prices.WithValues(Equity(strat)),
	}, nil
}
