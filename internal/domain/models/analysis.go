package models

import (
	"math"
	"time"
)

// RegressionResult is the OLS fit of y on x with an intercept.
type RegressionResult struct {
	Beta      float64
	Intercept float64
	Residuals TimeSeries // y - (beta*x + intercept) on the sliced index
}

// OUParams are the continuous-time Ornstein-Uhlenbeck parameters of a spread.
// Theta and Mu may be NaN or infinite when the AR(1) fit is degenerate.
type OUParams struct {
	Theta float64 // speed of mean reversion, per year
	Mu    float64 // long-run mean
	Sigma float64 // diffusion, annualized
}

// HalfLife returns ln(2)/theta in years, NaN when theta is not finite and positive.
func (p OUParams) HalfLife() float64 {
	if math.IsNaN(p.Theta) || math.IsInf(p.Theta, 0) || p.Theta <= 0 {
		return math.NaN()
	}
	return math.Ln2 / p.Theta
}

type BacktestMetrics struct {
	CAGR        float64
	SharpeRatio float64
	MaxDrawdown float64
}

// PairAnalysis collects every stage output of one pipeline run for a pair.
type PairAnalysis struct {
	RunID     string
	SymbolX   string
	SymbolY   string
	CreatedAt time.Time

	RegressionLookback string
	OULookback         string
	Threshold          float64

	Regression     RegressionResult
	OU             OUParams
	MeanReverting  bool
	EquilibriumVol float64

	Signals         TimeSeries
	Positions       TimeSeries
	StrategyReturns TimeSeries
	Equity          TimeSeries
	Metrics         BacktestMetrics
}

// PairKey is the canonical "X:Y" identifier used for cache keys, metrics labels and message keys.
func PairKey(x, y string) string { return x + ":" + y }

// AnalysisSummary is the flat, serializable view of a PairAnalysis.
type AnalysisSummary struct {
	RunID          string    `json:"run_id"`
	SymbolX        string    `json:"symbol_x"`
	SymbolY        string    `json:"symbol_y"`
	CreatedAt      time.Time `json:"created_at"`
	Observations   int       `json:"observations"`
	WindowStart    time.Time `json:"window_start"`
	WindowEnd      time.Time `json:"window_end"`
	Beta           Float     `json:"beta"`
	Intercept      Float     `json:"intercept"`
	Theta          Float     `json:"theta"`
	Mu             Float     `json:"mu"`
	Sigma          Float     `json:"sigma"`
	EquilibriumVol Float     `json:"eq_vol"`
	HalfLife       Float     `json:"half_life"`
	MeanReverting  bool      `json:"mean_reverting"`
	Threshold      float64   `json:"threshold"`
	LastSignal     Float     `json:"last_signal"`
	LastPosition   float64   `json:"last_position"`
	CAGR           Float     `json:"cagr"`
	SharpeRatio    Float     `json:"sharpe_ratio"`
	MaxDrawdown    Float     `json:"max_drawdown"`
}

func (a *PairAnalysis) Summary() AnalysisSummary {
	s := AnalysisSummary{
		RunID:          a.RunID,
		SymbolX:        a.SymbolX,
		SymbolY:        a.SymbolY,
		CreatedAt:      a.CreatedAt,
		Observations:   a.Regression.Residuals.Len(),
		WindowStart:    a.Regression.Residuals.First(),
		WindowEnd:      a.Regression.Residuals.Last(),
		Beta:           Float(a.Regression.Beta),
		Intercept:      Float(a.Regression.Intercept),
		Theta:          Float(a.OU.Theta),
		Mu:             Float(a.OU.Mu),
		Sigma:          Float(a.OU.Sigma),
		EquilibriumVol: Float(a.EquilibriumVol),
		HalfLife:       Float(a.OU.HalfLife()),
		MeanReverting:  a.MeanReverting,
		Threshold:      a.Threshold,
		CAGR:           Float(a.Metrics.CAGR),
		SharpeRatio:    Float(a.Metrics.SharpeRatio),
		MaxDrawdown:    Float(a.Metrics.MaxDrawdown),
		LastSignal:     Float(math.NaN()),
	}
	if v, ok := a.Signals.LastValue(); ok {
		s.LastSignal = Float(v)
	}
	if v, ok := a.Positions.LastValue(); ok {
		s.LastPosition = v
	}
	return s
}
