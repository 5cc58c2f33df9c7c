// Package pipeline chains the pair stages: hedge-ratio regression, OU fit on
// the residual spread, z-score signals and a backtest on the residuals.
// Run is pure: it does no I/O and holds no state between calls.
package pipeline

import (
	"RelVal/internal/domain/models"
	"RelVal/internal/services/backtest"
	"RelVal/internal/services/lookback"
	"RelVal/internal/services/ou"
	"RelVal/internal/services/regression"
	"RelVal/internal/services/signal"
)

const DefaultThreshold = 1.5

type Options struct {
	RegressionLookback lookback.Spec
	OULookback         lookback.Spec
	Threshold          float64
}

func DefaultOptions() Options {
	return Options{
		RegressionLookback: lookback.MustParse(lookback.DefaultRegression),
		OULookback:         lookback.MustParse(lookback.DefaultOU),
		Threshold:          DefaultThreshold,
	}
}

// ParseOptions builds Options from their textual form; empty strings and a
// zero threshold take the defaults.
func ParseOptions(regressionLookback, ouLookback string, threshold float64) (Options, error) {
	var o Options
	if regressionLookback != "" {
		spec, err := lookback.Parse(regressionLookback)
		if err != nil {
			return Options{}, err
		}
		o.RegressionLookback = spec
	}
	if ouLookback != "" {
		spec, err := lookback.Parse(ouLookback)
		if err != nil {
			return Options{}, err
		}
		o.OULookback = spec
	}
	o.Threshold = threshold
	return o.withDefaults(), nil
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.RegressionLookback.IsZero() {
		o.RegressionLookback = d.RegressionLookback
	}
	if o.OULookback.IsZero() {
		o.OULookback = d.OULookback
	}
	if o.Threshold == 0 {
		o.Threshold = d.Threshold
	}
	return o
}

// Run analyzes y against x. The two inputs must already be synchronized.
// Structural failures (too few points, misaligned indexes) are returned as
// errors; a fit that is not mean-reverting still completes with flat signals.
func Run(x, y models.TimeSeries, opts Options) (*models.PairAnalysis, error) {
	opts = opts.withDefaults()

	reg, err := regression.Fit(x, y, opts.RegressionLookback)
	if err != nil {
		return nil, err
	}

	params, err := ou.Fit(reg.Residuals, opts.OULookback)
	if err != nil {
		return nil, err
	}

	eqVol := signal.EquilibriumVolatility(params.Theta, params.Sigma)
	signals := signal.GenerateSeries(reg.Residuals, params.Mu, eqVol)

	bt, err := backtest.Run(reg.Residuals, signals, opts.Threshold)
	if err != nil {
		return nil, err
	}

	return &models.PairAnalysis{
		RegressionLookback: opts.RegressionLookback.String(),
		OULookback:         opts.OULookback.String(),
		Threshold:          opts.Threshold,
		Regression:         reg,
		OU:                 params,
		MeanReverting:      ou.IsMeanReverting(params.Theta),
		EquilibriumVol:     eqVol,
		Signals:            signals,
		Positions:          bt.Positions,
		StrategyReturns:    bt.StrategyReturns,
		Equity:             bt.Equity,
		Metrics:            bt.Metrics,
	}, nil
}
