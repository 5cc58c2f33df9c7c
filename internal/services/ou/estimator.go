// Package ou fits a discretized Ornstein-Uhlenbeck process to a spread series
// by regressing each value on its predecessor.
package ou

import (
	"fmt"
	"math"

	"RelVal/internal/domain/models"
	"RelVal/internal/services/lookback"
	"RelVal/internal/services/regression"

	"gonum.org/v1/gonum/stat"
)

const (
	stage = "ou"

	// MinPoints is the raw point count needed for two lagged pairs.
	MinPoints = 3

	TradingDaysPerYear = 252
	// DT is the sampling interval in years. It is applied regardless of the
	// actual spacing of the timestamps.
	DT = 1.0 / TradingDaysPerYear
)

// Fit slices residuals to the trailing window and estimates OU parameters.
func Fit(residuals models.TimeSeries, spec lookback.Spec) (models.OUParams, error) {
	s, err := lookback.Slice(residuals, spec, MinPoints, stage)
	if err != nil {
		return models.OUParams{}, err
	}
	return FitValues(s.Values)
}

// FitValues estimates OU parameters from an already windowed sample.
//
// The AR(1) regression X[t] = alpha + beta*X[t-1] maps to
// theta = -ln(beta)/DT, mu = alpha/(1-beta), sigma = std(eps)/sqrt(DT).
// beta <= 0 gives theta = NaN and beta == 1 gives a non-finite mu; neither is
// an error and beta is never clamped.
func FitValues(values []float64) (models.OUParams, error) {
	if len(values) < MinPoints {
		return models.OUParams{}, &models.InsufficientDataError{Stage: stage, Have: len(values), Need: MinPoints}
	}
	prev := values[:len(values)-1]
	next := values[1:]

	beta, alpha, err := regression.LeastSquares(prev, next)
	if err != nil {
		return models.OUParams{}, fmt.Errorf("%s: %w", stage, err)
	}

	eps := make([]float64, len(next))
	for i := range next {
		eps[i] = next[i] - (beta*prev[i] + alpha)
	}
	return fromAR(alpha, beta, eps), nil
}

func fromAR(alpha, beta float64, eps []float64) models.OUParams {
	theta := math.NaN()
	if beta > 0 {
		theta = -math.Log(beta) / DT
	}
	return models.OUParams{
		Theta: theta,
		Mu:    alpha / (1 - beta),
		Sigma: stat.PopStdDev(eps, nil) / math.Sqrt(DT),
	}
}

// IsMeanReverting reports whether theta is finite and strictly positive.
func IsMeanReverting(theta float64) bool {
	return !math.IsNaN(theta) && !math.IsInf(theta, 0) && theta > 0
}
