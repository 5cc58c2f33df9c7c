// Package signal turns spread residuals into mean-reversion z-scores.
package signal

import (
	"math"

	"RelVal/internal/domain/models"
)

// EquilibriumVolatility is the stationary standard deviation sigma/sqrt(2*theta)
// of an OU process, or +Inf when theta is not positive (NaN included).
func EquilibriumVolatility(theta, sigma float64) float64 {
	if !(theta > 0) {
		return math.Inf(1)
	}
	return sigma / math.Sqrt(2*theta)
}

// Generate returns -(residual-mu)/eqVol: positive when the spread sits below
// its mean. A zero or infinite eqVol yields 0.
func Generate(residual, mu, eqVol float64) float64 {
	if eqVol == 0 || math.IsInf(eqVol, 0) {
		return 0
	}
	return -(residual - mu) / eqVol
}

// GenerateSeries applies Generate to every residual, keeping the index.
func GenerateSeries(residuals models.TimeSeries, mu, eqVol float64) models.TimeSeries {
	out := make([]float64, residuals.Len())
	for i, r := range residuals.Values {
		out[i] = Generate(r, mu, eqVol)
	}
	return residuals.WithValues(out)
}
