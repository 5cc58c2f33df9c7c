// Package regression estimates the hedge ratio between two price series by
// ordinary least squares with an intercept.
package regression

import (
	"fmt"
	"math"

	"RelVal/internal/domain/models"
	"RelVal/internal/services/lookback"

	"gonum.org/v1/gonum/mat"
)

const (
	stage     = "regression"
	MinPoints = 2

	machEps = 0x1p-52
)

// LeastSquares solves y = slope*x + intercept through an SVD of the design
// matrix [x, 1]. Singular values below eps*max(n, 2) relative to the largest
// are treated as zero, so a rank-deficient design (constant x) yields the
// minimum-norm solution instead of an error. Non-finite input yields NaN.
func LeastSquares(x, y []float64) (slope, intercept float64, err error) {
	if len(x) != len(y) {
		return 0, 0, fmt.Errorf("least squares: x has %d values, y has %d", len(x), len(y))
	}
	n := len(x)
	if n == 0 {
		return 0, 0, fmt.Errorf("least squares: empty input")
	}
	for i := 0; i < n; i++ {
		if !finite(x[i]) || !finite(y[i]) {
			return math.NaN(), math.NaN(), nil
		}
	}

	a := mat.NewDense(n, 2, nil)
	for i, v := range x {
		a.Set(i, 0, v)
		a.Set(i, 1, 1)
	}
	b := mat.NewVecDense(n, append([]float64(nil), y...))

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return math.NaN(), math.NaN(), nil
	}
	rank := svd.Rank(machEps * float64(max(n, 2)))
	if rank == 0 {
		return 0, 0, nil
	}

	var sol mat.VecDense
	svd.SolveVecTo(&sol, b, rank)
	return sol.AtVec(0), sol.AtVec(1), nil
}

// Fit slices x and y to the trailing window and regresses y on x.
// Both slices must share an identical index.
func Fit(x, y models.TimeSeries, spec lookback.Spec) (models.RegressionResult, error) {
	xs, err := lookback.Slice(x, spec, MinPoints, stage)
	if err != nil {
		return models.RegressionResult{}, err
	}
	ys, err := lookback.Slice(y, spec, MinPoints, stage)
	if err != nil {
		return models.RegressionResult{}, err
	}
	if err := models.CheckAligned(stage, xs, ys); err != nil {
		return models.RegressionResult{}, err
	}

	beta, intercept, err := LeastSquares(xs.Values, ys.Values)
	if err != nil {
		return models.RegressionResult{}, fmt.Errorf("%s: %w", stage, err)
	}

	resid := make([]float64, ys.Len())
	for i := range resid {
		resid[i] = ys.Values[i] - (beta*xs.Values[i] + intercept)
	}
	return models.RegressionResult{
		Beta:      beta,
		Intercept: intercept,
		Residuals: ys.WithValues(resid),
	}, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
