package ou

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"RelVal/internal/domain/models"
	"RelVal/internal/services/lookback"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func daily(vals []float64) models.TimeSeries {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	times := make([]time.Time, len(vals))
	for i := range vals {
		times[i] = start.AddDate(0, 0, i)
	}
	ts, _ := models.NewTimeSeries(times, vals)
	return ts
}

func TestFitRecoversSimulatedParameters(t *testing.T) {
	truth := models.OUParams{Theta: 20, Mu: 0.5, Sigma: 0.2}
	path, err := Simulate(truth, 0.5, DT, 20000, rand.New(rand.NewPCG(7, 11)))
	require.NoError(t, err)

	got, err := FitValues(path)
	require.NoError(t, err)
	assert.InDelta(t, truth.Theta, got.Theta, 4)
	assert.InDelta(t, truth.Mu, got.Mu, 0.02)
	assert.InEpsilon(t, truth.Sigma, got.Sigma, 0.05)
	assert.True(t, IsMeanReverting(got.Theta))
}

func TestFitUsesTrailingWindow(t *testing.T) {
	truth := models.OUParams{Theta: 30, Mu: -1, Sigma: 0.3}
	path, err := Simulate(truth, -1, DT, 400, rand.New(rand.NewPCG(3, 4)))
	require.NoError(t, err)
	// a wild prefix outside the window must not leak into the estimate
	prefix := make([]float64, 100)
	for i := range prefix {
		prefix[i] = float64(i * i)
	}
	series := daily(append(prefix, path...))

	windowed, err := Fit(series, lookback.MustParse("399D"))
	require.NoError(t, err)
	direct, err := FitValues(path)
	require.NoError(t, err)
	assert.Equal(t, direct, windowed)
}

func TestFitNegativeBetaGivesNaNTheta(t *testing.T) {
	p, err := FitValues([]float64{1, -1, 1, -1, 1, -1})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(p.Theta))
	assert.False(t, IsMeanReverting(p.Theta))
}

func TestFromARDegenerateBeta(t *testing.T) {
	eps := []float64{0.1, -0.1, 0.05}

	p := fromAR(0.1, 1, eps)
	assert.True(t, math.IsInf(p.Mu, 1))
	assert.False(t, IsMeanReverting(p.Theta))

	p = fromAR(0, 1, eps)
	assert.True(t, math.IsNaN(p.Mu))

	p = fromAR(0.2, 0, eps)
	assert.True(t, math.IsNaN(p.Theta))
	assert.InDelta(t, 0.2, p.Mu, 1e-12)

	p = fromAR(0, math.Exp(-5*DT), eps)
	assert.InDelta(t, 5, p.Theta, 1e-9)
	assert.InDelta(t, 0.08498365855987976/math.Sqrt(DT), p.Sigma, 1e-9)
}

func TestFitInsufficientData(t *testing.T) {
	_, err := FitValues([]float64{1, 2})
	assert.True(t, errors.Is(err, models.ErrInsufficientData))

	// window keeps only the last two points
	_, err = Fit(daily([]float64{1, 2, 3, 4, 5}), lookback.MustParse("1D"))
	var ide *models.InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, 2, ide.Have)
	assert.Equal(t, MinPoints, ide.Need)
}

func TestFitDeterministic(t *testing.T) {
	vals := []float64{0.3, 0.25, 0.22, 0.15, 0.16, 0.1, 0.05, 0.07, 0.02}
	a, err := FitValues(vals)
	require.NoError(t, err)
	b, err := FitValues(vals)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestIsMeanReverting(t *testing.T) {
	tests := []struct {
		theta float64
		want  bool
	}{
		{math.NaN(), false},
		{math.Inf(1), false},
		{math.Inf(-1), false},
		{0, false},
		{math.Copysign(0, -1), false},
		{-2, false},
		{1e-9, true},
		{3, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsMeanReverting(tt.theta), "theta=%v", tt.theta)
	}
}

func TestSimulate(t *testing.T) {
	p := models.OUParams{Theta: 4, Mu: 1, Sigma: 0.5}
	a, err := Simulate(p, 0, DT, 50, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	b, err := Simulate(p, 0, DT, 50, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 50)
	assert.Equal(t, 0.0, a[0])

	// without noise the path decays geometrically toward mu
	quiet, err := Simulate(models.OUParams{Theta: 10, Mu: 2, Sigma: 0}, 0, 0.1, 3, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 2, 2}, quiet, 1e-12)

	_, err = Simulate(p, 0, DT, 0, rand.New(rand.NewPCG(1, 2)))
	assert.Error(t, err)
	_, err = Simulate(p, 0, 0, 10, rand.New(rand.NewPCG(1, 2)))
	assert.Error(t, err)
	_, err = Simulate(p, 0, DT, 10, nil)
	assert.Error(t, err)
}
