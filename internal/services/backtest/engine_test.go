package backtest

import (
	"errors"
	"math"
	"testing"
	"time"

	"RelVal/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func daily(vals []float64) models.TimeSeries {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	times := make([]time.Time, len(vals))
	for i := range vals {
		times[i] = start.AddDate(0, 0, i)
	}
	ts, _ := models.NewTimeSeries(times, vals)
	return ts
}

func TestPositionsForwardFill(t *testing.T) {
	assert.Equal(t, []float64{0, -1, -1, -1, 1}, Positions([]float64{0, 2, 0, 0, -2}, 1.5))
}

func TestPositionsBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		signals []float64
		want    []float64
	}{
		{"empty", []float64{}, []float64{}},
		{"never crosses", []float64{1, -1, 1.5, -1.5}, []float64{0, 0, 0, 0}},
		{"long then hold", []float64{-1.6, 0, 1.4}, []float64{1, 1, 1}},
		{"flip", []float64{1.6, -1.6, 1.6}, []float64{-1, 1, -1}},
		{"nan carries", []float64{-3, math.NaN(), 0}, []float64{1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Positions(tt.signals, 1.5))
		})
	}
}

func TestReturns(t *testing.T) {
	assert.InDeltaSlice(t, []float64{0, 0.1, -0.1}, Returns([]float64{100, 110, 99}), 1e-12)
	assert.Equal(t, []float64{0}, Returns([]float64{42}))
}

func TestStrategyReturnsLagged(t *testing.T) {
	got := StrategyReturns([]float64{1, -1, 0}, []float64{0, 0.1, 0.2})
	assert.InDeltaSlice(t, []float64{0, 0.1, -0.2}, got, 1e-12)

	got = StrategyReturns([]float64{0, 1, 1}, []float64{0, math.Inf(1), 0.1})
	assert.Equal(t, 0.0, got[1])
	assert.InDelta(t, 0.1, got[2], 1e-12)
}

func TestNoLookAhead(t *testing.T) {
	prices := []float64{100, 101, 99, 102, 98, 103, 97, 104}
	signals := []float64{0, 2, -2, 0, 2, 0, -2, 2}
	base := StrategyReturns(Positions(signals, 1.5), Returns(prices))

	for k := range signals {
		changed := append([]float64(nil), signals...)
		changed[k] = -changed[k] + 5
		got := StrategyReturns(Positions(changed, 1.5), Returns(prices))
		assert.Equal(t, base[:k+1], got[:k+1], "signal %d leaked into earlier returns", k)
	}
}

func TestMetrics(t *testing.T) {
	sr := []float64{0, 0.01, -0.02, 0.03}
	m := Metrics(sr)

	mean := 0.005
	std := math.Sqrt((0.005*0.005*2 + 0.025*0.025*2) / 3)
	assert.InDelta(t, math.Pow(1+mean, 252)-1, m.CAGR, 1e-12)
	assert.InDelta(t, mean/std*math.Sqrt(252), m.SharpeRatio, 1e-9)
	assert.InDelta(t, -0.02, m.MaxDrawdown, 1e-12)
}

func TestMetricsZeroVolatility(t *testing.T) {
	m := Metrics([]float64{0, 0, 0, 0})
	assert.True(t, math.IsNaN(m.SharpeRatio))
	assert.Equal(t, 0.0, m.CAGR)
	assert.Equal(t, 0.0, m.MaxDrawdown)
}

func TestMaxDrawdownBounds(t *testing.T) {
	sr := make([]float64, 500)
	for i := range sr {
		sr[i] = 0.4 * math.Sin(float64(i)*0.37) * math.Cos(float64(i)*1.1)
	}
	dd := MaxDrawdown(Equity(sr))
	assert.LessOrEqual(t, dd, 0.0)
	assert.GreaterOrEqual(t, dd, -1.0)

	assert.Equal(t, 0.0, MaxDrawdown(Equity([]float64{0, 0.01, 0.02})))
}

func TestEquity(t *testing.T) {
	assert.InDeltaSlice(t, []float64{1, 1.1, 0.99}, Equity([]float64{0, 0.1, -0.1}), 1e-12)
}

func TestRun(t *testing.T) {
	prices := daily([]float64{100, 101, 99, 102, 98, 103})
	signals := daily([]float64{0, 2, 0, -2, 0, 0})

	res, err := Run(prices, signals, 1.5)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, -1, -1, 1, 1, 1}, res.Positions.Values)
	assert.True(t, res.StrategyReturns.SameIndex(prices))
	assert.True(t, res.Equity.SameIndex(prices))

	want := StrategyReturns(res.Positions.Values, Returns(prices.Values))
	assert.Equal(t, want, res.StrategyReturns.Values)
	assert.Equal(t, Metrics(want), res.Metrics)
}

func TestRunErrors(t *testing.T) {
	_, err := Run(daily([]float64{1, 2, 3}), daily([]float64{1, 2}), 1.5)
	assert.True(t, errors.Is(err, models.ErrAlignment))

	_, err = Run(daily([]float64{1}), daily([]float64{0}), 1.5)
	assert.True(t, errors.Is(err, models.ErrInsufficientData))
}

func TestRunDeterministic(t *testing.T) {
	prices := daily([]float64{0.5, -0.2, 0.3, 0.1, -0.4, 0.6, 0.2})
	signals := daily([]float64{-3, 1, 2, -2, 0.5, 1.7, -1.8})
	a, err := Run(prices, signals, 1.5)
	require.NoError(t, err)
	b, err := Run(prices, signals, 1.5)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
