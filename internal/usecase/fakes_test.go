package usecase

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"RelVal/internal/domain/models"
	domrepo "RelVal/internal/domain/repository"
	"RelVal/internal/services/ou"

	"github.com/stretchr/testify/require"
)

type memPrices struct {
	series map[string]models.TimeSeries
}

func (m *memPrices) LoadCloses(ctx context.Context, symbol string, from, to time.Time) (models.TimeSeries, error) {
	if err := ctx.Err(); err != nil {
		return models.TimeSeries{}, err
	}
	s, ok := m.series[symbol]
	if !ok {
		return models.TimeSeries{}, fmt.Errorf("%s: %w", symbol, domrepo.ErrNotFound)
	}
	return s, nil
}

type fakeMetrics struct {
	mu      sync.Mutex
	runs    map[string]int
	errs    map[string]int
	latency map[string]int
	theta   map[string]float64
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{runs: map[string]int{}, errs: map[string]int{}, latency: map[string]int{}, theta: map[string]float64{}}
}

func (f *fakeMetrics) RecordRun(result string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs[result]++
}

func (f *fakeMetrics) RecordError(kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[kind]++
}

func (f *fakeMetrics) RecordLatency(op string, _ float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latency[op]++
}

func (f *fakeMetrics) RecordPairParams(pair string, theta, _ float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.theta[pair] = theta
}

type fakeStore struct {
	saved []*models.PairAnalysis
	err   error
}

func (f *fakeStore) SaveAnalysis(_ context.Context, a *models.PairAnalysis) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, a)
	return nil
}

func (f *fakeStore) LatestAnalysis(context.Context, string, string) (*models.AnalysisSummary, error) {
	return nil, domrepo.ErrNotFound
}

type fakePublisher struct {
	published []string
	err       error
}

func (f *fakePublisher) PublishAnalysis(_ context.Context, a *models.PairAnalysis) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, models.PairKey(a.SymbolX, a.SymbolY))
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func businessDays(end time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	for d := end; len(out) < n; d = d.AddDate(0, 0, -1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		out = append(out, d)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// pairPrices returns x as a random walk and y = 1.3*x + 2 + OU spread.
func pairPrices(t *testing.T, n int, seed uint64) (models.TimeSeries, models.TimeSeries) {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, 1))
	spread, err := ou.Simulate(models.OUParams{Theta: 25, Mu: 0, Sigma: 1.5}, 0, ou.DT, n, rng)
	require.NoError(t, err)
	xs := make([]float64, n)
	ys := make([]float64, n)
	level := 100.0
	for i := range xs {
		level += rng.NormFloat64()
		xs[i] = level
		ys[i] = 1.3*xs[i] + 2 + spread[i]
	}
	times := businessDays(time.Date(2025, 10, 28, 0, 0, 0, 0, time.UTC), n)
	x, err := models.NewTimeSeries(times, xs)
	require.NoError(t, err)
	y, err := models.NewTimeSeries(append([]time.Time(nil), times...), ys)
	require.NoError(t, err)
	return x, y
}

func testPrices(t *testing.T) *memPrices {
	t.Helper()
	x, y := pairPrices(t, 600, 42)
	short, _ := pairPrices(t, 2, 7)
	return &memPrices{series: map[string]models.TimeSeries{
		"SPY":   x,
		"QQQ":   y,
		"SHORT": short,
	}}
}
