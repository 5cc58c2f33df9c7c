package repository

import (
	"context"
	"errors"
	"math"
	"regexp"
	"testing"
	"time"

	"RelVal/internal/domain/models"
	domrepo "RelVal/internal/domain/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCHPriceStore_LoadCloses(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	from, to := day(2024, 1, 1), day(2024, 1, 31)
	rows := sqlmock.NewRows([]string{"d", "close"}).
		AddRow(day(2024, 1, 2), 10.0).
		AddRow(day(2024, 1, 3), 11.0)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT d, close FROM relval.daily_closes WHERE symbol = ? AND d >= ? AND d <= ? ORDER BY d ASC")).
		WithArgs("SPY", from, to).
		WillReturnRows(rows)

	s := NewCHPriceStore(db, "relval")
	got, err := s.LoadCloses(context.Background(), "SPY", from, to)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 11}, got.Values)
	assert.Equal(t, day(2024, 1, 3), got.Last())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCHPriceStore_OpenBoundsAndEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE symbol = ? ORDER BY d ASC")).
		WithArgs("NOPE").
		WillReturnRows(sqlmock.NewRows([]string{"d", "close"}))

	_, err = NewCHPriceStore(db, "relval").LoadCloses(context.Background(), "NOPE", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, domrepo.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCHPriceStore_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("connection reset")
	mock.ExpectQuery("SELECT d, close").WillReturnError(boom)

	_, err = NewCHPriceStore(db, "relval").LoadCloses(context.Background(), "SPY", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, boom)
}

func sampleAnalysis(t *testing.T) *models.PairAnalysis {
	t.Helper()
	times := []time.Time{day(2024, 1, 2), day(2024, 1, 3), day(2024, 1, 4)}
	res, err := models.NewTimeSeries(times, []float64{0.1, -0.2, 0.05})
	require.NoError(t, err)
	return &models.PairAnalysis{
		RunID:              "0b7d1c3e-4a59-4a57-9f0e-2f1a1d8c9b10",
		SymbolX:            "SPY",
		SymbolY:            "QQQ",
		CreatedAt:          time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC),
		RegressionLookback: "2Y",
		OULookback:         "26W",
		Threshold:          1.5,
		Regression:         models.RegressionResult{Beta: 1.3, Intercept: 0.2, Residuals: res},
		OU:                 models.OUParams{Theta: 12, Mu: 0.01, Sigma: 0.4},
		MeanReverting:      true,
		EquilibriumVol:     0.08,
		Signals:            res.WithValues([]float64{1, -2, 0.5}),
		Positions:          res.WithValues([]float64{0, 1, 1}),
		Metrics:            models.BacktestMetrics{CAGR: 0.1, SharpeRatio: 1.2, MaxDrawdown: -0.05},
	}
}

func TestCHResultStore_SaveAnalysis(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO relval.pair_analyses (run_id, created_at")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := NewCHResultStore(db, "relval")
	require.NoError(t, s.SaveAnalysis(context.Background(), sampleAnalysis(t)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCHResultStore_SaveAnalysisError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("table missing")
	mock.ExpectExec("INSERT INTO").WillReturnError(boom)

	err = NewCHResultStore(db, "relval").SaveAnalysis(context.Background(), sampleAnalysis(t))
	assert.ErrorIs(t, err, boom)
}

func TestCHResultStore_LatestAnalysis(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	cols := []string{"run_id", "created_at", "symbol_x", "symbol_y", "regression_lookback", "ou_lookback", "threshold",
		"n_obs", "window_start", "window_end", "beta", "intercept", "theta", "mu", "sigma", "eq_vol", "mean_reverting",
		"last_signal", "last_position", "cagr", "sharpe", "max_drawdown"}
	rows := sqlmock.NewRows(cols).AddRow(
		"run-1", created, "SPY", "QQQ", "2Y", "26W", 1.5,
		int64(3), day(2024, 1, 2), day(2024, 1, 4), 1.3, 0.2, 12.0, 0.01, 0.4, 0.08, true,
		0.5, 1.0, 0.1, 1.2, -0.05,
	)
	mock.ExpectQuery(regexp.QuoteMeta("FROM relval.pair_analyses WHERE symbol_x = ? AND symbol_y = ? ORDER BY created_at DESC LIMIT 1")).
		WithArgs("SPY", "QQQ").
		WillReturnRows(rows)

	got, err := NewCHResultStore(db, "relval").LatestAnalysis(context.Background(), "SPY", "QQQ")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 3, got.Observations)
	assert.Equal(t, models.Float(1.3), got.Beta)
	assert.True(t, got.MeanReverting)
	assert.Equal(t, 1.0, got.LastPosition)
	assert.InDelta(t, math.Ln2/12, float64(got.HalfLife), 1e-12)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCHResultStore_LatestAnalysisNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM relval.pair_analyses").WillReturnRows(sqlmock.NewRows([]string{"run_id"}))

	_, err = NewCHResultStore(db, "relval").LatestAnalysis(context.Background(), "SPY", "QQQ")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)
}

func TestSchemaStatements(t *testing.T) {
	stmts := SchemaStatements("relval")
	require.Len(t, stmts, 3)
	assert.Contains(t, stmts[0], "CREATE DATABASE IF NOT EXISTS relval")
	assert.Contains(t, stmts[1], "relval.daily_closes")
	assert.Contains(t, stmts[2], "relval.pair_analyses")
}

type fakeProducer struct {
	topic  string
	key    []byte
	value  interface{}
	err    error
	closed bool
}

func (f *fakeProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	f.topic, f.key, f.value = topic, key, value
	return f.err
}

func (f *fakeProducer) Close() error { f.closed = true; return nil }

func TestKafkaResultPublisher(t *testing.T) {
	fp := &fakeProducer{}
	p := NewKafkaResultPublisher(fp, "relval.pair-analyses")
	require.NoError(t, p.PublishAnalysis(context.Background(), sampleAnalysis(t)))

	assert.Equal(t, "relval.pair-analyses", fp.topic)
	assert.Equal(t, []byte("SPY:QQQ"), fp.key)
	sum, ok := fp.value.(models.AnalysisSummary)
	require.True(t, ok)
	assert.Equal(t, models.Float(0.5), sum.LastSignal)
	assert.Equal(t, 3, sum.Observations)

	require.NoError(t, p.Close())
	assert.True(t, fp.closed)

	fp.err = errors.New("broker down")
	assert.ErrorIs(t, p.PublishAnalysis(context.Background(), sampleAnalysis(t)), fp.err)
}
