package usecase

import (
	"context"
	"errors"
	"testing"

	"RelVal/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairScanner_ScanKeepsOrderAndErrors(t *testing.T) {
	a := NewPairAnalyzer(testPrices(t), nil, nil, nil, nil)
	s := NewPairScanner(a, 3, nil)
	pairs := []models.PairRef{
		{X: "SPY", Y: "QQQ"},
		{X: "SPY", Y: "MISSING"},
		{X: "QQQ", Y: "SPY"},
		{X: "SPY", Y: "SHORT"},
	}

	out, err := s.Scan(context.Background(), pairs, defaultParams(t, "SPY", "QQQ"))
	require.NoError(t, err)
	require.Len(t, out, len(pairs))
	for i, r := range out {
		assert.Equal(t, pairs[i], r.Pair)
	}
	require.NoError(t, out[0].Err)
	assert.Equal(t, "SPY", out[0].Analysis.SymbolX)
	assert.Error(t, out[1].Err)
	require.NoError(t, out[2].Err)
	assert.Equal(t, "QQQ", out[2].Analysis.SymbolX)
	assert.ErrorIs(t, out[3].Err, models.ErrInsufficientData)

	item := out[1].Item()
	assert.Nil(t, item.Result)
	assert.NotEmpty(t, item.Error)
	item = out[0].Item()
	require.NotNil(t, item.Result)
	assert.Equal(t, "SPY", item.Result.SymbolX)
}

func TestPairScanner_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewPairScanner(NewPairAnalyzer(testPrices(t), nil, nil, nil, nil), 2, nil)
	_, err := s.Scan(ctx, []models.PairRef{{X: "SPY", Y: "QQQ"}}, defaultParams(t, "SPY", "QQQ"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPairScanner_Stream(t *testing.T) {
	s := NewPairScanner(NewPairAnalyzer(testPrices(t), nil, nil, nil, nil), 2, nil)
	pairs := []models.PairRef{{X: "SPY", Y: "QQQ"}, {X: "SPY", Y: "MISSING"}, {X: "QQQ", Y: "SPY"}}

	seen := map[string]bool{}
	for r := range s.Stream(context.Background(), pairs, defaultParams(t, "SPY", "QQQ")) {
		seen[models.PairKey(r.Pair.X, r.Pair.Y)] = r.Err == nil
	}
	assert.Equal(t, map[string]bool{"SPY:QQQ": true, "SPY:MISSING": false, "QQQ:SPY": true}, seen)
}

func TestFilterMeanReverting(t *testing.T) {
	rs := []ScanResult{
		{Pair: models.PairRef{X: "A", Y: "B"}, Analysis: &models.PairAnalysis{OU: models.OUParams{Theta: 5}}},
		{Pair: models.PairRef{X: "C", Y: "D"}, Analysis: &models.PairAnalysis{OU: models.OUParams{Theta: -1}}},
		{Pair: models.PairRef{X: "E", Y: "F"}, Err: errors.New("boom")},
	}
	got := FilterMeanReverting(rs)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Pair.X)
}

type recordingAnalyzer struct {
	got []AnalyzeParams
	err error
}

func (r *recordingAnalyzer) Analyze(_ context.Context, p AnalyzeParams) (*models.PairAnalysis, error) {
	r.got = append(r.got, p)
	if r.err != nil {
		return nil, r.err
	}
	return &models.PairAnalysis{SymbolX: p.SymbolX, SymbolY: p.SymbolY}, nil
}

func TestAnalysisRequestHandler(t *testing.T) {
	ra := &recordingAnalyzer{}
	h := NewAnalysisRequestHandler("relval.analysis-requests", ra, nil)
	assert.Equal(t, "relval.analysis-requests", h.Topic())
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, []byte(`{"symbol_x":"SPY","symbol_y":"QQQ","ou_lookback":"13W"}`)))
	require.Len(t, ra.got, 1)
	assert.Equal(t, "2Y", ra.got[0].Options.RegressionLookback.String())
	assert.Equal(t, "13W", ra.got[0].Options.OULookback.String())
	assert.Equal(t, 1.5, ra.got[0].Options.Threshold)

	// malformed and invalid requests are acknowledged without running
	require.NoError(t, h.Handle(ctx, []byte(`{not json`)))
	require.NoError(t, h.Handle(ctx, []byte(`{"symbol_x":"SPY"}`)))
	assert.Len(t, ra.got, 1)

	ra.err = models.ErrInsufficientData
	require.NoError(t, h.Handle(ctx, []byte(`{"symbol_x":"SPY","symbol_y":"QQQ"}`)))

	transient := errors.New("clickhouse timeout")
	ra.err = transient
	assert.ErrorIs(t, h.Handle(ctx, []byte(`{"symbol_x":"SPY","symbol_y":"QQQ"}`)), transient)
}
