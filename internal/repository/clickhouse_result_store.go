package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"RelVal/internal/domain/models"
	domrepo "RelVal/internal/domain/repository"
	applogger "RelVal/pkg/logger"
)

const analysisColumns = `run_id, created_at, symbol_x, symbol_y, regression_lookback, ou_lookback, threshold,
    n_obs, window_start, window_end, beta, intercept, theta, mu, sigma, eq_vol, mean_reverting,
    last_signal, last_position, cagr, sharpe, max_drawdown`

// CHResultStore persists analysis summaries into pair_analyses.
type CHResultStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHResultStore(db *sql.DB, database string) *CHResultStore {
	return &CHResultStore{db: db, table: database + "." + analysesTable}
}

// SetLogger injects a structured logger.
func (s *CHResultStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHResultStore) SaveAnalysis(ctx context.Context, a *models.PairAnalysis) error {
	sum := a.Summary()
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table, analysisColumns)
	_, err := s.db.ExecContext(ctx, q,
		sum.RunID,
		sum.CreatedAt,
		sum.SymbolX,
		sum.SymbolY,
		a.RegressionLookback,
		a.OULookback,
		sum.Threshold,
		uint32(sum.Observations),
		sum.WindowStart,
		sum.WindowEnd,
		float64(sum.Beta),
		float64(sum.Intercept),
		float64(sum.Theta),
		float64(sum.Mu),
		float64(sum.Sigma),
		float64(sum.EquilibriumVol),
		sum.MeanReverting,
		float64(sum.LastSignal),
		sum.LastPosition,
		float64(sum.CAGR),
		float64(sum.SharpeRatio),
		float64(sum.MaxDrawdown),
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse save_analysis error",
				applogger.String("table", s.table),
				applogger.String("pair", models.PairKey(sum.SymbolX, sum.SymbolY)),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("save analysis: %w", err)
	}
	return nil
}

func (s *CHResultStore) LatestAnalysis(ctx context.Context, symbolX, symbolY string) (*models.AnalysisSummary, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE symbol_x = ? AND symbol_y = ? ORDER BY created_at DESC LIMIT 1`, analysisColumns, s.table)
	row := s.db.QueryRowContext(ctx, q, symbolX, symbolY)

	var (
		sum         models.AnalysisSummary
		regLB, ouLB string
		nObs        uint32
		windowStart time.Time
		windowEnd   time.Time
	)
	err := row.Scan(
		&sum.RunID,
		&sum.CreatedAt,
		&sum.SymbolX,
		&sum.SymbolY,
		&regLB,
		&ouLB,
		&sum.Threshold,
		&nObs,
		&windowStart,
		&windowEnd,
		(*float64)(&sum.Beta),
		(*float64)(&sum.Intercept),
		(*float64)(&sum.Theta),
		(*float64)(&sum.Mu),
		(*float64)(&sum.Sigma),
		(*float64)(&sum.EquilibriumVol),
		&sum.MeanReverting,
		(*float64)(&sum.LastSignal),
		&sum.LastPosition,
		(*float64)(&sum.CAGR),
		(*float64)(&sum.SharpeRatio),
		(*float64)(&sum.MaxDrawdown),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("latest analysis %s: %w", models.PairKey(symbolX, symbolY), domrepo.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("latest analysis: %w", err)
	}
	sum.Observations = int(nObs)
	sum.WindowStart = windowStart
	sum.WindowEnd = windowEnd
	sum.HalfLife = models.Float(models.OUParams{Theta: float64(sum.Theta)}.HalfLife())
	return &sum, nil
}

var _ domrepo.ResultStore = (*CHResultStore)(nil)
