package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"RelVal/internal/domain/models"
	domrepo "RelVal/internal/domain/repository"
	applogger "RelVal/pkg/logger"
)

// CHPriceStore implements PriceStore over the daily_closes table.
type CHPriceStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHPriceStore(db *sql.DB, database string) *CHPriceStore {
	return &CHPriceStore{db: db, table: database + "." + closesTable}
}

// SetLogger injects a structured logger.
func (s *CHPriceStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHPriceStore) LoadCloses(ctx context.Context, symbol string, from, to time.Time) (models.TimeSeries, error) {
	start := time.Now()
	conds := []string{"symbol = ?"}
	args := []interface{}{symbol}
	if !from.IsZero() {
		conds = append(conds, "d >= ?")
		args = append(args, from)
	}
	if !to.IsZero() {
		conds = append(conds, "d <= ?")
		args = append(args, to)
	}
	q := fmt.Sprintf("SELECT d, close FROM %s WHERE %s ORDER BY d ASC", s.table, strings.Join(conds, " AND "))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.logError("clickhouse load_closes query error", symbol, err)
		return models.TimeSeries{}, fmt.Errorf("load closes: %w", err)
	}
	defer rows.Close()

	var out []closeRow
	for rows.Next() {
		var r closeRow
		if err := rows.Scan(&r.t, &r.v); err != nil {
			s.logError("clickhouse load_closes scan error", symbol, err)
			return models.TimeSeries{}, fmt.Errorf("scan close: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		s.logError("clickhouse load_closes rows error", symbol, err)
		return models.TimeSeries{}, fmt.Errorf("rows: %w", err)
	}
	if len(out) == 0 {
		return models.TimeSeries{}, fmt.Errorf("load closes %s: %w", symbol, domrepo.ErrNotFound)
	}

	series, err := buildSeries(out)
	if err != nil {
		return models.TimeSeries{}, fmt.Errorf("load closes %s: %w", symbol, err)
	}
	if s.l != nil {
		s.l.Info("clickhouse load_closes ok",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.Int("rows", series.Len()),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return series, nil
}

func (s *CHPriceStore) logError(msg, symbol string, err error) {
	if s.l == nil {
		return
	}
	s.l.Error(msg,
		applogger.String("table", s.table),
		applogger.String("symbol", symbol),
		applogger.Error(err),
	)
}

var _ domrepo.PriceStore = (*CHPriceStore)(nil)
