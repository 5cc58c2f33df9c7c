package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"RelVal/internal/domain/models"
	domrepo "RelVal/internal/domain/repository"
	applogger "RelVal/pkg/logger"
	"RelVal/pkg/util"
)

// CSVPriceStore reads <dir>/<SYMBOL>.csv files with a DATE column and a Close
// column. Missing or non-numeric closes (".", "", "NaN") load as NaN.
type CSVPriceStore struct {
	dir string
	l   *applogger.Logger
}

func NewCSVPriceStore(dir string) *CSVPriceStore {
	return &CSVPriceStore{dir: dir}
}

// SetLogger injects a structured logger.
func (s *CSVPriceStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CSVPriceStore) LoadCloses(ctx context.Context, symbol string, from, to time.Time) (models.TimeSeries, error) {
	if err := ctx.Err(); err != nil {
		return models.TimeSeries{}, err
	}
	if symbol == "" || strings.ContainsAny(symbol, `/\`) || strings.Contains(symbol, "..") {
		return models.TimeSeries{}, fmt.Errorf("csv prices: invalid symbol %q", symbol)
	}
	path := filepath.Join(s.dir, symbol+".csv")
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.TimeSeries{}, fmt.Errorf("csv prices %s: %w", symbol, domrepo.ErrNotFound)
		}
		return models.TimeSeries{}, fmt.Errorf("csv prices %s: %w", symbol, err)
	}
	defer f.Close()

	out, err := readCloses(f, from, to)
	if err != nil {
		if s.l != nil {
			s.l.Error("csv load error", applogger.String("path", path), applogger.Error(err))
		}
		return models.TimeSeries{}, fmt.Errorf("csv prices %s: %w", symbol, err)
	}
	if s.l != nil {
		s.l.Debug("csv load ok", applogger.String("path", path), applogger.Int("rows", out.Len()))
	}
	return out, nil
}

type closeRow struct {
	t time.Time
	v float64
}

func readCloses(r io.Reader, from, to time.Time) (models.TimeSeries, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return models.TimeSeries{}, fmt.Errorf("read header: %w", err)
	}
	dateCol, closeCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "date":
			dateCol = i
		case "close":
			closeCol = i
		}
	}
	if dateCol < 0 || closeCol < 0 {
		return models.TimeSeries{}, fmt.Errorf("header must contain DATE and Close columns, got %v", header)
	}

	var rows []closeRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return models.TimeSeries{}, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) <= dateCol || len(rec) <= closeCol {
			return models.TimeSeries{}, fmt.Errorf("line %d: too few columns", line)
		}
		t, err := util.ParseDate(rec[dateCol])
		if err != nil {
			return models.TimeSeries{}, fmt.Errorf("line %d: %w", line, err)
		}
		if !util.InRange(t, from, to) {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[closeCol]), 64)
		if err != nil {
			v = math.NaN()
		}
		rows = append(rows, closeRow{t: t, v: v})
	}
	return buildSeries(rows)
}

// buildSeries sorts rows by time and keeps the last value for duplicate timestamps.
func buildSeries(rows []closeRow) (models.TimeSeries, error) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].t.Before(rows[j].t) })
	times := make([]time.Time, 0, len(rows))
	values := make([]float64, 0, len(rows))
	for _, r := range rows {
		if n := len(times); n > 0 && times[n-1].Equal(r.t) {
			values[n-1] = r.v
			continue
		}
		times = append(times, r.t)
		values = append(values, r.v)
	}
	return models.NewTimeSeries(times, values)
}

var _ domrepo.PriceStore = (*CSVPriceStore)(nil)

// SaveCloses writes series to <dir>/<symbol>.csv in the layout LoadCloses reads.
// NaN closes are written as empty fields.
func (s *CSVPriceStore) SaveCloses(ctx context.Context, symbol string, series models.TimeSeries) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if symbol == "" || strings.ContainsAny(symbol, `/\`) || strings.Contains(symbol, "..") {
		return fmt.Errorf("csv prices: invalid symbol %q", symbol)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("csv prices: %w", err)
	}
	path := filepath.Join(s.dir, symbol+".csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csv prices %s: %w", symbol, err)
	}
	w := csv.NewWriter(f)
	_ = w.Write([]string{"DATE", "Close"})
	for i, t := range series.Times {
		v := ""
		if !math.IsNaN(series.Values[i]) {
			v = strconv.FormatFloat(series.Values[i], 'f', -1, 64)
		}
		_ = w.Write([]string{t.Format("2006-01-02"), v})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("csv prices %s: %w", symbol, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("csv prices %s: %w", symbol, err)
	}
	if s.l != nil {
		s.l.Debug("csv save ok", applogger.String("path", path), applogger.Int("rows", series.Len()))
	}
	return nil
}
