package usecase

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"RelVal/internal/domain/models"
	"RelVal/internal/services/pipeline"
	"RelVal/pkg/util"
)

// ErrInvalidParams marks caller mistakes: bad symbols, lookbacks or dates.
var ErrInvalidParams = errors.New("invalid analysis parameters")

// AnalyzeParams selects a pair, the pipeline options and an optional history range.
type AnalyzeParams struct {
	SymbolX string
	SymbolY string
	Options pipeline.Options
	From    time.Time
	To      time.Time
}

// Key identifies the parameters for caching.
func (p AnalyzeParams) Key() string {
	return fmt.Sprintf("%s|%s|%s|%g|%s|%s",
		models.PairKey(p.SymbolX, p.SymbolY),
		p.Options.RegressionLookback, p.Options.OULookback, p.Options.Threshold,
		dateKey(p.From), dateKey(p.To))
}

// ForPair copies p with a different pair.
func (p AnalyzeParams) ForPair(x, y string) AnalyzeParams {
	p.SymbolX, p.SymbolY = x, y
	return p
}

func dateKey(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02")
}

// NewAnalyzeParams validates and parses the textual request form.
func NewAnalyzeParams(x, y, regressionLookback, ouLookback string, threshold float64, from, to string) (AnalyzeParams, error) {
	x, y = strings.TrimSpace(x), strings.TrimSpace(y)
	if x == "" || y == "" {
		return AnalyzeParams{}, fmt.Errorf("%w: both symbols are required", ErrInvalidParams)
	}
	if x == y {
		return AnalyzeParams{}, fmt.Errorf("%w: symbols must differ", ErrInvalidParams)
	}
	if threshold < 0 || math.IsNaN(threshold) {
		return AnalyzeParams{}, fmt.Errorf("%w: threshold must be positive", ErrInvalidParams)
	}
	opts, err := pipeline.ParseOptions(regressionLookback, ouLookback, threshold)
	if err != nil {
		return AnalyzeParams{}, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	p := AnalyzeParams{SymbolX: x, SymbolY: y, Options: opts}
	if from != "" {
		if p.From, err = util.ParseDate(from); err != nil {
			return AnalyzeParams{}, fmt.Errorf("%w: from: %v", ErrInvalidParams, err)
		}
	}
	if to != "" {
		if p.To, err = util.ParseDate(to); err != nil {
			return AnalyzeParams{}, fmt.Errorf("%w: to: %v", ErrInvalidParams, err)
		}
	}
	if !p.From.IsZero() && !p.To.IsZero() && p.To.Before(p.From) {
		return AnalyzeParams{}, fmt.Errorf("%w: to is before from", ErrInvalidParams)
	}
	return p, nil
}

// ParamsFromRequest converts a decoded AnalyzeRequest.
func ParamsFromRequest(r models.AnalyzeRequest) (AnalyzeParams, error) {
	return NewAnalyzeParams(r.SymbolX, r.SymbolY, r.RegressionLookback, r.OULookback, r.Threshold, r.From, r.To)
}

// NewScanParams parses the options shared by every pair of a scan.
func NewScanParams(regressionLookback, ouLookback string, threshold float64) (AnalyzeParams, error) {
	if threshold < 0 || math.IsNaN(threshold) {
		return AnalyzeParams{}, fmt.Errorf("%w: threshold must be positive", ErrInvalidParams)
	}
	opts, err := pipeline.ParseOptions(regressionLookback, ouLookback, threshold)
	if err != nil {
		return AnalyzeParams{}, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return AnalyzeParams{Options: opts}, nil
}

// ParsePairs reads "X:Y,X2:Y2" into pair references.
func ParsePairs(s string) ([]models.PairRef, error) {
	var out []models.PairRef
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		x, y, ok := strings.Cut(item, ":")
		x, y = strings.TrimSpace(x), strings.TrimSpace(y)
		if !ok || x == "" || y == "" || x == y {
			return nil, fmt.Errorf("%w: bad pair %q", ErrInvalidParams, item)
		}
		out = append(out, models.PairRef{X: x, Y: y})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no pairs", ErrInvalidParams)
	}
	return out, nil
}
