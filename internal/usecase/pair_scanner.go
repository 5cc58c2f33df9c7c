package usecase

import (
	"context"
	"time"

	"RelVal/internal/domain/models"
	"RelVal/internal/services/ou"
	applogger "RelVal/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// ScanResult is the outcome of one pair in a scan. Exactly one of Analysis and Err is set.
type ScanResult struct {
	Pair     models.PairRef
	Analysis *models.PairAnalysis
	Err      error
}

func (r ScanResult) Item() models.ScanItem {
	item := models.ScanItem{SymbolX: r.Pair.X, SymbolY: r.Pair.Y}
	if r.Err != nil {
		item.Error = r.Err.Error()
		return item
	}
	if r.Analysis != nil {
		sum := r.Analysis.Summary()
		item.Result = &sum
	}
	return item
}

// PairScanner analyzes many pairs with a bounded number of workers.
type PairScanner struct {
	analyzer Analyzer
	workers  int
	l        *applogger.Logger
}

func NewPairScanner(analyzer Analyzer, workers int, l *applogger.Logger) *PairScanner {
	if workers < 1 {
		workers = 1
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &PairScanner{analyzer: analyzer, workers: workers, l: l}
}

// Scan analyzes every pair with the shared params. Per-pair failures are kept
// on the result; the returned error is only set when ctx ends the scan early.
// Results keep the order of pairs.
func (s *PairScanner) Scan(ctx context.Context, pairs []models.PairRef, base AnalyzeParams) ([]ScanResult, error) {
	start := time.Now()
	out := make([]ScanResult, len(pairs))
	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for i, pr := range pairs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			out[i] = s.one(ctx, pr, base)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return out, err
	}
	s.l.Info("scan complete",
		applogger.Int("pairs", len(pairs)),
		applogger.Int("failed", countFailed(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

// Stream analyzes pairs like Scan but emits each result as soon as it is
// ready. The channel is closed when all pairs are done or ctx ends.
func (s *PairScanner) Stream(ctx context.Context, pairs []models.PairRef, base AnalyzeParams) <-chan ScanResult {
	ch := make(chan ScanResult, s.workers)
	go func() {
		defer close(ch)
		g := new(errgroup.Group)
		g.SetLimit(s.workers)
		for _, pr := range pairs {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				r := s.one(ctx, pr, base)
				select {
				case ch <- r:
				case <-ctx.Done():
				}
				return nil
			})
		}
		_ = g.Wait()
	}()
	return ch
}

func (s *PairScanner) one(ctx context.Context, pr models.PairRef, base AnalyzeParams) ScanResult {
	res, err := s.analyzer.Analyze(ctx, base.ForPair(pr.X, pr.Y))
	if err != nil {
		return ScanResult{Pair: pr, Err: err}
	}
	return ScanResult{Pair: pr, Analysis: res}
}

// FilterMeanReverting keeps successful results whose theta is finite and positive.
func FilterMeanReverting(results []ScanResult) []ScanResult {
	out := make([]ScanResult, 0, len(results))
	for _, r := range results {
		if r.Err == nil && r.Analysis != nil && ou.IsMeanReverting(r.Analysis.OU.Theta) {
			out = append(out, r)
		}
	}
	return out
}

func countFailed(rs []ScanResult) int {
	n := 0
	for _, r := range rs {
		if r.Err != nil {
			n++
		}
	}
	return n
}
