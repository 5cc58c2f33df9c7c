package usecase

import (
	"context"
	"fmt"
	"time"

	"RelVal/internal/domain/models"
	domrepo "RelVal/internal/domain/repository"
	"RelVal/internal/services/dataprep"
	"RelVal/internal/services/pipeline"
	applogger "RelVal/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Outcome labels for the runs counter.
const (
	ResultOK               = "ok"
	ResultNotMeanReverting = "not_mean_reverting"
	ResultError            = "error"
)

// Analyzer runs one pair analysis.
type Analyzer interface {
	Analyze(ctx context.Context, p AnalyzeParams) (*models.PairAnalysis, error)
}

// PairAnalyzer loads prices, runs the pipeline and fans the result out to the
// optional store and publisher. Store and publish failures are logged and
// counted but do not fail the analysis.
type PairAnalyzer struct {
	prices    domrepo.PriceStore
	store     domrepo.ResultStore
	publisher domrepo.ResultPublisher
	metrics   domrepo.Metrics
	l         *applogger.Logger

	now   func() time.Time
	newID func() string
}

func NewPairAnalyzer(prices domrepo.PriceStore, store domrepo.ResultStore, publisher domrepo.ResultPublisher, metrics domrepo.Metrics, l *applogger.Logger) *PairAnalyzer {
	if l == nil {
		l = applogger.Nop()
	}
	return &PairAnalyzer{
		prices:    prices,
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		l:         l,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return uuid.NewString() },
	}
}

func (a *PairAnalyzer) Analyze(ctx context.Context, p AnalyzeParams) (*models.PairAnalysis, error) {
	start := time.Now()
	pair := models.PairKey(p.SymbolX, p.SymbolY)
	log := a.l.With(applogger.String("pair", pair))

	x, y, err := a.load(ctx, p)
	if err != nil {
		a.fail("load")
		log.Error("load prices failed", applogger.Error(err))
		return nil, err
	}
	log.Debug("prices loaded", applogger.Int("x_rows", x.Len()), applogger.Int("y_rows", y.Len()))

	x, y = dataprep.Prepare(x, y)
	log.Debug("prices prepared", applogger.Int("rows", x.Len()))

	stageStart := time.Now()
	res, err := pipeline.Run(x, y, p.Options)
	if a.metrics != nil {
		a.metrics.RecordLatency("pipeline", time.Since(stageStart).Seconds())
	}
	if err != nil {
		a.fail("pipeline")
		log.Warn("pipeline failed", applogger.Error(err))
		return nil, fmt.Errorf("analyze %s: %w", pair, err)
	}

	res.RunID = a.newID()
	res.SymbolX, res.SymbolY = p.SymbolX, p.SymbolY
	res.CreatedAt = a.now()

	if a.metrics != nil {
		outcome := ResultOK
		if !res.MeanReverting {
			outcome = ResultNotMeanReverting
		}
		a.metrics.RecordRun(outcome)
		a.metrics.RecordPairParams(pair, res.OU.Theta, res.Metrics.SharpeRatio)
	}

	if a.store != nil {
		if err := a.store.SaveAnalysis(ctx, res); err != nil {
			a.recordError("store")
			log.Error("save analysis failed", applogger.String("run_id", res.RunID), applogger.Error(err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.PublishAnalysis(ctx, res); err != nil {
			a.recordError("publish")
			log.Error("publish analysis failed", applogger.String("run_id", res.RunID), applogger.Error(err))
		}
	}

	if a.metrics != nil {
		a.metrics.RecordLatency("analyze", time.Since(start).Seconds())
	}
	log.Info("pair analyzed",
		applogger.String("run_id", res.RunID),
		applogger.Int("observations", res.Regression.Residuals.Len()),
		applogger.Float64("beta", res.Regression.Beta),
		applogger.Float64("theta", res.OU.Theta),
		applogger.Bool("mean_reverting", res.MeanReverting),
		applogger.Float64("sharpe", res.Metrics.SharpeRatio),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return res, nil
}

func (a *PairAnalyzer) load(ctx context.Context, p AnalyzeParams) (models.TimeSeries, models.TimeSeries, error) {
	var x, y models.TimeSeries
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		x, err = a.prices.LoadCloses(gctx, p.SymbolX, p.From, p.To)
		return err
	})
	g.Go(func() error {
		var err error
		y, err = a.prices.LoadCloses(gctx, p.SymbolY, p.From, p.To)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.TimeSeries{}, models.TimeSeries{}, err
	}
	return x, y, nil
}

func (a *PairAnalyzer) fail(kind string) {
	if a.metrics == nil {
		return
	}
	a.metrics.RecordRun(ResultError)
	a.metrics.RecordError(kind)
}

func (a *PairAnalyzer) recordError(kind string) {
	if a.metrics != nil {
		a.metrics.RecordError(kind)
	}
}
