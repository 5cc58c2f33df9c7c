package repository

import (
	"context"
	"errors"
	"time"

	"RelVal/internal/domain/models"
)

// PriceStore loads daily close series. A zero from or to leaves that side unbounded.
type PriceStore interface {
	LoadCloses(ctx context.Context, symbol string, from, to time.Time) (models.TimeSeries, error)
}

// ResultStore persists analysis summaries.
type ResultStore interface {
	SaveAnalysis(ctx context.Context, a *models.PairAnalysis) error
	LatestAnalysis(ctx context.Context, symbolX, symbolY string) (*models.AnalysisSummary, error)
}

// ResultPublisher fans analysis summaries out to downstream consumers.
type ResultPublisher interface {
	PublishAnalysis(ctx context.Context, a *models.PairAnalysis) error
	Close() error
}

type Metrics interface {
	RecordRun(result string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordPairParams(pair string, theta, sharpe float64)
}

// ErrNotFound is returned by lookups that match nothing.
var ErrNotFound = errors.New("not found")
