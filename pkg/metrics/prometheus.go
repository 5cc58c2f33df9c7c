package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	runs    *prometheus.CounterVec
	errors  *prometheus.CounterVec
	latency *prometheus.HistogramVec
	theta   *prometheus.GaugeVec
	sharpe  *prometheus.GaugeVec
}

// New registers the collectors on the default registry. Call it once per process.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		runs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relval_pipeline_runs_total",
				Help: "Pair pipeline runs by outcome",
			},
			[]string{"result"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relval_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relval_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		theta: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "relval_pair_theta",
				Help: "Last fitted OU mean-reversion speed per pair",
			},
			[]string{"pair"},
		),
		sharpe: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "relval_pair_sharpe_ratio",
				Help: "Last backtest Sharpe ratio per pair",
			},
			[]string{"pair"},
		),
	}
}

// RecordRun counts a pipeline run; result is ok, not_mean_reverting or error.
func (r *Recorder) RecordRun(result string) {
	r.runs.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordPairParams(pair string, theta, sharpe float64) {
	r.theta.WithLabelValues(pair).Set(theta)
	r.sharpe.WithLabelValues(pair).Set(sharpe)
}
