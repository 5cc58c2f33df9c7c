package kafka

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Client metrics live on the default registerer; the server gathers them
// alongside its own registry.
type clientMetrics struct {
	published   *prometheus.CounterVec
	publishErrs *prometheus.CounterVec
	bytes       *prometheus.CounterVec
	publishDur  *prometheus.HistogramVec

	queueDepth *prometheus.GaugeVec
	handled    *prometheus.CounterVec
	handleDur  *prometheus.HistogramVec
	deadLetter *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metricsInst *clientMetrics
)

func getMetrics() *clientMetrics {
	metricsOnce.Do(func() {
		f := promauto.With(prometheus.DefaultRegisterer)
		metricsInst = &clientMetrics{
			published: f.NewCounterVec(prometheus.CounterOpts{
				Name: "relval_kafka_producer_messages_total",
				Help: "Messages published to Kafka by result",
			}, []string{"topic", "compression", "result"}),
			publishErrs: f.NewCounterVec(prometheus.CounterOpts{
				Name: "relval_kafka_producer_errors_total",
				Help: "Producer errors",
			}, []string{"topic"}),
			bytes: f.NewCounterVec(prometheus.CounterOpts{
				Name: "relval_kafka_producer_bytes_total",
				Help: "Payload bytes published",
			}, []string{"topic", "compression"}),
			publishDur: f.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "relval_kafka_producer_publish_seconds",
				Help:    "Publish latency",
				Buckets: prometheus.DefBuckets,
			}, []string{"topic"}),
			queueDepth: f.NewGaugeVec(prometheus.GaugeOpts{
				Name: "relval_kafka_consumer_queue_depth",
				Help: "Messages fetched but not yet handled",
			}, []string{"topic"}),
			handled: f.NewCounterVec(prometheus.CounterOpts{
				Name: "relval_kafka_consumer_messages_total",
				Help: "Messages handled by result (ok, error, dead_letter)",
			}, []string{"topic", "result"}),
			handleDur: f.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "relval_kafka_consumer_handle_seconds",
				Help:    "Handling time per message including retries",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			}, []string{"topic"}),
			deadLetter: f.NewCounterVec(prometheus.CounterOpts{
				Name: "relval_kafka_consumer_dead_letter_total",
				Help: "Messages written to the dead letter topic",
			}, []string{"topic"}),
		}
	})
	return metricsInst
}

func (m *clientMetrics) observePublish(topic, comp string, bytes int, dur time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		m.publishErrs.WithLabelValues(topic).Inc()
	}
	m.published.WithLabelValues(topic, comp, result).Inc()
	m.bytes.WithLabelValues(topic, comp).Add(float64(bytes))
	m.publishDur.WithLabelValues(topic).Observe(dur.Seconds())
}
