package di

import (
	"context"
	"fmt"
	"time"

	"RelVal/internal/domain/repository"
	"RelVal/internal/handler/api"
	internalrepo "RelVal/internal/repository"
	"RelVal/internal/service/cache"
	"RelVal/internal/service/ratelimit"
	"RelVal/internal/usecase"
	pkgch "RelVal/pkg/clickhouse"
	"RelVal/pkg/config"
	xhttp "RelVal/pkg/http"
	pkgkafka "RelVal/pkg/kafka"
	applogger "RelVal/pkg/logger"
	"RelVal/pkg/metrics"
	"RelVal/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	kafkago "github.com/segmentio/kafka-go"
)

// Runner bundles what the one-shot CLI commands need.
type Runner struct {
	Logger   *applogger.Logger
	Analyzer *usecase.PairAnalyzer
	Scanner  *usecase.PairScanner
}

func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideRegistry creates a private Prometheus registry with runtime collectors.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.NewWithRegisterer(reg)
}

// ProvideClickHouseClient connects and applies the schema. It returns a nil
// client when neither prices nor results live in ClickHouse.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, func(), error) {
	if !cfg.NeedsClickHouse() {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.SchemaStatements(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	l.Info("clickhouse ready",
		applogger.String("host", cfg.ClickHouse.Host),
		applogger.String("database", cfg.ClickHouse.Database),
	)

	cleanup := func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	return client, cleanup, nil
}

func ProvidePriceStore(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (repository.PriceStore, error) {
	switch cfg.Data.Source {
	case "clickhouse":
		if ch == nil {
			return nil, fmt.Errorf("price store: clickhouse client is not configured")
		}
		s := internalrepo.NewCHPriceStore(ch.DB(), cfg.ClickHouse.Database)
		s.SetLogger(l)
		return s, nil
	default:
		s := internalrepo.NewCSVPriceStore(cfg.Data.CSVDir)
		s.SetLogger(l)
		return s, nil
	}
}

// ProvideResultStore returns nil unless results.store is on.
func ProvideResultStore(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) repository.ResultStore {
	if !cfg.Results.Store || ch == nil {
		return nil
	}
	s := internalrepo.NewCHResultStore(ch.DB(), cfg.ClickHouse.Database)
	s.SetLogger(l)
	return s
}

// ProvideKafkaProducer returns nil unless results.publish is on.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, func(), error) {
	if !cfg.Results.Publish {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	cleanup := func() {
		if err := producer.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	return producer, cleanup, nil
}

func ProvideResultPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.ResultPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaResultPublisher(producer, cfg.Kafka.ResultsTopic)
}

func ProvidePairAnalyzer(
	prices repository.PriceStore,
	store repository.ResultStore,
	pub repository.ResultPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.PairAnalyzer {
	return usecase.NewPairAnalyzer(prices, store, pub, m, l)
}

func ProvidePairScanner(cfg *config.Config, an *usecase.PairAnalyzer, l *applogger.Logger) *usecase.PairScanner {
	return usecase.NewPairScanner(an, cfg.Scan.Workers, l)
}

func ProvideRunner(l *applogger.Logger, an *usecase.PairAnalyzer, sc *usecase.PairScanner) *Runner {
	return &Runner{Logger: l, Analyzer: an, Scanner: sc}
}

// ProvideCache picks the analyze response cache backend.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.BytesCache, func(), error) {
	switch cfg.Cache.Backend {
	case "redis":
		rc := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Prefix:   cfg.Cache.Redis.Prefix,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rc.Ping(ctx); err != nil {
			_ = rc.Close()
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		cleanup := func() {
			if err := rc.Close(); err != nil {
				l.Warn("redis close error", applogger.Error(err))
			}
		}
		return rc, cleanup, nil
	case "none":
		return cache.Noop{}, func() {}, nil
	default:
		return cache.NewTTLCache(), func() {}, nil
	}
}

func ProvideLimiter() *ratelimit.Limiter { return ratelimit.New() }

func ProvidePairsHandler(
	cfg *config.Config,
	l *applogger.Logger,
	an *usecase.PairAnalyzer,
	sc *usecase.PairScanner,
	store repository.ResultStore,
	c cache.BytesCache,
	limiter *ratelimit.Limiter,
) *api.PairsEchoHandler {
	return api.NewPairsEchoHandler(l, an, sc, store, c, limiter, api.Config{
		CacheTTL:     cfg.Cache.TTL,
		RateCapacity: cfg.Server.RateLimit.Capacity,
		RateRefill:   cfg.Server.RateLimit.RefillPerSec,
	})
}

func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, h *api.PairsEchoHandler, reg *prometheus.Registry) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(l),
	}
	if cfg.Metrics.Enabled {
		// kafka client metrics register on the default registry
		opts = append(opts, xhttp.WithMetrics(reg, prometheus.Gatherers{reg, prometheus.DefaultGatherer}))
	}
	return xhttp.NewServer(h, opts...)
}

// ProvideKafkaConsumer returns nil unless kafka.consumer.enabled is on.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger, m repository.Metrics) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerAutoOffsetReset(cfg.Kafka.Consumer.AutoOffsetReset),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.SetLogger(l)
	consumer.SetHook(pkgkafka.HookFuncs{
		Err: func(_ context.Context, topic string, km kafkago.Message, _ []byte, err error) {
			m.RecordError("kafka_handle")
			l.Debug("analysis request attempt failed",
				applogger.String("topic", topic),
				applogger.Int("partition", km.Partition),
				applogger.Int64("offset", km.Offset),
				applogger.String("trace_id", pkgkafka.ExtractHeader(km, "trace_id")),
				applogger.Error(err),
			)
		},
	})
	return consumer, nil
}

func ProvideAnalysisRequestHandler(cfg *config.Config, an *usecase.PairAnalyzer, l *applogger.Logger) *usecase.AnalysisRequestHandler {
	return usecase.NewAnalysisRequestHandler(cfg.Kafka.RequestsTopic, an, l)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	kh *usecase.AnalysisRequestHandler,
) *server.App {
	if consumer == nil {
		return server.New(cfg, l, srv, nil, nil)
	}
	return server.New(cfg, l, srv, consumer, kh)
}
