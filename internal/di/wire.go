//go:build wireinject
// +build wireinject

package di

import (
	"RelVal/pkg/config"
	"RelVal/pkg/server"

	"github.com/google/wire"
)

var coreSet = wire.NewSet(
	ProvideLogger,
	ProvideRegistry,
	ProvideMetrics,

	// Infrastructure clients
	ProvideClickHouseClient,
	ProvideKafkaProducer,

	// Repositories
	ProvidePriceStore,
	ProvideResultStore,
	ProvideResultPublisher,

	// Use cases
	ProvidePairAnalyzer,
	ProvidePairScanner,
)

// InitializeRunner wires the analyzer and scanner for one-shot commands.
func InitializeRunner(cfg *config.Config) (*Runner, func(), error) {
	wire.Build(coreSet, ProvideRunner)
	return nil, nil, nil
}

// InitializeApp wires the serve mode: HTTP API plus optional request consumer.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		coreSet,

		ProvideCache,
		ProvideLimiter,
		ProvidePairsHandler,
		ProvideHTTPServer,

		ProvideKafkaConsumer,
		ProvideAnalysisRequestHandler,

		ProvideApp,
	)
	return nil, nil, nil
}
