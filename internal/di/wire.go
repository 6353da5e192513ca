//go:build wireinject
// +build wireinject

package di

import (
	"CoinSight/pkg/config"
	"CoinSight/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideCache,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideMarketStore,
		ProvideForecastStore,
		ProvideBarPublisher,
		ProvideMarketStream,
		ProvideHistoryProvider,
		ProvideSentimentProvider,

		// Use cases
		ProvideBarProcessor,
		ProvideTickCollector,
		ProvideKafkaBarsHandler,
		ProvidePredictionsUseCase,
		ProvideMarketUseCase,
		ProvideRefreshQueue,
		ProvideRefreshScheduler,

		// HTTP surface and application server
		ProvideRouter,
		ProvideApp,
	)
	return &server.App{}, nil
}
