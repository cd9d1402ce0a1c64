//go:build wireinject
// +build wireinject

package di

import (
	"SigPull/pkg/config"
	"SigPull/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		ProvideLimiter,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories
		ProvideSignalStore,
		ProvideCoinCatalog,
		ProvideMarketData,
		ProvidePriceStream,
		ProvideSignalPublisher,
		ProvideHistoryArchiver,

		// Analysis services
		ProvideIndicatorAnalyzer,
		ProvidePatternAnalyzer,
		ProvideScreener,
		ProvideCoinScreener,

		// Use cases
		ProvideAnalyzer,
		ProvideSignalFactory,
		ProvideLedger,
		ProvideScanner,
		ProvideStreamCollector,

		// HTTP
		ProvideBytesCache,
		ProvideCatalogReader,
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
