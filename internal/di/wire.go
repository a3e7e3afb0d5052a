//go:build wireinject
// +build wireinject

package di

import (
	"PricePulse/pkg/config"
	"PricePulse/pkg/server"

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
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideCache,

		// Repositories
		ProvideProductStore,
		ProvideSalesStore,
		ProvideDecisionPublisher,
		ProvideCompetitorSource,

		// Use cases
		ProvidePricingEngine,
		ProvideIngestPipeline,
		ProvideSalesHandler,
		ProvideJobQueue,
		ProvideRepriceJob,

		// HTTP and application server
		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
