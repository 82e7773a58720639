//go:build wireinject
// +build wireinject

package di

import (
	"NetRisk/pkg/config"
	"NetRisk/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideCache,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories
		ProvideSnapshotArchive,
		ProvideBacktestArchive,
		ProvideAlertPublisher,
		ProvideAlertStore,
		ProvideScoreSource,

		// Use cases
		ProvideResultStore,
		ProvideEngineParams,
		ProvideOrchestrator,
		ProvideAlertManager,
		ProvideTicker,
		ProvideBacktester,

		// HTTP surface
		ProvideRateLimiter,
		ProvideConfigView,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
