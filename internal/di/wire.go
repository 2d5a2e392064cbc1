//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"AlphaKit/internal/usecase"
	"AlphaKit/pkg/config"
	"AlphaKit/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvidePrometheusRegistry,
		ProvideMetrics,

		// Infrastructure
		ProvideCacheService,
		ProvideLocker,
		ProvideArtifactStore,
		ProvideSecrets,
		ProvideTransport,
		ProvideReportSink,

		// Use cases
		ProvideRegistry,
		ProvideRunnerConfig,
		usecase.NewScenarioRunner,

		// Transport and application
		ProvideHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}
