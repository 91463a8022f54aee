//go:build wireinject
// +build wireinject

package di

import (
	"github.com/Aegizz/OptiverTradingGame/pkg/config"
	"github.com/Aegizz/OptiverTradingGame/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideJournal,
		ProvideLogger,
		ProvideMetrics,

		// Strategy core
		ProvideOptimizer,
		ProvideStrategyState,
		ProvideSignalEngine,

		// Game transport and session pool
		ProvideStreamFactory,
		ProvideSupervisor,

		// Status API
		ProvideStatusHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
