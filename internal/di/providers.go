package di

import (
	"fmt"

	models "github.com/Aegizz/OptiverTradingGame/internal/domain/models"
	domrepo "github.com/Aegizz/OptiverTradingGame/internal/domain/repository"
	"github.com/Aegizz/OptiverTradingGame/internal/handler/api"
	"github.com/Aegizz/OptiverTradingGame/internal/service/vega"
	"github.com/Aegizz/OptiverTradingGame/internal/usecase"
	"github.com/Aegizz/OptiverTradingGame/pkg/config"
	xhttp "github.com/Aegizz/OptiverTradingGame/pkg/http"
	applogger "github.com/Aegizz/OptiverTradingGame/pkg/logger"
	"github.com/Aegizz/OptiverTradingGame/pkg/metrics"
	"github.com/Aegizz/OptiverTradingGame/pkg/server"
)

// ProvideJournal creates the bounded warn/error log buffer behind the
// events endpoint.
func ProvideJournal() *applogger.Journal {
	return applogger.NewJournal(256)
}

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config, journal *applogger.Journal) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	l.AttachJournal(journal)
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideOptimizer creates the parameter tuner from config.
func ProvideOptimizer(cfg *config.Config) *usecase.Optimizer {
	return usecase.NewOptimizer(
		cfg.Strategy.OptimizeInterval,
		cfg.Strategy.MinSamples,
		cfg.Strategy.ProfitBar,
		cfg.Strategy.LossBar,
	)
}

// ProvideStrategyState creates the shared strategy store with the
// configured starting parameters.
func ProvideStrategyState(cfg *config.Config, tuner *usecase.Optimizer) *usecase.StrategyState {
	params := models.DefaultStrategyParams()
	params.MomentumWeight = cfg.Strategy.MomentumWeight
	params.ForecastWeight = cfg.Strategy.ForecastWeight
	params.AggressiveFactor = cfg.Strategy.AggressiveFactor
	return usecase.NewStrategyState(params, cfg.Strategy.HistorySize, tuner)
}

// ProvideSignalEngine creates the volume planner.
func ProvideSignalEngine(state *usecase.StrategyState) *usecase.SignalEngine {
	return usecase.NewSignalEngine(state)
}

// ProvideStreamFactory builds one fresh game stream per session attempt.
func ProvideStreamFactory(cfg *config.Config, logger *applogger.Logger, m domrepo.Metrics) domrepo.StreamFactory {
	return func() domrepo.GameStream {
		return vega.New(
			cfg.Game.URL,
			cfg.Game.PlayerID,
			cfg.Game.Token,
			cfg.Game.DialTimeout,
			logger,
			m,
		)
	}
}

// ProvideSupervisor creates the session pool supervisor.
func ProvideSupervisor(
	cfg *config.Config,
	streams domrepo.StreamFactory,
	state *usecase.StrategyState,
	engine *usecase.SignalEngine,
	m domrepo.Metrics,
	logger *applogger.Logger,
) *usecase.Supervisor {
	return usecase.NewSupervisor(
		usecase.SupervisorConfig{
			Slots:       cfg.Game.Sessions,
			BaseAlias:   cfg.Game.Alias,
			PlayerID:    cfg.Game.PlayerID,
			ReadTimeout: cfg.Game.ReadTimeout,
			BackoffMin:  cfg.Game.BackoffMin,
			BackoffMax:  cfg.Game.BackoffMax,
		},
		streams, state, engine, m, logger,
	)
}

// ProvideStatusHandler creates the status API handler.
func ProvideStatusHandler(logger *applogger.Logger, state *usecase.StrategyState, journal *applogger.Journal) xhttp.Handler {
	return api.NewStatusHandler(logger, state, journal)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	state *usecase.StrategyState,
	sup *usecase.Supervisor,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, logger, state, sup, handler)
}
