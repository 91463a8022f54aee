package server

import (
	"context"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/Aegizz/OptiverTradingGame/internal/usecase"
	"github.com/Aegizz/OptiverTradingGame/pkg/config"
	xhttp "github.com/Aegizz/OptiverTradingGame/pkg/http"
	applogger "github.com/Aegizz/OptiverTradingGame/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	logger      *applogger.Logger
	state       *usecase.StrategyState
	supervisor  *usecase.Supervisor
	httpHandler xhttp.Handler
	httpServer  *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	state *usecase.StrategyState,
	supervisor *usecase.Supervisor,
	httpHandler xhttp.Handler,
) *App {
	return &App{
		cfg:         cfg,
		logger:      logger,
		state:       state,
		supervisor:  supervisor,
		httpHandler: httpHandler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(a.logger),
	)

	// Start the session pool
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.supervisor.Run(ctx)
	}()
	a.logger.Info("session pool started",
		applogger.Int("sessions", a.cfg.Game.Sessions),
		applogger.String("url", a.cfg.Game.URL),
	)

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	cancel()
	return a.shutdown(done)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(done <-chan struct{}) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	// Wait for the session pool to drain, but never past the deadline
	select {
	case <-done:
		a.logger.Info("session pool drained")
	case <-shutdownCtx.Done():
		a.logger.Warn("session pool drain timed out")
	}

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	a.logRunSummary()
	a.logger.Info("shutdown complete")
	return a.logger.Close()
}

// logRunSummary writes the final ledger so a run leaves a trace even when
// nobody watched the status API.
func (a *App) logRunSummary() {
	ledger := a.state.Ledger()

	ids := make([]int, 0, len(ledger))
	for id := range ledger {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var trades, successes int
	var pnl float64
	for _, id := range ids {
		cs := ledger[id]
		trades += cs.TradesMade
		successes += cs.SuccessfulTrades
		pnl += cs.LastPnL
		a.logger.Info("session summary",
			applogger.Int("conn_id", id),
			applogger.Int("trades_made", cs.TradesMade),
			applogger.Int("successful_trades", cs.SuccessfulTrades),
			applogger.Float64("last_pnl", cs.LastPnL),
		)
	}

	params := a.state.Params()
	a.logger.Info("run summary",
		applogger.Int("sessions", len(ids)),
		applogger.Int("trades_made", trades),
		applogger.Int("successful_trades", successes),
		applogger.Float64("total_pnl", pnl),
		applogger.Float64("momentum_weight", params.MomentumWeight),
		applogger.Float64("forecast_weight", params.ForecastWeight),
		applogger.Float64("aggressive_factor", params.AggressiveFactor),
	)
}
