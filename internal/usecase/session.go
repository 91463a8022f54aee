package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Aegizz/OptiverTradingGame/internal/domain/models"
	drepo "github.com/Aegizz/OptiverTradingGame/internal/domain/repository"
	applogger "github.com/Aegizz/OptiverTradingGame/pkg/logger"
)

// sessionPhase tracks where one attempt is in the game protocol.
type sessionPhase int

const (
	phaseHandshake sessionPhase = iota
	phaseActive
	phaseTerminating
)

// Reason classifies why a session attempt ended.
type Reason string

const (
	ReasonFinished     Reason = "finished"
	ReasonConnFault    Reason = "conn_fault"
	ReasonSessionFault Reason = "session_fault"
	ReasonCanceled     Reason = "canceled"
)

// SessionResult is the ordinary value a completed attempt hands back to
// the supervisor. Game over is a result, not an error.
type SessionResult struct {
	Reason   Reason
	FinalPnL float64
	Err      error
}

var errStreamClosed = errors.New("stream closed")

// SessionWorker runs one connection attempt against the game server:
// handshake, then the event loop, until game end, a fault, or
// cancellation. A fresh worker is built for every attempt; the identity
// and its ledger entry are what carry across.
type SessionWorker struct {
	id          models.SessionIdentity
	playerID    string
	readTimeout time.Duration

	stream  drepo.GameStream
	state   *StrategyState
	engine  *SignalEngine
	metrics drepo.Metrics
	logger  *applogger.Logger

	phase sessionPhase
}

func NewSessionWorker(
	id models.SessionIdentity,
	playerID string,
	readTimeout time.Duration,
	stream drepo.GameStream,
	state *StrategyState,
	engine *SignalEngine,
	metrics drepo.Metrics,
	logger *applogger.Logger,
) *SessionWorker {
	return &SessionWorker{
		id:          id,
		playerID:    playerID,
		readTimeout: readTimeout,
		stream:      stream,
		state:       state,
		engine:      engine,
		metrics:     metrics,
		logger:      logger,
		phase:       phaseHandshake,
	}
}

// Run executes one attempt to completion. Every fault stays local to the
// attempt; the caller decides whether and when to retry.
func (w *SessionWorker) Run(ctx context.Context) SessionResult {
	if err := w.stream.Connect(ctx); err != nil {
		return SessionResult{Reason: ReasonConnFault, Err: err}
	}
	defer w.stream.Close()

	w.metrics.SessionUp()
	defer w.metrics.SessionDown()

	if err := w.stream.Hello(w.id.Alias); err != nil {
		return SessionResult{Reason: ReasonConnFault, Err: fmt.Errorf("handshake: %w", err)}
	}
	w.logger.Debug("handshake sent",
		applogger.Int("conn_id", w.id.ConnID),
		applogger.String("alias", w.id.Alias),
	)

	envs, errs := w.stream.Read(ctx)
	for {
		select {
		case <-ctx.Done():
			return SessionResult{Reason: ReasonCanceled}
		case err, ok := <-errs:
			if ctx.Err() != nil {
				return SessionResult{Reason: ReasonCanceled}
			}
			if !ok || err == nil {
				err = errStreamClosed
			}
			return SessionResult{Reason: ReasonConnFault, Err: err}
		case env, ok := <-envs:
			if !ok {
				if ctx.Err() != nil {
					return SessionResult{Reason: ReasonCanceled}
				}
				return SessionResult{Reason: ReasonConnFault, Err: errStreamClosed}
			}
			if res, done := w.handle(env); done {
				return res
			}
		case <-time.After(w.readTimeout):
			// nothing arrived inside the window; benign, keep waiting
			w.metrics.RecordReadTimeout()
		}
	}
}

// handle dispatches one inbound envelope. done reports that the attempt is
// over and res carries its outcome.
func (w *SessionWorker) handle(env *models.Envelope) (res SessionResult, done bool) {
	w.metrics.RecordEvent(env.Event)
	start := time.Now()
	defer func() {
		w.metrics.RecordLatency(env.Event, time.Since(start).Seconds())
	}()

	switch env.Event {
	case models.EventConnection:
		return w.handleAck(env)
	case models.EventState:
		return w.handleState(env)
	case models.EventPuzzle:
		return w.handlePuzzle(env)
	case models.EventEnd, models.EventFinish:
		return w.handleGameOver(env)
	default:
		// unrecognized events are ignored
		return SessionResult{}, false
	}
}

// handleAck matches the server's handshake acknowledgment against our
// identity and starts play.
func (w *SessionWorker) handleAck(env *models.Envelope) (SessionResult, bool) {
	if w.phase != phaseHandshake || env.Str("player_id") != w.playerID {
		return SessionResult{}, false
	}
	if err := w.stream.Send(models.NewStart(w.playerID)); err != nil {
		return SessionResult{Reason: ReasonSessionFault, Err: fmt.Errorf("send start: %w", err)}, true
	}
	w.phase = phaseActive
	w.logger.Info("session active",
		applogger.Int("conn_id", w.id.ConnID),
		applogger.String("alias", w.id.Alias),
	)
	return SessionResult{}, false
}

func (w *SessionWorker) handleState(env *models.Envelope) (SessionResult, bool) {
	if w.phase != phaseActive {
		w.logger.Debug("state before handshake ack", applogger.Int("conn_id", w.id.ConnID))
		return SessionResult{}, false
	}

	st := models.MarketStateFrom(env)
	params := w.state.Params()
	volume := w.engine.PlanVolume(w.id.ConnID, st, params)

	// The PnL baseline rolls on every state event; a performance sample
	// only qualifies once an earlier event has produced a trade.
	pnlChange, hasBaseline := w.state.RollPnL(w.id.ConnID, st.PnL)
	if hasBaseline {
		w.state.RecordPerformance(models.PerformanceSample{
			ConnID:      w.id.ConnID,
			Timestamp:   time.Now(),
			Momentum:    st.Momentum,
			Forecast:    st.Forecast,
			Position:    st.Position,
			TradeVolume: volume,
			PnLChange:   pnlChange,
			Price:       st.Price,
			TotalPnL:    st.PnL,
		})
	}
	w.metrics.RecordPnL(w.id.ConnID, st.PnL)
	w.logger.Debug("state",
		applogger.Int("conn_id", w.id.ConnID),
		applogger.Float64("price", st.Price),
		applogger.Float64("forecast", st.Forecast),
		applogger.Float64("momentum", st.Momentum),
		applogger.Int("position", st.Position),
		applogger.Int("position_limit", st.PositionLimit),
		applogger.Float64("pnl", st.PnL),
	)

	if volume != 0 {
		if err := w.stream.Send(models.NewTrade(w.playerID, volume)); err != nil {
			return SessionResult{Reason: ReasonSessionFault, Err: fmt.Errorf("send trade: %w", err)}, true
		}
		w.state.CountTrade(w.id.ConnID, pnlChange)
		w.metrics.RecordTrade("state", volume)
		w.logger.Info("trade sent",
			applogger.Int("conn_id", w.id.ConnID),
			applogger.Int("volume", volume),
		)
	}

	if outcome := w.state.Optimize(time.Now()); outcome != OutcomeSkipped {
		tuned := w.state.Params()
		w.metrics.RecordOptimization(string(outcome))
		w.metrics.RecordParams(tuned)
		w.logger.Info("strategy optimized",
			applogger.String("outcome", string(outcome)),
			applogger.Float64("momentum_weight", tuned.MomentumWeight),
			applogger.Float64("forecast_weight", tuned.ForecastWeight),
			applogger.Float64("aggressive_factor", tuned.AggressiveFactor),
		)
	}
	return SessionResult{}, false
}

// handlePuzzle trades a fixed three units in the direction of the
// announced impact, then always advances past the puzzle.
func (w *SessionWorker) handlePuzzle(env *models.Envelope) (SessionResult, bool) {
	if w.phase != phaseActive {
		return SessionResult{}, false
	}

	impact := env.Int("impact", 0)
	if impact != 0 {
		volume := 3
		if impact < 0 {
			volume = -3
		}
		if err := w.stream.Send(models.NewTrade(w.playerID, volume)); err != nil {
			return SessionResult{Reason: ReasonSessionFault, Err: fmt.Errorf("send puzzle trade: %w", err)}, true
		}
		w.metrics.RecordTrade("puzzle", volume)
		w.logger.Info("puzzle trade sent",
			applogger.Int("conn_id", w.id.ConnID),
			applogger.Int("impact", impact),
			applogger.Int("volume", volume),
		)
	}
	if err := w.stream.Send(models.NewSkip()); err != nil {
		return SessionResult{Reason: ReasonSessionFault, Err: fmt.Errorf("send skip: %w", err)}, true
	}
	return SessionResult{}, false
}

func (w *SessionWorker) handleGameOver(env *models.Envelope) (SessionResult, bool) {
	finalPnL := env.Float("pnl", 0)
	w.phase = phaseTerminating
	w.metrics.RecordPnL(w.id.ConnID, finalPnL)
	w.logger.Info("game over",
		applogger.Int("conn_id", w.id.ConnID),
		applogger.Float64("final_pnl", finalPnL),
	)
	return SessionResult{Reason: ReasonFinished, FinalPnL: finalPnL}, true
}
