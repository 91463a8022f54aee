package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/Aegizz/OptiverTradingGame/internal/domain/models"
	drepo "github.com/Aegizz/OptiverTradingGame/internal/domain/repository"
	applogger "github.com/Aegizz/OptiverTradingGame/pkg/logger"
)

// SupervisorConfig fixes the pool geometry and retry behavior.
type SupervisorConfig struct {
	Slots       int
	BaseAlias   string
	PlayerID    string
	ReadTimeout time.Duration
	BackoffMin  time.Duration
	BackoffMax  time.Duration
}

// Supervisor owns the session pool. Each slot 0..Slots-1 runs a sequential
// loop: one attempt at a time, a jittered pause, then a fresh attempt
// under the same identity. A replacement can therefore never overlap the
// worker it replaces, and the slot's ledger entry carries across attempts.
type Supervisor struct {
	cfg     SupervisorConfig
	streams drepo.StreamFactory
	state   *StrategyState
	engine  *SignalEngine
	metrics drepo.Metrics
	logger  *applogger.Logger

	wg sync.WaitGroup
}

func NewSupervisor(
	cfg SupervisorConfig,
	streams drepo.StreamFactory,
	state *StrategyState,
	engine *SignalEngine,
	metrics drepo.Metrics,
	logger *applogger.Logger,
) *Supervisor {
	return &Supervisor{
		cfg:     cfg,
		streams: streams,
		state:   state,
		engine:  engine,
		metrics: metrics,
		logger:  logger,
	}
}

// Run launches every slot loop and blocks until ctx is canceled and all
// loops have drained. The supervisor itself has no failure mode.
func (s *Supervisor) Run(ctx context.Context) {
	s.logger.Info("supervisor starting",
		applogger.Int("slots", s.cfg.Slots),
		applogger.String("base_alias", s.cfg.BaseAlias),
	)

	for i := 0; i < s.cfg.Slots; i++ {
		id := models.SessionIdentity{
			ConnID: i,
			Alias:  fmt.Sprintf("%s-%d", s.cfg.BaseAlias, i),
		}
		s.state.EnsureConn(id.ConnID)
		s.wg.Add(1)
		go s.runSlot(ctx, id)
	}

	<-ctx.Done()
	s.wg.Wait()
	s.logger.Info("supervisor stopped")
}

// runSlot is one slot's loop. It never respawns itself; every new attempt
// starts here, strictly after the previous one returned.
func (s *Supervisor) runSlot(ctx context.Context, id models.SessionIdentity) {
	defer s.wg.Done()

	for attempt := 1; ; attempt++ {
		res := s.runAttempt(ctx, id)
		if res.Reason != ReasonCanceled {
			s.metrics.RecordReconnect(string(res.Reason))
		}

		fields := []applogger.Field{
			applogger.Int("conn_id", id.ConnID),
			applogger.Int("attempt", attempt),
			applogger.String("reason", string(res.Reason)),
		}
		switch {
		case res.Err != nil:
			s.logger.Warn("session ended", append(fields, applogger.Error(res.Err))...)
		case res.Reason == ReasonFinished:
			s.logger.Info("session ended", append(fields, applogger.Float64("final_pnl", res.FinalPnL))...)
		default:
			s.logger.Info("session ended", fields...)
		}

		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoffBetween(s.cfg.BackoffMin, s.cfg.BackoffMax)):
		}
	}
}

func (s *Supervisor) runAttempt(ctx context.Context, id models.SessionIdentity) SessionResult {
	w := NewSessionWorker(
		id,
		s.cfg.PlayerID,
		s.cfg.ReadTimeout,
		s.streams(),
		s.state,
		s.engine,
		s.metrics,
		s.logger,
	)
	return w.Run(ctx)
}

// backoffBetween draws a delay uniformly from [lo, hi].
func backoffBetween(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int63n(int64(hi-lo)))
}
