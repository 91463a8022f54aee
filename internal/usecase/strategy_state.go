package usecase

import (
	"sync"
	"time"

	"github.com/Aegizz/OptiverTradingGame/internal/domain/models"
)

// StrategyState is the single guarded store for the adaptive strategy:
// parameters, both bounded histories, the per-slot ledger, and the
// optimizer throttle. One mutex covers all of it and callers only ever see
// copies, so a parameter snapshot can never be torn by a concurrent
// optimization pass and appends never race eviction.
type StrategyState struct {
	mu sync.Mutex

	params      models.StrategyParams
	signals     []models.TradeSignal
	performance []models.PerformanceSample
	ledger      map[int]*models.ConnStats

	capacity int
	tuner    *Optimizer
	tunedAt  time.Time
	runs     map[OptimizeOutcome]int
}

// StrategyReport is the status-API view of the engine.
type StrategyReport struct {
	Params           models.StrategyParams `json:"params"`
	SignalCount      int                   `json:"signal_count"`
	PerformanceCount int                   `json:"performance_count"`
	LastOptimization time.Time             `json:"last_optimization"`
	OptimizerRuns    map[string]int        `json:"optimizer_runs"`
}

// NewStrategyState builds the store with the given starting parameters and
// history capacity. The throttle starts armed: the first optimization pass
// cannot run until a full interval after construction.
func NewStrategyState(params models.StrategyParams, capacity int, tuner *Optimizer) *StrategyState {
	if capacity <= 0 {
		capacity = 20
	}
	return &StrategyState{
		params:      params,
		signals:     make([]models.TradeSignal, 0, capacity),
		performance: make([]models.PerformanceSample, 0, capacity),
		ledger:      make(map[int]*models.ConnStats),
		capacity:    capacity,
		tuner:       tuner,
		tunedAt:     time.Now(),
		runs:        make(map[OptimizeOutcome]int),
	}
}

// Params returns a copy of the current parameter set.
func (s *StrategyState) Params() models.StrategyParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// RecordSignal appends to the signal history, evicting the oldest record
// once the buffer is full.
func (s *StrategyState) RecordSignal(sig models.TradeSignal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals = append(s.signals, sig)
	if len(s.signals) > s.capacity {
		s.signals = s.signals[1:]
	}
}

// RecordPerformance appends to the performance history with the same
// eviction discipline.
func (s *StrategyState) RecordPerformance(p models.PerformanceSample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.performance = append(s.performance, p)
	if len(s.performance) > s.capacity {
		s.performance = s.performance[1:]
	}
}

// EnsureConn creates the ledger entry for a slot on first sight.
func (s *StrategyState) EnsureConn(connID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn(connID)
}

// RollPnL stores the latest cumulative PnL for a slot and reports the delta
// from the previous value, plus whether the slot already has a trade
// baseline (at least one trade sent on an earlier event).
func (s *StrategyState) RollPnL(connID int, pnl float64) (change float64, hasBaseline bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs := s.conn(connID)
	change = pnl - cs.LastPnL
	cs.LastPnL = pnl
	return change, cs.TradesMade > 0
}

// CountTrade increments a slot's trade counters. pnlChange is the delta
// observed on the event that produced the trade.
func (s *StrategyState) CountTrade(connID int, pnlChange float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs := s.conn(connID)
	cs.TradesMade++
	if pnlChange > 0 {
		cs.SuccessfulTrades++
	}
}

// ConnStats returns a copy of one slot's ledger entry.
func (s *StrategyState) ConnStats(connID int) models.ConnStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.conn(connID)
}

// conn returns the ledger entry for a slot, creating it if needed. Callers
// must hold mu.
func (s *StrategyState) conn(id int) *models.ConnStats {
	cs, ok := s.ledger[id]
	if !ok {
		cs = &models.ConnStats{}
		s.ledger[id] = cs
	}
	return cs
}

// Signals returns a copy of the signal history, oldest first.
func (s *StrategyState) Signals() []models.TradeSignal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.TradeSignal, len(s.signals))
	copy(out, s.signals)
	return out
}

// Performance returns a copy of the performance history, oldest first.
func (s *StrategyState) Performance() []models.PerformanceSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PerformanceSample, len(s.performance))
	copy(out, s.performance)
	return out
}

// Ledger returns a copy of every slot's stats.
func (s *StrategyState) Ledger() map[int]models.ConnStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]models.ConnStats, len(s.ledger))
	for id, cs := range s.ledger {
		out[id] = *cs
	}
	return out
}

// Report returns the status-API summary.
func (s *StrategyState) Report() StrategyReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	runs := make(map[string]int, len(s.runs))
	for outcome, n := range s.runs {
		runs[string(outcome)] = n
	}
	return StrategyReport{
		Params:           s.params,
		SignalCount:      len(s.signals),
		PerformanceCount: len(s.performance),
		LastOptimization: s.tunedAt,
		OptimizerRuns:    runs,
	}
}

// Optimize runs one throttled optimization pass. Both guards, the
// evaluation, and the parameter replacement happen under a single lock
// acquisition, so a pass is atomic with respect to snapshots and appends.
// The run timestamp is re-armed whenever the guards pass, whatever branch
// the evaluation takes.
func (s *StrategyState) Optimize(now time.Time) OptimizeOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Sub(s.tunedAt) < s.tuner.Interval || len(s.performance) < s.tuner.MinSamples {
		return OutcomeSkipped
	}
	s.tunedAt = now

	next, outcome := s.tuner.Rebalance(s.params, s.performance)
	s.params = next
	s.runs[outcome]++
	return outcome
}
