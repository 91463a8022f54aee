package usecase

import (
	"math"
	"time"

	"github.com/Aegizz/OptiverTradingGame/internal/domain/models"
)

// OptimizeOutcome classifies one optimization pass.
type OptimizeOutcome string

const (
	OutcomeSkipped    OptimizeOutcome = "skipped"
	OutcomeUnchanged  OptimizeOutcome = "unchanged"
	OutcomeReinforced OptimizeOutcome = "reinforced"
	OutcomeReset      OptimizeOutcome = "reset"
)

// Optimizer adjusts strategy parameters from recent performance. The
// throttle guards live in StrategyState.Optimize; Rebalance itself is pure
// and unit-testable without the store.
type Optimizer struct {
	Interval   time.Duration
	MinSamples int
	ProfitBar  float64 // average profit above which the strategy reinforces
	LossBar    float64 // average profit below which the weights reset
}

func NewOptimizer(interval time.Duration, minSamples int, profitBar, lossBar float64) *Optimizer {
	return &Optimizer{
		Interval:   interval,
		MinSamples: minSamples,
		ProfitBar:  profitBar,
		LossBar:    lossBar,
	}
}

// Rebalance evaluates the window and returns the next parameter set. The
// input params are returned unchanged for outcomes unchanged and skipped.
func (o *Optimizer) Rebalance(params models.StrategyParams, window []models.PerformanceSample) (models.StrategyParams, OptimizeOutcome) {
	if len(window) == 0 {
		return params, OutcomeUnchanged
	}

	var sum float64
	for _, p := range window {
		sum += p.PnLChange
	}
	avgProfit := sum / float64(len(window))

	switch {
	case avgProfit > o.ProfitBar:
		return o.reinforce(params, window)
	case avgProfit < o.LossBar:
		params.MomentumWeight = 0.5
		params.ForecastWeight = 0.5
		params.AggressiveFactor = math.Max(1.0, params.AggressiveFactor-0.2)
		return params, OutcomeReset
	default:
		return params, OutcomeUnchanged
	}
}

// reinforce shifts the weights toward whichever signal dominated the
// profitable trades in the window. Each qualifying sample credits 1.0 to
// the stronger signal and 0.5 to the other; the averaged credits are
// normalized to sum to 1. With no qualifying sample there is nothing to
// attribute and the parameters are left alone.
func (o *Optimizer) reinforce(params models.StrategyParams, window []models.PerformanceSample) (models.StrategyParams, OptimizeOutcome) {
	var momentumCredit, forecastCredit float64
	var n int
	for _, p := range window {
		if p.PnLChange <= 0 || p.TradeVolume == 0 {
			continue
		}
		if math.Abs(p.Momentum) > math.Abs(p.Forecast) {
			momentumCredit += 1.0
			forecastCredit += 0.5
		} else {
			momentumCredit += 0.5
			forecastCredit += 1.0
		}
		n++
	}
	if n == 0 {
		return params, OutcomeUnchanged
	}

	avgMomentum := momentumCredit / float64(n)
	avgForecast := forecastCredit / float64(n)
	total := avgMomentum + avgForecast
	params.MomentumWeight = avgMomentum / total
	params.ForecastWeight = avgForecast / total
	params.AggressiveFactor = math.Min(2.0, params.AggressiveFactor+0.1)
	return params, OutcomeReinforced
}
