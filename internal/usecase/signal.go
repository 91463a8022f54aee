package usecase

import (
	"math"
	"time"

	"github.com/Aegizz/OptiverTradingGame/internal/domain/models"
)

// SignalEngine turns one market snapshot into a trade volume. The
// computation itself is pure; recording the resulting TradeSignal into the
// shared history is its one deliberate side effect.
type SignalEngine struct {
	state *StrategyState
}

func NewSignalEngine(state *StrategyState) *SignalEngine {
	return &SignalEngine{state: state}
}

// PlanVolume computes the clamped trade volume for one state event and
// records the signal sample. Zero means no trade.
func (e *SignalEngine) PlanVolume(connID int, st models.MarketState, params models.StrategyParams) int {
	combined := CombineSignals(st.Momentum, st.Forecast, params)
	raw := combined * 3 * params.AggressiveFactor
	volume := ClampVolume(raw, st.Position, st.PositionLimit)

	e.state.RecordSignal(models.TradeSignal{
		ConnID:         connID,
		Timestamp:      time.Now(),
		Momentum:       st.Momentum,
		Forecast:       st.Forecast,
		CombinedSignal: combined,
		TradeVolume:    volume,
		Position:       st.Position,
	})
	return volume
}

// CombineSignals squashes momentum and forecast into (-1, 1) and mixes them
// by the configured weights.
func CombineSignals(momentum, forecast float64, params models.StrategyParams) float64 {
	momentumSignal := math.Tanh(momentum / 10)
	forecastSignal := math.Tanh(forecast * 2)
	return momentumSignal*params.MomentumWeight + forecastSignal*params.ForecastWeight
}

// ClampVolume rounds the raw volume to the nearest integer and keeps the
// resulting position within [-limit, +limit].
func ClampVolume(raw float64, position, limit int) int {
	switch {
	case raw > 0:
		return min(max(0, int(math.Round(raw))), limit-position)
	case raw < 0:
		return max(-(position + limit), min(0, int(math.Round(raw))))
	default:
		return 0
	}
}
