package models

// StrategyParams weight the momentum and forecast signals and scale the
// resulting volume. Owned by the strategy state; replaced only as a whole
// set per optimization pass.
type StrategyParams struct {
	MomentumWeight          float64 `json:"momentum_weight"`
	ForecastWeight          float64 `json:"forecast_weight"`
	StrongMomentumThreshold float64 `json:"strong_momentum_threshold"`
	MediumMomentumThreshold float64 `json:"medium_momentum_threshold"`
	AggressiveFactor        float64 `json:"aggressive_factor"`
}

// DefaultStrategyParams returns the parameter set every run starts from.
func DefaultStrategyParams() StrategyParams {
	return StrategyParams{
		MomentumWeight:          0.6,
		ForecastWeight:          0.4,
		StrongMomentumThreshold: 10,
		MediumMomentumThreshold: 5,
		AggressiveFactor:        1.5,
	}
}
