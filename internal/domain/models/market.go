package models

import "time"

// MarketState is the snapshot carried by one state event. It is consumed
// while handling that event and not retained.
type MarketState struct {
	Price         float64
	Forecast      float64
	Momentum      float64
	Position      int
	PositionLimit int
	PnL           float64
}

// MarketStateFrom extracts a snapshot from a state envelope, applying the
// server's defaults for absent keys.
func MarketStateFrom(e *Envelope) MarketState {
	return MarketState{
		Price:         e.Float("price", 0),
		Forecast:      e.Float("price_forecast", 0),
		Momentum:      e.Float("momentum", 0),
		Position:      e.Int("position", 0),
		PositionLimit: e.Int("position_limit", 3),
		PnL:           e.Float("pnl", 0),
	}
}

// SessionIdentity ties a pool slot to the alias it plays under. Immutable
// for the life of one worker attempt; the slot is reused across reconnects.
type SessionIdentity struct {
	ConnID int
	Alias  string
}

// TradeSignal records one volume computation for later optimization.
type TradeSignal struct {
	ConnID         int       `json:"conn_id"`
	Timestamp      time.Time `json:"timestamp"`
	Momentum       float64   `json:"momentum"`
	Forecast       float64   `json:"forecast"`
	CombinedSignal float64   `json:"combined_signal"`
	TradeVolume    int       `json:"trade_volume"`
	Position       int       `json:"position"`
}

// PerformanceSample records the PnL movement observed on one state event.
type PerformanceSample struct {
	ConnID      int       `json:"conn_id"`
	Timestamp   time.Time `json:"timestamp"`
	Momentum    float64   `json:"momentum"`
	Forecast    float64   `json:"forecast"`
	Position    int       `json:"position"`
	TradeVolume int       `json:"trade_volume"`
	PnLChange   float64   `json:"pnl_change"`
	Price       float64   `json:"price"`
	TotalPnL    float64   `json:"total_pnl"`
}

// ConnStats is one slot's ledger entry. It is created on first sight of the
// slot and survives reconnects; only process shutdown discards it.
type ConnStats struct {
	LastPnL          float64 `json:"last_pnl"`
	TradesMade       int     `json:"trades_made"`
	SuccessfulTrades int     `json:"successful_trades"`
}
