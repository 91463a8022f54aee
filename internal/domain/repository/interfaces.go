package repository

import (
	"context"

	"github.com/Aegizz/OptiverTradingGame/internal/domain/models"
)

// GameStream is one session's bidirectional channel to the game server.
// Read delivers decoded envelopes until the connection fails or ctx is
// canceled; undecodable frames are dropped by the implementation, not
// surfaced as stream errors.
type GameStream interface {
	Connect(ctx context.Context) error
	Hello(alias string) error
	Send(env *models.Envelope) error
	Read(ctx context.Context) (<-chan *models.Envelope, <-chan error)
	Close() error
	IsConnected() bool
}

// StreamFactory builds a fresh stream for each connection attempt.
type StreamFactory func() GameStream

// Metrics records operational counters and gauges.
type Metrics interface {
	SessionUp()
	SessionDown()
	RecordEvent(event string)
	RecordTrade(origin string, volume int)
	RecordError(kind string)
	RecordReconnect(reason string)
	RecordReadTimeout()
	RecordPnL(connID int, pnl float64)
	RecordOptimization(outcome string)
	RecordParams(p models.StrategyParams)
	RecordLatency(op string, seconds float64)
}
