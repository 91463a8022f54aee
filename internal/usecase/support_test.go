package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Aegizz/OptiverTradingGame/internal/domain/models"
	applogger "github.com/Aegizz/OptiverTradingGame/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) SessionUp()                         {}
func (nopMetrics) SessionDown()                       {}
func (nopMetrics) RecordEvent(string)                 {}
func (nopMetrics) RecordTrade(string, int)            {}
func (nopMetrics) RecordError(string)                 {}
func (nopMetrics) RecordReconnect(string)             {}
func (nopMetrics) RecordReadTimeout()                 {}
func (nopMetrics) RecordPnL(int, float64)             {}
func (nopMetrics) RecordOptimization(string)          {}
func (nopMetrics) RecordParams(models.StrategyParams) {}
func (nopMetrics) RecordLatency(string, float64)      {}

// countingMetrics tracks the counters the tests assert on.
type countingMetrics struct {
	nopMetrics
	mu           sync.Mutex
	readTimeouts int
	reconnects   map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{reconnects: make(map[string]int)}
}

func (m *countingMetrics) RecordReadTimeout() {
	m.mu.Lock()
	m.readTimeouts++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordReconnect(reason string) {
	m.mu.Lock()
	m.reconnects[reason]++
	m.mu.Unlock()
}

func (m *countingMetrics) timeouts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readTimeouts
}

func (m *countingMetrics) reconnectCount(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconnects[reason]
}

func newTestLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func testState() *StrategyState {
	return NewStrategyState(models.DefaultStrategyParams(), 20, NewOptimizer(time.Minute, 10, 5, -5))
}

// fakeStream scripts a session's inbound events and records every
// outbound envelope.
type fakeStream struct {
	mu         sync.Mutex
	sent       []*models.Envelope
	helloAlias string
	connected  bool
	closed     bool

	connectErr error
	sendErr    error

	inbound chan *models.Envelope
	errch   chan error

	onConnect func()
	onClose   func()
}

func newFakeStream(script ...*models.Envelope) *fakeStream {
	f := &fakeStream{
		inbound: make(chan *models.Envelope, len(script)+8),
		errch:   make(chan error, 1),
	}
	for _, env := range script {
		f.inbound <- env
	}
	return f
}

func (f *fakeStream) Connect(ctx context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.mu.Lock()
	f.connected = true
	f.mu.Unlock()
	if f.onConnect != nil {
		f.onConnect()
	}
	return nil
}

func (f *fakeStream) Hello(alias string) error {
	f.mu.Lock()
	f.helloAlias = alias
	f.mu.Unlock()
	return nil
}

func (f *fakeStream) Send(env *models.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, env)
	return nil
}

func (f *fakeStream) Read(ctx context.Context) (<-chan *models.Envelope, <-chan error) {
	return f.inbound, f.errch
}

func (f *fakeStream) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.connected = false
	f.mu.Unlock()
	if f.onClose != nil {
		f.onClose()
	}
	return nil
}

func (f *fakeStream) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeStream) Sent() []*models.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Envelope, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeStream) alias() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.helloAlias
}

func (f *fakeStream) push(env *models.Envelope) {
	f.inbound <- env
}

func (f *fakeStream) fail(err error) {
	f.errch <- err
}

func ackFor(playerID string) *models.Envelope {
	return &models.Envelope{
		Event: models.EventConnection,
		Data:  map[string]any{"player_id": playerID},
	}
}

func stateEvent(forecast, momentum float64, position, limit int, pnl float64) *models.Envelope {
	return &models.Envelope{
		Event: models.EventState,
		Data: map[string]any{
			"price":          100.0,
			"price_forecast": forecast,
			"momentum":       momentum,
			"position":       position,
			"position_limit": limit,
			"pnl":            pnl,
		},
	}
}

func endEvent(pnl float64) *models.Envelope {
	return &models.Envelope{
		Event: models.EventEnd,
		Data:  map[string]any{"pnl": pnl},
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}
