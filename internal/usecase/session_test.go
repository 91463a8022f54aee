package usecase

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/Aegizz/OptiverTradingGame/internal/domain/models"
)

func newWorker(t *testing.T, stream *fakeStream, state *StrategyState) *SessionWorker {
	t.Helper()
	return NewSessionWorker(
		models.SessionIdentity{ConnID: 0, Alias: "trader-0"},
		"pid-1",
		time.Second,
		stream,
		state,
		NewSignalEngine(state),
		nopMetrics{},
		newTestLogger(t),
	)
}

func TestSessionHandshakeAndGameOver(t *testing.T) {
	f := newFakeStream(ackFor("pid-1"), endEvent(42.5))
	state := testState()

	res := newWorker(t, f, state).Run(context.Background())
	if res.Reason != ReasonFinished {
		t.Fatalf("reason %v err %v", res.Reason, res.Err)
	}
	if res.FinalPnL != 42.5 {
		t.Fatalf("final pnl %v", res.FinalPnL)
	}

	sent := f.Sent()
	if len(sent) != 1 || sent[0].Event != models.EventStart {
		t.Fatalf("expected only the start command, got %d frames", len(sent))
	}
	if f.alias() != "trader-0" {
		t.Fatalf("hello alias %q", f.alias())
	}
	if f.IsConnected() {
		t.Fatalf("stream left open")
	}
}

func TestSessionIgnoresForeignAck(t *testing.T) {
	f := newFakeStream(
		ackFor("someone-else"),
		stateEvent(0.8, 12, 0, 3, 0),
		ackFor("pid-1"),
		endEvent(0),
	)
	state := testState()

	res := newWorker(t, f, state).Run(context.Background())
	if res.Reason != ReasonFinished {
		t.Fatalf("reason %v err %v", res.Reason, res.Err)
	}

	// the state arrived before our ack, so no trade was planned off it
	sent := f.Sent()
	if len(sent) != 1 || sent[0].Event != models.EventStart {
		t.Fatalf("pre-ack state should be ignored, sent %d frames", len(sent))
	}
	if got := state.ConnStats(0).TradesMade; got != 0 {
		t.Fatalf("trades before handshake: %d", got)
	}
}

func TestSessionTradesOnState(t *testing.T) {
	f := newFakeStream(
		ackFor("pid-1"),
		stateEvent(0.8, 12, 0, 3, 0),
		endEvent(10),
	)
	state := testState()

	res := newWorker(t, f, state).Run(context.Background())
	if res.Reason != ReasonFinished || res.FinalPnL != 10 {
		t.Fatalf("unexpected result %+v", res)
	}

	sent := f.Sent()
	if len(sent) != 2 {
		t.Fatalf("expected start and trade, got %d frames", len(sent))
	}
	trade := sent[1]
	if trade.Event != models.EventTrade || trade.PlayerID != "pid-1" {
		t.Fatalf("unexpected trade frame %+v", trade)
	}
	if got := trade.Int("volume", 0); got != 3 {
		t.Fatalf("trade volume %d", got)
	}

	cs := state.ConnStats(0)
	if cs.TradesMade != 1 {
		t.Fatalf("trades made %d", cs.TradesMade)
	}
	if sigs := state.Signals(); len(sigs) != 1 || sigs[0].TradeVolume != 3 {
		t.Fatalf("unexpected signal history %+v", sigs)
	}
	// first state has no trade baseline yet
	if perf := state.Performance(); len(perf) != 0 {
		t.Fatalf("performance recorded without baseline: %+v", perf)
	}
}

func TestSessionRecordsPerformanceAfterBaseline(t *testing.T) {
	f := newFakeStream(
		ackFor("pid-1"),
		stateEvent(0.8, 12, 0, 3, 0),
		stateEvent(0.8, 12, 3, 3, 7),
		endEvent(7),
	)
	state := testState()

	res := newWorker(t, f, state).Run(context.Background())
	if res.Reason != ReasonFinished {
		t.Fatalf("reason %v err %v", res.Reason, res.Err)
	}

	perf := state.Performance()
	if len(perf) != 1 {
		t.Fatalf("expected 1 performance sample, got %d", len(perf))
	}
	if perf[0].PnLChange != 7 || perf[0].TotalPnL != 7 {
		t.Fatalf("unexpected sample %+v", perf[0])
	}
}

func TestSessionPuzzle(t *testing.T) {
	f := newFakeStream(
		ackFor("pid-1"),
		&models.Envelope{Event: models.EventPuzzle, Data: map[string]any{"impact": -7.0}},
		endEvent(0),
	)
	state := testState()

	res := newWorker(t, f, state).Run(context.Background())
	if res.Reason != ReasonFinished {
		t.Fatalf("reason %v err %v", res.Reason, res.Err)
	}

	sent := f.Sent()
	if len(sent) != 3 {
		t.Fatalf("expected start, trade, skip; got %d frames", len(sent))
	}
	if sent[1].Event != models.EventTrade || sent[1].Int("volume", 0) != -3 {
		t.Fatalf("unexpected puzzle trade %+v", sent[1])
	}
	if sent[2].Event != models.EventSkip {
		t.Fatalf("expected skip, got %q", sent[2].Event)
	}
	// puzzle trades do not count toward the ledger
	if got := state.ConnStats(0).TradesMade; got != 0 {
		t.Fatalf("puzzle trade counted: %d", got)
	}
}

func TestSessionPuzzleZeroImpactSkipsOnly(t *testing.T) {
	f := newFakeStream(
		ackFor("pid-1"),
		&models.Envelope{Event: models.EventPuzzle, Data: map[string]any{"impact": 0.0}},
		endEvent(0),
	)

	res := newWorker(t, f, testState()).Run(context.Background())
	if res.Reason != ReasonFinished {
		t.Fatalf("reason %v err %v", res.Reason, res.Err)
	}

	sent := f.Sent()
	if len(sent) != 2 || sent[1].Event != models.EventSkip {
		t.Fatalf("expected start then skip, got %d frames", len(sent))
	}
}

func TestSessionStreamFault(t *testing.T) {
	f := newFakeStream(ackFor("pid-1"))
	state := testState()
	w := newWorker(t, f, state)

	done := make(chan SessionResult, 1)
	go func() { done <- w.Run(context.Background()) }()

	waitFor(t, func() bool { return len(f.Sent()) == 1 })
	f.fail(io.ErrUnexpectedEOF)

	res := <-done
	if res.Reason != ReasonConnFault {
		t.Fatalf("reason %v", res.Reason)
	}
	if !errors.Is(res.Err, io.ErrUnexpectedEOF) {
		t.Fatalf("unexpected error %v", res.Err)
	}
}

func TestSessionConnectFailure(t *testing.T) {
	f := newFakeStream()
	f.connectErr = errors.New("dial refused")

	res := newWorker(t, f, testState()).Run(context.Background())
	if res.Reason != ReasonConnFault || res.Err == nil {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestSessionCancel(t *testing.T) {
	f := newFakeStream(ackFor("pid-1"))
	w := newWorker(t, f, testState())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan SessionResult, 1)
	go func() { done <- w.Run(ctx) }()

	waitFor(t, func() bool { return len(f.Sent()) == 1 })
	cancel()

	res := <-done
	if res.Reason != ReasonCanceled {
		t.Fatalf("reason %v", res.Reason)
	}
}

func TestSessionSurvivesReadTimeouts(t *testing.T) {
	f := newFakeStream(ackFor("pid-1"))
	state := testState()
	metrics := newCountingMetrics()
	w := NewSessionWorker(
		models.SessionIdentity{ConnID: 0, Alias: "trader-0"},
		"pid-1",
		10*time.Millisecond,
		f,
		state,
		NewSignalEngine(state),
		metrics,
		newTestLogger(t),
	)

	done := make(chan SessionResult, 1)
	go func() { done <- w.Run(context.Background()) }()

	waitFor(t, func() bool { return metrics.timeouts() >= 3 })
	f.push(endEvent(5))

	res := <-done
	if res.Reason != ReasonFinished || res.FinalPnL != 5 {
		t.Fatalf("session did not survive quiet windows: %+v", res)
	}
}
