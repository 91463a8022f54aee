package vega

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

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

type countingMetrics struct {
	nopMetrics
	mu     sync.Mutex
	errors map[string]int
}

func (m *countingMetrics) RecordError(kind string) {
	m.mu.Lock()
	if m.errors == nil {
		m.errors = make(map[string]int)
	}
	m.errors[kind]++
	m.mu.Unlock()
}

func (m *countingMetrics) errorCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

func newTestLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

var upgrader = websocket.Upgrader{}

// gameServer upgrades one connection and runs handler on it.
func gameServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func mustRecv(t *testing.T, envs <-chan *models.Envelope) *models.Envelope {
	t.Helper()
	select {
	case env, ok := <-envs:
		if !ok {
			t.Fatalf("stream closed early")
		}
		return env
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for envelope")
	}
	return nil
}

func TestClientHelloAndRead(t *testing.T) {
	received := make(chan *models.Envelope, 1)
	srv := gameServer(t, func(conn *websocket.Conn) {
		var hello models.Envelope
		if err := conn.ReadJSON(&hello); err != nil {
			return
		}
		received <- &hello

		conn.WriteJSON(map[string]any{"event": "connection", "data": map[string]any{"player_id": "pid-1"}})
		conn.WriteJSON(map[string]any{"event": "state", "data": map[string]any{"price": 100.5, "momentum": -2.0}})

		// hold the connection open until the client hangs up
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	c := New(wsURL(srv), "pid-1", "tok", time.Second, newTestLogger(t), nopMetrics{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()
	if !c.IsConnected() {
		t.Fatalf("expected connected")
	}

	if err := c.Hello("trader-0"); err != nil {
		t.Fatalf("hello: %v", err)
	}

	select {
	case hello := <-received:
		if hello.Event != models.EventConnection {
			t.Fatalf("hello event %q", hello.Event)
		}
		if hello.Str("alias") != "trader-0" || hello.Str("player_id") != "pid-1" || hello.Str("token") != "tok" {
			t.Fatalf("unexpected hello data %+v", hello.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("server never saw the hello")
	}

	envs, _ := c.Read(ctx)
	env := mustRecv(t, envs)
	if env.Event != models.EventConnection || env.Str("player_id") != "pid-1" {
		t.Fatalf("unexpected first envelope %+v", env)
	}
	env = mustRecv(t, envs)
	if env.Event != models.EventState || env.Float("price", 0) != 100.5 {
		t.Fatalf("unexpected second envelope %+v", env)
	}
}

func TestClientSkipsMalformedFrames(t *testing.T) {
	srv := gameServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		conn.WriteJSON(map[string]any{"event": "state", "data": map[string]any{"price": 99.0}})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	metrics := &countingMetrics{}
	c := New(wsURL(srv), "pid-1", "", time.Second, newTestLogger(t), metrics)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	envs, _ := c.Read(ctx)
	env := mustRecv(t, envs)
	if env.Event != models.EventState || env.Float("price", 0) != 99.0 {
		t.Fatalf("expected the frame after the bad one, got %+v", env)
	}
	if got := metrics.errorCount("decode"); got != 1 {
		t.Fatalf("decode errors %d", got)
	}
}

func TestClientReadFailsOnServerClose(t *testing.T) {
	srv := gameServer(t, func(conn *websocket.Conn) {
		conn.WriteJSON(map[string]any{"event": "state", "data": map[string]any{}})
		// return closes the connection
	})

	c := New(wsURL(srv), "pid-1", "", time.Second, newTestLogger(t), nopMetrics{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	envs, errs := c.Read(ctx)
	mustRecv(t, envs)

	select {
	case err := <-errs:
		if err == nil {
			t.Fatalf("expected a read error")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no error after server close")
	}
}

func TestClientSendBeforeConnect(t *testing.T) {
	c := New("ws://127.0.0.1:0", "pid-1", "", time.Second, newTestLogger(t), nopMetrics{})
	err := c.Send(models.NewSkip())
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if c.IsConnected() {
		t.Fatalf("unexpected connected state")
	}
}

func TestClientCloseUnblocksRead(t *testing.T) {
	srv := gameServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	c := New(wsURL(srv), "pid-1", "", time.Second, newTestLogger(t), nopMetrics{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}

	envs, _ := c.Read(ctx)
	time.Sleep(20 * time.Millisecond)
	c.Close()

	select {
	case _, ok := <-envs:
		if ok {
			t.Fatalf("unexpected envelope after close")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("read still blocked after close")
	}
	if c.IsConnected() {
		t.Fatalf("still connected after close")
	}
}
