package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Aegizz/OptiverTradingGame/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	sessionsActive prometheus.Gauge
	eventsTotal    *prometheus.CounterVec
	tradesTotal    *prometheus.CounterVec
	volumeTotal    *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	reconnects     *prometheus.CounterVec
	readTimeouts   prometheus.Counter
	sessionPnL     *prometheus.GaugeVec
	optimizerRuns  *prometheus.CounterVec
	momentumWeight prometheus.Gauge
	forecastWeight prometheus.Gauge
	aggressiveness prometheus.Gauge
	latency        *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		sessionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "optiver_sessions_active",
				Help: "Number of currently connected game sessions",
			},
		),
		eventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optiver_events_received_total",
				Help: "Total number of inbound game events",
			},
			[]string{"event"},
		),
		tradesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optiver_trades_sent_total",
				Help: "Total number of trade commands sent",
			},
			[]string{"origin", "side"},
		),
		volumeTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optiver_traded_volume_total",
				Help: "Total traded units by side",
			},
			[]string{"side"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optiver_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		reconnects: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optiver_reconnects_total",
				Help: "Session attempts ended, by reason",
			},
			[]string{"reason"},
		),
		readTimeouts: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "optiver_read_timeouts_total",
				Help: "Receive windows that elapsed without an inbound frame",
			},
		),
		sessionPnL: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "optiver_session_pnl",
				Help: "Last reported PnL per connection",
			},
			[]string{"conn_id"},
		),
		optimizerRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optiver_optimizer_runs_total",
				Help: "Optimization passes by outcome",
			},
			[]string{"outcome"},
		),
		momentumWeight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "optiver_momentum_weight",
				Help: "Current momentum weight of the strategy",
			},
		),
		forecastWeight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "optiver_forecast_weight",
				Help: "Current forecast weight of the strategy",
			},
		),
		aggressiveness: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "optiver_aggressive_factor",
				Help: "Current aggressive factor of the strategy",
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "optiver_event_handling_seconds",
				Help:    "Duration of event handling in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"event"},
		),
	}
}

// SessionUp marks one more session as connected.
func (r *Recorder) SessionUp() {
	r.sessionsActive.Inc()
}

// SessionDown marks one session as disconnected.
func (r *Recorder) SessionDown() {
	r.sessionsActive.Dec()
}

// RecordEvent records one inbound event by type.
func (r *Recorder) RecordEvent(event string) {
	r.eventsTotal.WithLabelValues(event).Inc()
}

// RecordTrade records one sent trade and accumulates its magnitude.
func (r *Recorder) RecordTrade(origin string, volume int) {
	side := "buy"
	if volume < 0 {
		side = "sell"
		volume = -volume
	}
	r.tradesTotal.WithLabelValues(origin, side).Inc()
	r.volumeTotal.WithLabelValues(side).Add(float64(volume))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordReconnect records the end of a session attempt by reason.
func (r *Recorder) RecordReconnect(reason string) {
	r.reconnects.WithLabelValues(reason).Inc()
}

// RecordReadTimeout records one receive window that produced nothing.
func (r *Recorder) RecordReadTimeout() {
	r.readTimeouts.Inc()
}

// RecordPnL records the last reported PnL for a connection.
func (r *Recorder) RecordPnL(connID int, pnl float64) {
	r.sessionPnL.WithLabelValues(strconv.Itoa(connID)).Set(pnl)
}

// RecordOptimization records one optimization pass by outcome.
func (r *Recorder) RecordOptimization(outcome string) {
	r.optimizerRuns.WithLabelValues(outcome).Inc()
}

// RecordParams publishes the current strategy parameters.
func (r *Recorder) RecordParams(p models.StrategyParams) {
	r.momentumWeight.Set(p.MomentumWeight)
	r.forecastWeight.Set(p.ForecastWeight)
	r.aggressiveness.Set(p.AggressiveFactor)
}

// RecordLatency records event handling latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
