// Package metrics exposes engine counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yourusername/signal-engine/pkg/signal"
)

var (
	ticksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signal_engine_ticks_total",
		Help: "Ticks evaluated, by strategy, symbol and result kind.",
	}, []string{"strategy", "symbol", "kind"})

	signalsOpened = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signal_engine_signals_opened_total",
		Help: "Signals that entered monitoring.",
	}, []string{"strategy", "symbol"})

	signalsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signal_engine_signals_closed_total",
		Help: "Signals closed, by reason.",
	}, []string{"strategy", "symbol", "reason"})

	signalsCancelled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signal_engine_signals_cancelled_total",
		Help: "Scheduled signals cancelled, by reason.",
	}, []string{"strategy", "symbol", "reason"})

	activeSignals = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "signal_engine_active_signals",
		Help: "Signals currently in monitoring.",
	}, []string{"strategy", "symbol"})

	pnlPercent = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "signal_engine_pnl_percent",
		Help:    "Cost-adjusted PnL percent of closed signals.",
		Buckets: []float64{-10, -5, -2, -1, -0.5, 0, 0.5, 1, 2, 5, 10},
	}, []string{"strategy", "symbol"})

	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "signal_engine_tick_duration_seconds",
		Help:    "Wall time of a single tick.",
		Buckets: prometheus.DefBuckets,
	})
)

// ObserveTick records one tick outcome.
func ObserveTick(strategy, symbol string, res *signal.TickResult, elapsed time.Duration) {
	tickDuration.Observe(elapsed.Seconds())
	if res == nil {
		return
	}
	ticksTotal.WithLabelValues(strategy, symbol, string(res.Kind)).Inc()

	switch res.Kind {
	case signal.KindOpened:
		signalsOpened.WithLabelValues(strategy, symbol).Inc()
		activeSignals.WithLabelValues(strategy, symbol).Set(1)
	case signal.KindClosed:
		signalsClosed.WithLabelValues(strategy, symbol, string(res.CloseReason)).Inc()
		activeSignals.WithLabelValues(strategy, symbol).Set(0)
		if res.PnL != nil {
			pnlPercent.WithLabelValues(strategy, symbol).Observe(res.PnL.PnLPercentage)
		}
	case signal.KindCancelled:
		signalsCancelled.WithLabelValues(strategy, symbol, string(res.CancelReason)).Inc()
	}
}

// Handler returns the /metrics handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve starts a blocking metrics server on addr.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return http.ListenAndServe(addr, mux)
}
