// Package metrics exposes the engine's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics on a private registry, so tests can
// create as many as they like without collisions.
type Registry struct {
	*prometheus.Registry

	ticksProcessed prometheus.Counter
	signals        *prometheus.CounterVec
	orders         *prometheus.CounterVec
	riskRejections *prometheus.CounterVec
	balance        prometheus.Gauge
	equity         prometheus.Gauge
	drawdownPct    prometheus.Gauge
	openPositions  prometheus.Gauge
	tradingEnabled prometheus.Gauge
}

// NewRegistry creates a metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		ticksProcessed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "goldcore_ticks_processed_total",
				Help: "Total number of ticks run through the pipeline",
			},
		),
		signals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldcore_signals_total",
				Help: "Actionable signals produced, by direction",
			},
			[]string{"direction"},
		),
		orders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldcore_orders_total",
				Help: "Order requests by action and result",
			},
			[]string{"action", "result"},
		),
		riskRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldcore_risk_rejections_total",
				Help: "Signals rejected by a risk gate, by gate",
			},
			[]string{"gate"},
		),
		balance: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "goldcore_balance",
				Help: "Current realized balance",
			},
		),
		equity: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "goldcore_equity",
				Help: "Current equity",
			},
		),
		drawdownPct: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "goldcore_drawdown_percent",
				Help: "Equity drawdown from the high-water mark, percent",
			},
		),
		openPositions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "goldcore_open_positions",
				Help: "Open positions owned by the engine",
			},
		),
		tradingEnabled: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "goldcore_trading_enabled",
				Help: "1 while the engine may open new positions, 0 otherwise",
			},
		),
	}

	reg.MustRegister(r.ticksProcessed)
	reg.MustRegister(r.signals)
	reg.MustRegister(r.orders)
	reg.MustRegister(r.riskRejections)
	reg.MustRegister(r.balance)
	reg.MustRegister(r.equity)
	reg.MustRegister(r.drawdownPct)
	reg.MustRegister(r.openPositions)
	reg.MustRegister(r.tradingEnabled)

	return r
}

// Handler returns the HTTP handler serving this registry in the Prometheus
// text exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{})
}

// RecordTick records one pipeline pass.
func (r *Registry) RecordTick() {
	r.ticksProcessed.Inc()
}

// RecordSignal records an actionable signal.
func (r *Registry) RecordSignal(direction string) {
	r.signals.WithLabelValues(direction).Inc()
}

// RecordOrder records an order request outcome. Action is open, close,
// modify or pending; result is filled or rejected.
func (r *Registry) RecordOrder(action, result string) {
	r.orders.WithLabelValues(action, result).Inc()
}

// RecordRiskRejection records a signal stopped by the named risk gate.
func (r *Registry) RecordRiskRejection(gate string) {
	r.riskRejections.WithLabelValues(gate).Inc()
}

// SetAccountState sets the balance, equity and drawdown gauges.
func (r *Registry) SetAccountState(balance, equity, drawdownPct float64) {
	r.balance.Set(balance)
	r.equity.Set(equity)
	r.drawdownPct.Set(drawdownPct)
}

// SetOpenPositions sets the open position gauge.
func (r *Registry) SetOpenPositions(count int) {
	r.openPositions.Set(float64(count))
}

// SetTradingEnabled flips the trading-enabled gauge.
func (r *Registry) SetTradingEnabled(enabled bool) {
	if enabled {
		r.tradingEnabled.Set(1)
	} else {
		r.tradingEnabled.Set(0)
	}
}
