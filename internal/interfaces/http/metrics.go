package httpinterface

import (
	"math/big"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tdex-network/ctf-amm/internal/core/application"
	"github.com/tdex-network/ctf-amm/internal/core/domain"
)

const metricsNamespace = "amm"

// Metrics collects the market statistics exposed at /metrics. It's kept up
// to date by being registered as an event handler of the market service.
type Metrics struct {
	registry *prometheus.Registry

	events        *prometheus.CounterVec
	trades        prometheus.Counter
	collateralIn  prometheus.Counter
	collateralOut prometheus.Counter
	fees          prometheus.Counter
	withdrawn     prometheus.Counter
	funding       prometheus.Gauge
	fee           prometheus.Gauge
	stage         prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_total",
			Help:      "Number of committed market events by type.",
		}, []string{"type"}),
		trades: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "trades_total",
			Help:      "Number of trades.",
		}),
		collateralIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "trade_collateral_in_total",
			Help:      "Outcome token net cost paid by traders.",
		}),
		collateralOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "trade_collateral_out_total",
			Help:      "Outcome token net cost paid to traders.",
		}),
		fees: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "trade_fees_total",
			Help:      "Fees charged on trades.",
		}),
		withdrawn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "fees_withdrawn_total",
			Help:      "Collateral withdrawn by the owner.",
		}),
		funding: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "market_funding",
			Help:      "Collateral backing the market.",
		}),
		fee: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "market_fee",
			Help:      "Fee rate of the market, scaled by 1e18.",
		}),
		stage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "market_stage",
			Help:      "Stage of the market: 0 running, 1 paused, 2 closed.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.events, m.trades, m.collateralIn, m.collateralOut, m.fees,
		m.withdrawn, m.funding, m.fee, m.stage,
	)
	return m
}

// SetMarket initializes the gauges with the current state of the market.
func (m *Metrics) SetMarket(info *application.MarketInfo) {
	m.funding.Set(toFloat(info.Funding))
	m.fee.Set(toFloat(info.Fee))
	m.stage.Set(float64(info.Stage))
}

// HandleEvent updates the metrics with the given committed event.
func (m *Metrics) HandleEvent(event domain.Event) {
	m.events.WithLabelValues(event.Type.String()).Inc()

	switch event.Type {
	case domain.EventTrade:
		m.trades.Inc()
		cost := toFloat(event.OutcomeTokenNetCost)
		if cost > 0 {
			m.collateralIn.Add(cost)
		} else {
			m.collateralOut.Add(-cost)
		}
		m.fees.Add(toFloat(event.MarketFees))
	case domain.EventFundingChanged:
		m.funding.Add(toFloat(event.Amount))
	case domain.EventFeeChanged:
		m.fee.Set(toFloat(event.Fee))
	case domain.EventFeesWithdrawn:
		m.withdrawn.Add(toFloat(event.Amount))
	case domain.EventPaused:
		m.stage.Set(float64(domain.StagePaused))
	case domain.EventResumed:
		m.stage.Set(float64(domain.StageRunning))
	case domain.EventClosed:
		m.stage.Set(float64(domain.StageClosed))
	case domain.EventMarketCreated:
		m.stage.Set(float64(domain.StagePaused))
		m.fee.Set(toFloat(event.Fee))
		m.funding.Set(0)
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func toFloat(n *big.Int) float64 {
	if n == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(n).Float64()
	return f
}
