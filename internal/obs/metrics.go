// Package obs exposes the bot's Prometheus metrics:
//
//   - bot_ticks_total{symbol}           – quotes received per instrument
//   - bot_orders_total{contract_type}   – buy requests submitted
//   - bot_settlements_total{result}     – settled contracts (win|loss)
//   - bot_dropped_frames_total          – malformed inbound frames dropped
//   - bot_pnl_usd                       – cumulative realized PnL (gauge)
//   - bot_balance_usd                   – last reported account balance
//   - bot_session_state                 – connection lifecycle state (0-3)
//
// Registered in init() and served by the HTTP handler started in
// cmd/trader at /metrics.
package obs

import "github.com/prometheus/client_golang/prometheus"

var (
	mtxTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_ticks_total",
			Help: "Quotes received",
		},
		[]string{"symbol"},
	)

	mtxOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_orders_total",
			Help: "Buy requests submitted",
		},
		[]string{"contract_type"},
	)

	mtxSettlements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_settlements_total",
			Help: "Settled contracts by result",
		},
		[]string{"result"},
	)

	// Malformed frames are dropped, never fatal; this is the diagnostic
	// sink that keeps the drops visible.
	mtxDrops = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_dropped_frames_total",
			Help: "Malformed inbound frames dropped",
		},
	)

	mtxPnL = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_pnl_usd",
			Help: "Cumulative realized PnL in USD since last start",
		},
	)

	mtxBalance = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_balance_usd",
			Help: "Last reported account balance in USD",
		},
	)

	mtxSessionState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_session_state",
			Help: "Session lifecycle state (0=disconnected 1=connecting 2=authorizing 3=ready)",
		},
	)
)

func init() {
	prometheus.MustRegister(
		mtxTicks,
		mtxOrders,
		mtxSettlements,
		mtxDrops,
		mtxPnL,
		mtxBalance,
		mtxSessionState,
	)
}

func IncTick(symbol string) { mtxTicks.WithLabelValues(symbol).Inc() }

func IncOrder(contractType string) { mtxOrders.WithLabelValues(contractType).Inc() }

func IncSettlement(won bool) {
	result := "loss"
	if won {
		result = "win"
	}
	mtxSettlements.WithLabelValues(result).Inc()
}

func IncDrop() { mtxDrops.Inc() }

func SetPnL(v float64) { mtxPnL.Set(v) }

func SetBalance(v float64) { mtxBalance.Set(v) }

func SetSessionState(state int) { mtxSessionState.Set(float64(state)) }
