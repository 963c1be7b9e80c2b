// Package metrics provides Prometheus metrics for the matching engine
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// OrdersAccepted 按类型与最终状态统计被引擎接受的订单。
	OrdersAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_orders_accepted_total",
		Help: "Accepted submissions by type and resulting status",
	}, []string{"symbol", "type", "status"})

	// OrdersRejected 校验失败 / FOK 预检失败的订单。
	OrdersRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_orders_rejected_total",
		Help: "Rejected submissions by reason",
	}, []string{"symbol", "reason"})

	// OrdersCancelled 通过撤单接口移除的挂单。
	OrdersCancelled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_orders_cancelled_total",
		Help: "Resting orders removed via cancel",
	}, []string{"symbol"})

	// TradesExecuted 撮合产生的成交笔数。
	TradesExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_trades_total",
		Help: "Executed trades",
	}, []string{"symbol"})

	// SymbolsHalted 因不变量被破坏而隔离的交易对数量。
	SymbolsHalted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_symbols_halted_total",
		Help: "Symbols quarantined after an invariant violation",
	})

	// StreamClients 各主题当前的 WebSocket 订阅数。
	StreamClients = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "engine_stream_clients",
		Help: "Connected stream subscribers per topic",
	}, []string{"topic"})

	submitLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "engine_submit_latency_seconds",
		Help:    "Submission processing time",
		Buckets: prometheus.DefBuckets,
	}, []string{"symbol"})
)

// SubmitTimer times one submission; ObserveDuration records it.
func SubmitTimer(symbol string) *prometheus.Timer {
	return prometheus.NewTimer(submitLatency.WithLabelValues(symbol))
}

// StartMetricsServer 启动Prometheus指标服务器
func StartMetricsServer(addr string) {
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(addr, nil)
	}()
}
