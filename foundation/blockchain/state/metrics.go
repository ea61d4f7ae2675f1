package state

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricBlocksAccepted prometheus.Counter
	metricBlocksRejected *prometheus.CounterVec
	metricTxAccepted     prometheus.Counter
	metricTxRejected     *prometheus.CounterVec
	metricHeight         prometheus.Gauge
	metricMempool        prometheus.Gauge

	// Registered once per process no matter how many states are built.
	metricsInitOnce sync.Once
)

func initMetrics() {
	metricsInitOnce.Do(registerMetrics)
}

func registerMetrics() {
	metricBlocksAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "blocks_accepted",
			Help:      "Number of blocks committed to the chain",
		},
	)
	metricBlocksRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "blocks_rejected",
			Help:      "Number of blocks rejected",
		},
		[]string{
			"reason", // rule the block broke
		},
	)
	metricTxAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "tx_accepted",
			Help:      "Number of wallet transactions accepted into the mempool",
		},
	)
	metricTxRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "tx_rejected",
			Help:      "Number of wallet transactions rejected",
		},
		[]string{
			"reason", // rule the transaction broke
		},
	)
	metricHeight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ledger",
			Name:      "chain_height",
			Help:      "Height of the latest block",
		},
	)
	metricMempool = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ledger",
			Name:      "mempool_size",
			Help:      "Number of transactions waiting in the mempool",
		},
	)
}
