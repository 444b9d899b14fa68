package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ProfitPct = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arb_profit_pct",
		Help: "Estimated profit percentage of the last evaluated cycle",
	})

	NetProfit = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arb_net_profit_sol",
		Help: "Estimated net profit (SOL) of the last evaluated cycle",
	})

	WalletBalance = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arb_wallet_balance_sol",
		Help: "Wallet base-asset balance (SOL)",
	})

	NetworkFee = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arb_network_fee_sol",
		Help: "Estimated per-transaction network fee (SOL)",
	})

	Iterations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_iterations_total",
		Help: "Completed detect-evaluate cycles",
	})

	IterationErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_iteration_errors_total",
		Help: "Iterations aborted by a recoverable error",
	})

	TradesExecuted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_trades_total",
		Help: "Arbitrage cycles submitted for execution",
	})

	SubmissionErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_submission_errors_total",
		Help: "Swap legs that failed at submission",
	})

	OracleLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "arb_oracle_latency_seconds",
		Help:    "Time to fetch both reserves of a pool",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		ProfitPct,
		NetProfit,
		WalletBalance,
		NetworkFee,
		Iterations,
		IterationErrors,
		TradesExecuted,
		SubmissionErrors,
		OracleLatency,
	)
}
