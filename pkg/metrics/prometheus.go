package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	jobsTotal        *prometheus.CounterVec
	tradesTotal      *prometheus.CounterVec
	validationsTotal *prometheus.CounterVec
	equity           *prometheus.GaugeVec
	latency          *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		jobsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradeforge_jobs_total",
				Help: "Training jobs processed, by terminal status",
			},
			[]string{"symbol", "status"},
		),
		tradesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradeforge_trades_total",
				Help: "Simulated trades closed during backtests",
			},
			[]string{"symbol", "outcome"},
		),
		validationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradeforge_validations_total",
				Help: "Walk-forward validation runs, by decision",
			},
			[]string{"symbol", "decision"},
		),
		equity: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tradeforge_backtest_equity",
				Help: "Running balance of the active backtest",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradeforge_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordJob records a job reaching a terminal status.
func (r *Recorder) RecordJob(symbol, status string) {
	r.jobsTotal.WithLabelValues(symbol, status).Inc()
}

// RecordTrade records a closed simulated trade.
func (r *Recorder) RecordTrade(symbol string, won bool) {
	outcome := "loss"
	if won {
		outcome = "win"
	}
	r.tradesTotal.WithLabelValues(symbol, outcome).Inc()
}

// RecordValidation records a validation run's decision.
func (r *Recorder) RecordValidation(symbol string, approved bool) {
	decision := "rejected"
	if approved {
		decision = "approved"
	}
	r.validationsTotal.WithLabelValues(symbol, decision).Inc()
}

// RecordEquity records the running balance for a symbol's backtest.
func (r *Recorder) RecordEquity(symbol string, equity float64) {
	r.equity.WithLabelValues(symbol).Set(equity)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
