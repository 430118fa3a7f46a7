package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the engine's Prometheus instruments.
type metrics struct {
	ticks          prometheus.Counter
	tickDuration   prometheus.Histogram
	evaluations    prometheus.Counter
	signals        *prometheus.CounterVec
	openResults    *prometheus.CounterVec
	currencyErrors prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		ticks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "futuresbot",
			Name:      "scheduler_ticks_total",
			Help:      "Number of scheduler ticks executed.",
		}),
		tickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "futuresbot",
			Name:      "scheduler_tick_duration_seconds",
			Help:      "Wall time spent processing one scheduler tick.",
			Buckets:   prometheus.DefBuckets,
		}),
		evaluations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "futuresbot",
			Name:      "signal_evaluations_total",
			Help:      "Number of per-currency signal evaluations performed.",
		}),
		signals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "futuresbot",
			Name:      "signals_recorded_total",
			Help:      "Number of market signals recorded, by signal type.",
		}, []string{"type"}),
		openResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "futuresbot",
			Name:      "open_position_results_total",
			Help:      "Outcomes of automatic open-position attempts, by result type.",
		}, []string{"result"}),
		currencyErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "futuresbot",
			Name:      "currency_errors_total",
			Help:      "Per-currency pipeline failures that were isolated and skipped.",
		}),
	}
}
