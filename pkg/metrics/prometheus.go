package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	scanDuration  prometheus.Histogram
	generated     prometheus.Counter
	errorsTotal   *prometheus.CounterVec
	refreshTotal  *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	activeSignals prometheus.Gauge
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		scanDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sigpull_scan_duration_seconds",
				Help:    "Duration of signal generation passes",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
		),
		generated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sigpull_signals_generated_total",
				Help: "Total signals created",
			},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigpull_analysis_errors_total",
				Help: "Total analysis pipeline errors by stage",
			},
			[]string{"stage"},
		),
		refreshTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigpull_refresh_signals_total",
				Help: "Signals touched by price refreshes",
			},
			[]string{"outcome"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sigpull_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		activeSignals: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sigpull_active_signals",
				Help: "Signals currently being tracked",
			},
		),
	}
}

// RecordScan records the outcome of one generation pass.
func (r *Recorder) RecordScan(seconds float64, generated int) {
	r.scanDuration.Observe(seconds)
	r.generated.Add(float64(generated))
}

// RecordAnalysisError records a pipeline error by stage.
func (r *Recorder) RecordAnalysisError(stage string) {
	r.errorsTotal.WithLabelValues(stage).Inc()
}

// RecordRefresh records the outcome of one price refresh pass.
func (r *Recorder) RecordRefresh(updated, closed int) {
	r.refreshTotal.WithLabelValues("updated").Add(float64(updated))
	r.refreshTotal.WithLabelValues("closed").Add(float64(closed))
}

// RecordLastPrice records the last price seen for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// SetActiveSignals records the tracked signal count.
func (r *Recorder) SetActiveSignals(n int) {
	r.activeSignals.Set(float64(n))
}
