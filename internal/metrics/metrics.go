// Package metrics implements the processing metrics collector on top of
// Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"payflow/internal/domain"
)

// Collector exposes pipeline counters, gauges and histograms.
type Collector struct {
	invoicesProcessed  *prometheus.CounterVec
	invoiceErrors      *prometheus.CounterVec
	processingDuration prometheus.Histogram
	invoiceAmount      prometheus.Histogram
	confidenceScore    prometheus.Histogram
	queueSize          prometheus.Gauge
	activeWorkers      prometheus.Gauge
}

// NewCollector registers the pipeline metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		invoicesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payflow",
			Name:      "invoices_processed_total",
			Help:      "Invoices processed, by final workflow status.",
		}, []string{"status"}),
		invoiceErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payflow",
			Name:      "invoice_errors_total",
			Help:      "Processing errors, by error type.",
		}, []string{"error_type"}),
		processingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "payflow",
			Name:      "processing_duration_seconds",
			Help:      "End-to-end per-invoice processing time.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		invoiceAmount: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "payflow",
			Name:      "invoice_amount",
			Help:      "Distribution of processed invoice amounts in the default currency.",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 7),
		}),
		confidenceScore: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "payflow",
			Name:      "match_confidence_score",
			Help:      "Distribution of three-way match confidence scores.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		queueSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "payflow",
			Name:      "queue_size",
			Help:      "Invoices queued in the current batch.",
		}),
		activeWorkers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "payflow",
			Name:      "active_workers",
			Help:      "Invoice pipelines currently running.",
		}),
	}
}

func (c *Collector) SetQueueSize(n int) {
	c.queueSize.Set(float64(n))
}

func (c *Collector) IncActiveWorkers() {
	c.activeWorkers.Inc()
}

func (c *Collector) DecActiveWorkers() {
	c.activeWorkers.Dec()
}

func (c *Collector) RecordInvoiceProcessed(status domain.InvoiceStatus) {
	c.invoicesProcessed.WithLabelValues(string(status)).Inc()
}

func (c *Collector) RecordError(kind domain.ErrorKind) {
	c.invoiceErrors.WithLabelValues(string(kind)).Inc()
}

func (c *Collector) ObserveProcessingTime(d time.Duration) {
	c.processingDuration.Observe(d.Seconds())
}

func (c *Collector) ObserveAmount(amount float64) {
	c.invoiceAmount.Observe(amount)
}

func (c *Collector) ObserveConfidence(score float64) {
	c.confidenceScore.Observe(score)
}
