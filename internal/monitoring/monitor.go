package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus instruments for the inspection backend.
// A nil *Metrics is valid and records nothing, so callers don't need to
// guard every call site.
type Metrics struct {
	uploads          prometheus.Counter
	predictions      *prometheus.CounterVec
	classifyFailures prometheus.Counter
	inferenceSeconds prometheus.Histogram
}

// NewMetrics registers the instruments with reg and returns them.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		uploads: factory.NewCounter(prometheus.CounterOpts{
			Name: "partscope_uploads_total",
			Help: "Inventory items uploaded.",
		}),
		predictions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "partscope_predictions_total",
			Help: "Classifier decisions by predicted label.",
		}, []string{"label"}),
		classifyFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "partscope_classification_failures_total",
			Help: "Per-item classification failures (missing images, inference errors).",
		}),
		inferenceSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "partscope_inference_duration_seconds",
			Help:    "Wall time of one forward pass including preprocessing.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// IncUpload counts one stored inventory item.
func (m *Metrics) IncUpload() {
	if m == nil {
		return
	}
	m.uploads.Inc()
}

// ObserveInference records one successful classifier call.
func (m *Metrics) ObserveInference(d time.Duration, label int) {
	if m == nil {
		return
	}
	m.inferenceSeconds.Observe(d.Seconds())
	m.predictions.WithLabelValues(strconv.Itoa(label)).Inc()
}

// IncClassifyFailure counts one per-item classification failure.
func (m *Metrics) IncClassifyFailure() {
	if m == nil {
		return
	}
	m.classifyFailures.Inc()
}
