// Package metrics exposes Prometheus metrics for the capture and attendance path.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the counters updated by the capture loop, the recognition
// pipeline and the attendance gate. A nil *Metrics is valid and records nothing.
type Metrics struct {
	FramesTotal     *prometheus.CounterVec
	FacesTotal      *prometheus.CounterVec
	GateOutcomes    *prometheus.CounterVec
	RecognitionTime prometheus.Histogram
	CaptureRunning  prometheus.Gauge
	GallerySize     prometheus.Gauge
	ViewerCount     prometheus.Gauge
	CaptureFailures prometheus.Counter
	EvidenceFlushed prometheus.Counter

	registry *prometheus.Registry
}

// New creates the metrics and registers them with registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.FramesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faceattend_frames_total",
			Help: "Frames seen by the capture loop, by outcome (read, processed, skipped, empty).",
		},
		[]string{"outcome"},
	)
	m.FacesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faceattend_faces_total",
			Help: "Faces found by the recognition pipeline, by match result.",
		},
		[]string{"result"},
	)
	m.GateOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faceattend_gate_outcomes_total",
			Help: "Attendance gate decisions by outcome.",
		},
		[]string{"outcome"},
	)
	m.RecognitionTime = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "faceattend_recognition_duration_seconds",
			Help:    "Time spent encoding and matching one processed frame.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		},
	)
	m.CaptureRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "faceattend_capture_running",
		Help: "Whether the capture loop is running (1) or not (0).",
	})
	m.GallerySize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "faceattend_gallery_size",
		Help: "Number of identities in the current gallery snapshot.",
	})
	m.ViewerCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "faceattend_viewers",
		Help: "Connected display viewers.",
	})
	m.CaptureFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "faceattend_capture_failures_total",
		Help: "Fatal camera read failures that ended the capture goroutine.",
	})
	m.EvidenceFlushed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "faceattend_evidence_frames_flushed_total",
		Help: "Evidence frames written to disk.",
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Frame counts a frame with the given outcome.
func (m *Metrics) Frame(outcome string) {
	if m == nil {
		return
	}
	m.FramesTotal.WithLabelValues(outcome).Inc()
}

// Face counts a recognised face as known or unknown.
func (m *Metrics) Face(known bool) {
	if m == nil {
		return
	}
	result := "unknown"
	if known {
		result = "known"
	}
	m.FacesTotal.WithLabelValues(result).Inc()
}

// Gate counts an attendance gate outcome.
func (m *Metrics) Gate(outcome string) {
	if m == nil {
		return
	}
	m.GateOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveRecognition records the duration of one processed frame.
func (m *Metrics) ObserveRecognition(seconds float64) {
	if m == nil {
		return
	}
	m.RecognitionTime.Observe(seconds)
}

// SetCaptureRunning sets the capture state gauge.
func (m *Metrics) SetCaptureRunning(running bool) {
	if m == nil {
		return
	}
	if running {
		m.CaptureRunning.Set(1)
	} else {
		m.CaptureRunning.Set(0)
	}
}

// SetGallerySize sets the gallery size gauge.
func (m *Metrics) SetGallerySize(n int) {
	if m == nil {
		return
	}
	m.GallerySize.Set(float64(n))
}

// SetViewers sets the connected viewer gauge.
func (m *Metrics) SetViewers(n int) {
	if m == nil {
		return
	}
	m.ViewerCount.Set(float64(n))
}

// CaptureFailed counts a fatal camera failure.
func (m *Metrics) CaptureFailed() {
	if m == nil {
		return
	}
	m.CaptureFailures.Inc()
}

// EvidenceWritten counts flushed evidence frames.
func (m *Metrics) EvidenceWritten(n int) {
	if m == nil {
		return
	}
	m.EvidenceFlushed.Add(float64(n))
}

// Describe implements the prometheus.Collector interface.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.FramesTotal.Describe(ch)
	m.FacesTotal.Describe(ch)
	m.GateOutcomes.Describe(ch)
	ch <- m.RecognitionTime.Desc()
	ch <- m.CaptureRunning.Desc()
	ch <- m.GallerySize.Desc()
	ch <- m.ViewerCount.Desc()
	ch <- m.CaptureFailures.Desc()
	ch <- m.EvidenceFlushed.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.FramesTotal.Collect(ch)
	m.FacesTotal.Collect(ch)
	m.GateOutcomes.Collect(ch)
	ch <- m.RecognitionTime
	ch <- m.CaptureRunning
	ch <- m.GallerySize
	ch <- m.ViewerCount
	ch <- m.CaptureFailures
	ch <- m.EvidenceFlushed
}
