package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.Frame("processed")
	m.Frame("processed")
	m.Face(true)
	m.Face(false)
	m.Gate("marked")
	m.SetGallerySize(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FramesTotal.WithLabelValues("processed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FacesTotal.WithLabelValues("known")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GateOutcomes.WithLabelValues("marked")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.GallerySize))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Frame("read")
		m.Face(true)
		m.Gate("marked")
		m.ObserveRecognition(0.1)
		m.SetCaptureRunning(true)
		m.SetGallerySize(1)
		m.SetViewers(1)
		m.CaptureFailed()
		m.EvidenceWritten(2)
	})
}

func TestMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}

func TestMetrics_Handler(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)
	m.Gate("suppressed_cooldown")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `faceattend_gate_outcomes_total{outcome="suppressed_cooldown"} 1`))
}
