package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveInbound("greeting")
	m.ObserveInbound("greeting")
	m.ObserveOutbound("image", false)
	m.ObserveEnquiry(true)
	m.ObserveDigest("sent")
	m.ObserveHandle(0.2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.inboundTotal.WithLabelValues("greeting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outboundTotal.WithLabelValues("image", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.enquiryTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.digestTotal.WithLabelValues("sent")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveInbound("x")
		m.ObserveOutbound("text", true)
		m.ObserveEnquiry(false)
		m.ObserveDigest("failed")
		m.ObserveHandle(1)
	})
}
