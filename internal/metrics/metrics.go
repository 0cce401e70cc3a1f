package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes counters for the conversation and digest flows. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	inboundTotal  *prometheus.CounterVec
	outboundTotal *prometheus.CounterVec
	enquiryTotal  *prometheus.CounterVec
	digestTotal   *prometheus.CounterVec
	handleLatency prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leasebot",
			Subsystem: "conversation",
			Name:      "inbound_total",
			Help:      "Inbound events by classified intent",
		}, []string{"intent"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leasebot",
			Subsystem: "conversation",
			Name:      "outbound_total",
			Help:      "Outbound message sends by kind and status",
		}, []string{"kind", "status"}),
		enquiryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leasebot",
			Subsystem: "enquiry",
			Name:      "recorded_total",
			Help:      "Enquiry records handed to the log",
		}, []string{"status"}),
		digestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leasebot",
			Subsystem: "digest",
			Name:      "runs_total",
			Help:      "Digest runs by outcome",
		}, []string{"status"}),
		handleLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "leasebot",
			Subsystem: "conversation",
			Name:      "handle_seconds",
			Help:      "Time to process one inbound event including delivery",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.outboundTotal, m.enquiryTotal, m.digestTotal, m.handleLatency)
	return m
}

func (m *Metrics) ObserveInbound(intent string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(intent).Inc()
}

func (m *Metrics) ObserveOutbound(kind string, ok bool) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(kind, status(ok)).Inc()
}

func (m *Metrics) ObserveEnquiry(ok bool) {
	if m == nil {
		return
	}
	m.enquiryTotal.WithLabelValues(status(ok)).Inc()
}

// ObserveDigest records a digest outcome: "sent", "skipped" or "failed".
func (m *Metrics) ObserveDigest(outcome string) {
	if m == nil {
		return
	}
	m.digestTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveHandle(seconds float64) {
	if m == nil {
		return
	}
	m.handleLatency.Observe(seconds)
}

func status(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
