package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the session collectors. A nil *Metrics records nothing.
type Metrics struct {
	bytesReceived     prometheus.Counter
	bytesDiscarded    prometheus.Counter
	framesDecoded     *prometheus.CounterVec
	framesCorrupt     prometheus.Counter
	framesUnsupported prometheus.Counter
	framesSent        *prometheus.CounterVec
	connected         prometheus.Gauge
}

// New creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "improv_bytes_received_total",
			Help: "Total number of bytes read from the serial line",
		}),
		bytesDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "improv_bytes_discarded_total",
			Help: "Total number of received bytes that were not part of a valid frame",
		}),
		framesDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "improv_frames_decoded_total",
			Help: "Total number of frames decoded, by message kind",
		}, []string{"kind"}),
		framesCorrupt: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "improv_frames_corrupt_total",
			Help: "Total number of frames dropped for a checksum mismatch",
		}),
		framesUnsupported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "improv_frames_unsupported_total",
			Help: "Total number of frames dropped for an unsupported protocol version",
		}),
		framesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "improv_frames_sent_total",
			Help: "Total number of frames written, by message kind",
		}, []string{"kind"}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "improv_connected",
			Help: "Whether the serial session is connected (1 or 0)",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.bytesReceived,
			m.bytesDiscarded,
			m.framesDecoded,
			m.framesCorrupt,
			m.framesUnsupported,
			m.framesSent,
			m.connected,
		)
	}
	return m
}

func (m *Metrics) BytesReceived(n int) {
	if m == nil {
		return
	}
	m.bytesReceived.Add(float64(n))
}

func (m *Metrics) BytesDiscarded(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesDiscarded.Add(float64(n))
}

func (m *Metrics) FrameDecoded(kind string) {
	if m == nil {
		return
	}
	m.framesDecoded.WithLabelValues(kind).Inc()
}

func (m *Metrics) FrameCorrupt() {
	if m == nil {
		return
	}
	m.framesCorrupt.Inc()
}

func (m *Metrics) FrameUnsupported() {
	if m == nil {
		return
	}
	m.framesUnsupported.Inc()
}

func (m *Metrics) FrameSent(kind string) {
	if m == nil {
		return
	}
	m.framesSent.WithLabelValues(kind).Inc()
}

func (m *Metrics) SetConnected(v bool) {
	if m == nil {
		return
	}
	if v {
		m.connected.Set(1)
	} else {
		m.connected.Set(0)
	}
}
