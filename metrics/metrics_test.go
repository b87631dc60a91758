package metrics

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.BytesReceived(12)
	m.BytesDiscarded(3)
	m.BytesDiscarded(0)
	m.FrameDecoded("current_state")
	m.FrameDecoded("current_state")
	m.FrameCorrupt()
	m.FrameUnsupported()
	m.FrameSent("rpc_command")
	m.SetConnected(true)

	assert.Equal(t, 12.0, testutil.ToFloat64(m.bytesReceived))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.bytesDiscarded))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.framesDecoded.WithLabelValues("current_state")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.framesCorrupt))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.framesUnsupported))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.framesSent.WithLabelValues("rpc_command")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connected))

	m.SetConnected(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.connected))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.BytesReceived(1)
		m.BytesDiscarded(1)
		m.FrameDecoded("x")
		m.FrameCorrupt()
		m.FrameUnsupported()
		m.FrameSent("x")
		m.SetConnected(true)
	})
}

func TestStartServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.FrameCorrupt()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr, err := StartServer(ctx, "127.0.0.1:0", reg)
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "improv_frames_corrupt_total 1")
}
