package client

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/Mmx233/improv/metrics"
	"github.com/Mmx233/improv/protocol"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// recorder is a Handler that keeps every event it sees
type recorder struct {
	mu          sync.Mutex
	connected   int
	messages    []protocol.Message
	disconnects []error
}

func (r *recorder) OnConnected() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connected++
}

func (r *recorder) OnMessage(msg protocol.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *recorder) OnDisconnected(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnects = append(r.disconnects, err)
}

func (r *recorder) Messages() []protocol.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]protocol.Message(nil), r.messages...)
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("device unplugged")
}

type fataler interface {
	Fatalf(format string, args ...any)
}

func encode(t fataler, msg protocol.Message) []byte {
	frame, err := protocol.Encode(msg)
	if err != nil {
		t.Fatalf("encode %v: %v", msg, err)
	}
	return frame
}

func newConnectedSession(t *testing.T) (*Session, *recorder, *bytes.Buffer) {
	rec := &recorder{}
	s := NewSession(rec, nil, zerolog.Nop())
	var out bytes.Buffer
	s.HandleConnected(&out)
	require.Equal(t, 1, rec.connected)
	return s, rec, &out
}

func TestSession_DispatchesFramesInOrder(t *testing.T) {
	s, rec, _ := newConnectedSession(t)

	want := []protocol.Message{
		protocol.NewCurrentState(protocol.StateAuthorized),
		protocol.NewErrorState(protocol.ErrorNone),
		{Kind: protocol.KindRPCResponse, Body: []byte{0x01, 0x00}},
	}
	var stream []byte
	for _, m := range want {
		stream = append(stream, encode(t, m)...)
	}

	s.HandleBytes(stream)

	got := rec.Messages()
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, want[i].Equal(got[i]), "message %d: %v", i, got[i])
	}
	assert.Zero(t, s.Buffered())
}

func TestSession_IncompleteFrameStaysBuffered(t *testing.T) {
	s, rec, _ := newConnectedSession(t)
	frame := encode(t, protocol.NewCurrentState(protocol.StateProvisioning))

	s.HandleBytes(frame[:7])
	s.HandleBytes(frame[7:8])
	assert.Empty(t, rec.Messages())
	assert.Equal(t, 8, s.Buffered())

	s.HandleBytes(frame[8:])
	require.Len(t, rec.Messages(), 1)
	assert.Zero(t, s.Buffered())
}

func TestSession_SplitHeader(t *testing.T) {
	s, rec, _ := newConnectedSession(t)
	frame := encode(t, protocol.NewCurrentState(protocol.StateProvisioned))

	s.HandleBytes([]byte("boot: ok\r\nIMP"))
	assert.Equal(t, 3, s.Buffered())
	s.HandleBytes([]byte("ROV"))
	s.HandleBytes(frame[6:])

	require.Len(t, rec.Messages(), 1)
	state, ok := rec.Messages()[0].State()
	assert.True(t, ok)
	assert.Equal(t, protocol.StateProvisioned, state)
}

func TestSession_CorruptFrameRecovery(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := &recorder{}
	s := NewSession(rec, metrics.New(reg), zerolog.Nop())
	s.HandleConnected(&bytes.Buffer{})

	m1 := protocol.NewCurrentState(protocol.StateAuthorized)
	m2 := protocol.NewCurrentState(protocol.StateProvisioning)
	m3 := protocol.NewCurrentState(protocol.StateProvisioned)
	bad := encode(t, m2)
	bad[len(bad)-1]++

	var stream []byte
	stream = append(stream, encode(t, m1)...)
	stream = append(stream, bad...)
	stream = append(stream, encode(t, m3)...)
	s.HandleBytes(stream)

	got := rec.Messages()
	require.Len(t, got, 2)
	assert.True(t, m1.Equal(got[0]))
	assert.True(t, m3.Equal(got[1]))
	assert.True(t, s.Connected())

	assert.Equal(t, 1.0, gatheredValue(t, reg, "improv_frames_corrupt_total"))
	assert.Equal(t, 2.0, gatheredValue(t, reg, "improv_frames_decoded_total"))
	assert.Equal(t, float64(len(bad)), gatheredValue(t, reg, "improv_bytes_discarded_total"))
	assert.Equal(t, float64(len(stream)), gatheredValue(t, reg, "improv_bytes_received_total"))
}

func TestSession_DisconnectNotifiesOnce(t *testing.T) {
	s, rec, _ := newConnectedSession(t)
	frame := encode(t, protocol.NewCurrentState(protocol.StateAuthorized))
	s.HandleBytes(frame[:5])
	require.Equal(t, 5, s.Buffered())

	cause := errors.New("boom")
	s.HandleDisconnected(cause)
	s.HandleDisconnected(nil)

	require.Len(t, rec.disconnects, 1)
	assert.Equal(t, cause, rec.disconnects[0])
	assert.Zero(t, s.Buffered())
	assert.Equal(t, StateDisconnected, s.State())
}

func TestSession_DropsBytesWhileDisconnected(t *testing.T) {
	rec := &recorder{}
	s := NewSession(rec, nil, zerolog.Nop())

	s.HandleBytes(encode(t, protocol.NewCurrentState(protocol.StateAuthorized)))
	assert.Empty(t, rec.Messages())
	assert.Zero(t, s.Buffered())
}

func TestSession_Send(t *testing.T) {
	s, _, out := newConnectedSession(t)
	msg, err := protocol.NewRPCCommand(protocol.RPCRequestCurrentState)
	require.NoError(t, err)

	require.NoError(t, s.Send(msg))
	assert.Equal(t, encode(t, msg), out.Bytes())
}

func TestSession_SendErrors(t *testing.T) {
	s, _, out := newConnectedSession(t)

	err := s.Send(protocol.Message{Kind: protocol.KindRPCCommand, Body: make([]byte, 256)})
	assert.ErrorIs(t, err, protocol.ErrPayloadTooLarge)
	assert.Zero(t, out.Len())

	s.HandleDisconnected(nil)
	err = s.Send(protocol.NewCurrentState(protocol.StateAuthorized))
	assert.ErrorIs(t, err, ErrNotConnected)

	s.HandleConnected(failingWriter{})
	err = s.Send(protocol.NewCurrentState(protocol.StateAuthorized))
	assert.ErrorIs(t, err, ErrTransport)
}

func TestSession_HandlerMayDisconnect(t *testing.T) {
	var s *Session
	var seen int
	handler := &funcHandler{onMessage: func(protocol.Message) {
		seen++
		s.HandleDisconnected(nil)
	}}
	s = NewSession(handler, nil, zerolog.Nop())
	s.HandleConnected(&bytes.Buffer{})

	frame := encode(t, protocol.NewCurrentState(protocol.StateAuthorized))
	s.HandleBytes(append(append([]byte{}, frame...), frame...))

	assert.Equal(t, 1, seen)
	assert.Zero(t, s.Buffered())
	assert.False(t, s.Connected())
}

func TestConnectionState_String(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "unknown", ConnectionState(9).String())
}

// Property: Partial delivery invariance
// Any sequence of frames cut into arbitrary chunks yields the same messages,
// in the same order, as delivering the stream at once.
func TestSession_PartialDelivery_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		count := rapid.IntRange(1, 5).Draw(t, "count")
		var want []protocol.Message
		var stream []byte
		for i := 0; i < count; i++ {
			msg := protocol.Message{
				Kind: protocol.Kind(rapid.ByteRange(1, 4).Draw(t, "kind")),
				Body: rapid.SliceOfN(rapid.Byte(), 0, protocol.MaxPayloadSize).Draw(t, "body"),
			}
			want = append(want, msg)
			stream = append(stream, encode(t, msg)...)
		}

		rec := &recorder{}
		s := NewSession(rec, nil, zerolog.Nop())
		s.HandleConnected(&bytes.Buffer{})

		for len(stream) > 0 {
			n := rapid.IntRange(1, len(stream)).Draw(t, "chunk")
			s.HandleBytes(stream[:n])
			stream = stream[n:]
		}

		got := rec.Messages()
		if len(got) != len(want) {
			t.Fatalf("got %d messages, want %d", len(got), len(want))
		}
		for i := range want {
			if !want[i].Equal(got[i]) {
				t.Fatalf("message %d = %v, want %v", i, got[i], want[i])
			}
		}
		if s.Buffered() != 0 {
			t.Fatalf("%d bytes left buffered", s.Buffered())
		}
	})
}

type funcHandler struct {
	onConnected    func()
	onMessage      func(protocol.Message)
	onDisconnected func(error)
}

func (h *funcHandler) OnConnected() {
	if h.onConnected != nil {
		h.onConnected()
	}
}

func (h *funcHandler) OnMessage(msg protocol.Message) {
	if h.onMessage != nil {
		h.onMessage(msg)
	}
}

func (h *funcHandler) OnDisconnected(err error) {
	if h.onDisconnected != nil {
		h.onDisconnected(err)
	}
}

// gatheredValue sums every sample of the named metric family.
func gatheredValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	var sum float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			if c := m.GetCounter(); c != nil {
				sum += c.GetValue()
			}
			if g := m.GetGauge(); g != nil {
				sum += g.GetValue()
			}
		}
	}
	return sum
}
