package client

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/Mmx233/improv/metrics"
	"github.com/Mmx233/improv/protocol"
	"github.com/rs/zerolog"
)

var (
	ErrNotConnected     = errors.New("client: not connected")
	ErrAlreadyConnected = errors.New("client: already connected")
	ErrTransport        = errors.New("client: transport failure")
	ErrConnectTimeout   = errors.New("client: connect timeout")
)

// ConnectionState represents the state of the serial session
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
)

// String returns a string representation of the connection state
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Handler receives session events. All methods are called synchronously
// from the goroutine that delivers transport events, in arrival order.
type Handler interface {
	OnConnected()
	OnMessage(msg protocol.Message)
	// OnDisconnected is called once per connection. err is nil for a clean close.
	OnDisconnected(err error)
}

// Session bridges a byte stream to the frame codec.
//
// The receive buffer is owned by the goroutine that calls HandleBytes and
// HandleDisconnected. Send may be called from any goroutine.
type Session struct {
	handler Handler
	metrics *metrics.Metrics
	logger  zerolog.Logger

	buf []byte

	state atomic.Int32

	writeMu sync.Mutex
	w       io.Writer
}

// NewSession creates a disconnected session. handler may be nil.
func NewSession(handler Handler, m *metrics.Metrics, logger zerolog.Logger) *Session {
	s := &Session{
		handler: handler,
		metrics: m,
		logger:  logger.With().Str("com", "session").Logger(),
	}
	s.state.Store(int32(StateDisconnected))
	return s
}

// State returns the current connection state.
func (s *Session) State() ConnectionState {
	return ConnectionState(s.state.Load())
}

// Connected reports whether the session is connected.
func (s *Session) Connected() bool {
	return s.State() == StateConnected
}

// Buffered returns the number of received bytes not yet consumed by the codec.
func (s *Session) Buffered() int {
	return len(s.buf)
}

// beginConnect moves a disconnected session to connecting.
func (s *Session) beginConnect() bool {
	return s.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting))
}

// abortConnect returns a connecting session to disconnected without notifying the handler.
func (s *Session) abortConnect() {
	s.state.CompareAndSwap(int32(StateConnecting), int32(StateDisconnected))
}

// HandleConnected binds the writer used by Send and marks the session connected.
func (s *Session) HandleConnected(w io.Writer) {
	s.writeMu.Lock()
	s.w = w
	s.writeMu.Unlock()

	s.buf = s.buf[:0]
	s.state.Store(int32(StateConnected))
	s.metrics.SetConnected(true)
	s.logger.Info().Msg("session connected")

	if s.handler != nil {
		s.handler.OnConnected()
	}
}

// HandleBytes appends chunk to the receive buffer and dispatches every
// complete frame it now holds. Incomplete trailing data stays buffered for
// the next call.
func (s *Session) HandleBytes(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	if !s.Connected() {
		s.logger.Debug().Int("bytes", len(chunk)).Msg("dropping bytes received while disconnected")
		return
	}

	s.metrics.BytesReceived(len(chunk))
	s.buf = append(s.buf, chunk...)

	off := 0
	for {
		n, msg, err := protocol.Decode(s.buf[off:])
		off += n

		switch {
		case errors.Is(err, protocol.ErrFrameCorrupt):
			s.metrics.FrameCorrupt()
			s.metrics.BytesDiscarded(n)
			s.logger.Debug().Err(err).Int("bytes", n).Msg("dropped corrupt frame")
		case errors.Is(err, protocol.ErrUnsupportedVersion):
			s.metrics.FrameUnsupported()
			s.metrics.BytesDiscarded(n)
			s.logger.Debug().Err(err).Int("bytes", n).Msg("dropped frame")
		case msg != nil:
			s.metrics.BytesDiscarded(n - protocol.MinFrameSize - len(msg.Body))
			s.dispatch(*msg)
		case n > 0:
			s.metrics.BytesDiscarded(n)
			s.logger.Trace().Int("bytes", n).Msg("skipped bytes outside any frame")
		}

		if n == 0 && msg == nil {
			break
		}
		// A handler may have disconnected the session
		if !s.Connected() {
			return
		}
	}

	s.buf = s.buf[:copy(s.buf, s.buf[off:])]
}

func (s *Session) dispatch(msg protocol.Message) {
	s.metrics.FrameDecoded(msg.Kind.String())
	s.logger.Debug().
		Str("kind", msg.Kind.String()).
		Hex("body", msg.Body).
		Msg("message received")

	if s.handler != nil {
		s.handler.OnMessage(msg)
	}
}

// HandleDisconnected marks the session disconnected and discards buffered
// bytes. The handler is notified only on the first call after a connect.
func (s *Session) HandleDisconnected(err error) {
	if !s.Connected() {
		return
	}

	// Drop everything owned by this connection before a new Connect can start
	s.buf = s.buf[:0]
	s.writeMu.Lock()
	s.w = nil
	s.writeMu.Unlock()

	prev := ConnectionState(s.state.Swap(int32(StateDisconnected)))
	if prev != StateConnected {
		return
	}
	s.metrics.SetConnected(false)

	if err != nil {
		s.logger.Warn().Err(err).Msg("session disconnected")
	} else {
		s.logger.Info().Msg("session disconnected")
	}

	if s.handler != nil {
		s.handler.OnDisconnected(err)
	}
}

// Send encodes msg and writes it as a single frame.
func (s *Session) Send(msg protocol.Message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.w == nil || !s.Connected() {
		return ErrNotConnected
	}

	if err := protocol.WriteMessage(s.w, msg); err != nil {
		if errors.Is(err, protocol.ErrPayloadTooLarge) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}

	s.metrics.FrameSent(msg.Kind.String())
	s.logger.Debug().
		Str("kind", msg.Kind.String()).
		Hex("body", msg.Body).
		Msg("message sent")
	return nil
}
