package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/Mmx233/improv/config"
	"github.com/Mmx233/improv/metrics"
	"github.com/Mmx233/improv/protocol"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Client is the Improv Wi-Fi serial client.
//
// Callbacks registered with OnMessage, OnConnected and OnDisconnected run on
// the read loop goroutine; they must not call Close.
type Client struct {
	config  *config.Client
	dialer  Dialer
	metrics *metrics.Metrics
	session *Session
	limiter *rate.Limiter
	logger  zerolog.Logger

	mu             sync.Mutex
	onMessage      func(msg protocol.Message)
	onConnected    func(port string)
	onDisconnected func(port string, err error)
	stream         io.ReadWriteCloser
	done           chan struct{}
	closing        *atomic.Bool
}

// Option configures a Client
type Option func(*Client)

// WithDialer replaces the serial dialer, e.g. with an in-memory pipe in tests.
func WithDialer(d Dialer) Option {
	return func(c *Client) {
		c.dialer = d
	}
}

// WithMetrics records session metrics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger replaces the default global logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a new client
func New(conf *config.Client, opts ...Option) (*Client, error) {
	// Apply defaults to ensure all required fields have values
	conf.ApplyDefaults()
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	c := &Client{
		config: conf,
		dialer: SerialDialer{},
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.With().
		Str("com", "client").
		Str("port", conf.Serial.Port).
		Logger()

	if conf.Send.Rate > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(conf.Send.Rate), conf.Send.Burst)
	}

	c.session = NewSession(sessionHandler{c}, c.metrics, c.logger)

	// Nothing is running until the first Connect
	c.done = make(chan struct{})
	close(c.done)

	return c, nil
}

// OnMessage registers the callback for decoded messages.
func (c *Client) OnMessage(fn func(msg protocol.Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = fn
}

// OnConnected registers the callback for connection establishment.
func (c *Client) OnConnected(fn func(port string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnected = fn
}

// OnDisconnected registers the callback for connection loss.
// err is nil when the connection was closed with Close or by end of stream.
func (c *Client) OnDisconnected(fn func(port string, err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDisconnected = fn
}

// Port returns the configured serial port.
func (c *Client) Port() string {
	return c.config.Serial.Port
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	return c.session.State()
}

// Connected reports whether the client is connected.
func (c *Client) Connected() bool {
	return c.session.Connected()
}

// Connect opens the serial port and starts the read loop.
// It returns once the port is open, or fails when the configured connect
// timeout or ctx expires first. There is no retry.
func (c *Client) Connect(ctx context.Context) error {
	if !c.session.beginConnect() {
		return ErrAlreadyConnected
	}

	port, baud := c.config.Serial.Port, c.config.Serial.BaudRate
	logger := c.logger.With().Str("session_id", uuid.NewString()).Logger()
	logger.Info().Int("baud_rate", baud).Msg("connecting to device")

	dialCtx, cancel := context.WithTimeout(ctx, c.config.ConnectTimeout)
	defer cancel()

	stream, err := c.dialer.Dial(dialCtx, port, baud)
	if err != nil {
		c.session.abortConnect()
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%w: %w: %s not open after %v", ErrTransport, ErrConnectTimeout, port, c.config.ConnectTimeout)
		}
		return fmt.Errorf("%w: open %s: %w", ErrTransport, port, err)
	}

	done := make(chan struct{})
	closing := new(atomic.Bool)

	c.mu.Lock()
	c.stream = stream
	c.done = done
	c.closing = closing
	c.mu.Unlock()

	c.session.HandleConnected(stream)
	go c.readLoop(stream, done, closing, logger)

	logger.Info().Msg("connected to device")
	return nil
}

// readLoop feeds received bytes to the session until the stream ends.
func (c *Client) readLoop(stream io.ReadCloser, done chan struct{}, closing *atomic.Bool, logger zerolog.Logger) {
	defer close(done)

	buf := make([]byte, c.config.ReadBufferSize)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			c.session.HandleBytes(buf[:n])
		}
		if err == nil {
			continue
		}

		if closing.Load() || errors.Is(err, io.EOF) {
			logger.Debug().Err(err).Msg("read loop finished")
			err = nil
		} else {
			logger.Error().Err(err).Msg("serial read failed")
			err = fmt.Errorf("%w: read: %w", ErrTransport, err)
		}

		if !closing.Load() {
			stream.Close()
		}
		c.session.HandleDisconnected(err)
		return
	}
}

// Send writes msg to the device.
// It fails with ErrNotConnected after a disconnect and with
// protocol.ErrPayloadTooLarge for bodies over 255 bytes.
func (c *Client) Send(ctx context.Context, msg protocol.Message) error {
	if !c.session.Connected() {
		return ErrNotConnected
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait send slot: %w", err)
		}
	}

	return c.session.Send(msg)
}

// SendRPC sends an RPC command with string arguments.
func (c *Client) SendRPC(ctx context.Context, command byte, args ...string) error {
	msg, err := protocol.NewRPCCommand(command, args...)
	if err != nil {
		return fmt.Errorf("build rpc %s: %w", protocol.RPCCommandName(command), err)
	}
	return c.Send(ctx, msg)
}

// Done returns a channel that is closed when the current connection ends.
func (c *Client) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Wait blocks until the current connection ends or ctx is done.
func (c *Client) Wait(ctx context.Context) error {
	select {
	case <-c.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the serial port and waits for the read loop to exit.
func (c *Client) Close() error {
	c.mu.Lock()
	stream, done, closing := c.stream, c.done, c.closing
	c.stream = nil
	c.mu.Unlock()

	if stream == nil {
		return nil
	}

	select {
	case <-done:
		// The device already went away
		return nil
	default:
	}

	closing.Store(true)
	err := stream.Close()
	<-done

	if err != nil {
		return fmt.Errorf("%w: close: %w", ErrTransport, err)
	}
	c.logger.Info().Msg("client closed")
	return nil
}

// sessionHandler forwards session events to the registered callbacks.
type sessionHandler struct {
	c *Client
}

func (h sessionHandler) OnConnected() {
	h.c.mu.Lock()
	fn := h.c.onConnected
	h.c.mu.Unlock()
	if fn != nil {
		fn(h.c.Port())
	}
}

func (h sessionHandler) OnMessage(msg protocol.Message) {
	h.c.mu.Lock()
	fn := h.c.onMessage
	h.c.mu.Unlock()
	if fn != nil {
		fn(msg)
	}
}

func (h sessionHandler) OnDisconnected(err error) {
	h.c.mu.Lock()
	fn := h.c.onDisconnected
	h.c.mu.Unlock()
	if fn != nil {
		fn(h.c.Port(), err)
	}
}
