// Package client implements the telemetry client of the input display
// overlay: one websocket session to the dash telemetry source, the
// pipe-delimited handshake, and the fan-out of per-axis values to
// registered listeners.
package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/ohler55/ojg/oj"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/racedash/rsc-input-service-go/log"
	"github.com/racedash/rsc-input-service-go/pkg/model"
	"github.com/racedash/rsc-input-service-go/pkg/utils"
	"github.com/racedash/rsc-input-service-go/pkg/wire"
)

type State int32

const (
	StateConnecting State = iota
	StateHandshaking
	StateStreaming
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

var ErrInvalidEndpoint = errors.New("endpoint is not a ws:// or wss:// URL")

// report kinds passed to the Reporter
const (
	ReportTransport = "transport"
	ReportMalformed = "malformed-frame"
	ReportDecode    = "payload-decode"
)

// Reporter receives client errors. The debug/log server provides an
// implementation; absent a reporter the errors are only logged.
type Reporter interface {
	Report(kind string, err error)
}

type (
	// Callback receives the axis specific value shape for one frame.
	Callback func(value model.AxisValue)

	// Handle identifies one registration for later removal.
	Handle struct {
		axis model.Axis
		id   uint64
	}

	entry struct {
		id uint64
		cb Callback
	}

	Option func(*TelemetryClient)

	TelemetryClient struct {
		endpoint      string
		l             *log.Logger
		reporter      Reporter
		frameObserver func(raw string)
		printMessage  bool

		mutex     sync.Mutex
		transport Transport
		listeners map[model.Axis][]entry
		nextID    uint64
		latest    any

		state atomic.Int32
		done  chan struct{}
		once  sync.Once

		framesRcv  metric.Int64Counter
		acksSnd    metric.Int64Counter
		dispatched metric.Int64Counter
		decodeErrs metric.Int64Counter
	}
)

func WithLogger(l *log.Logger) Option {
	return func(c *TelemetryClient) {
		c.l = l
	}
}

func WithReporter(r Reporter) Option {
	return func(c *TelemetryClient) {
		c.reporter = r
	}
}

// WithFrameObserver registers a hook that sees every raw JSON payload after
// its ack was sent. Used by the debug server to mirror the live feed.
func WithFrameObserver(fn func(raw string)) Option {
	return func(c *TelemetryClient) {
		c.frameObserver = fn
	}
}

// WithPrintMessage dumps every raw frame on debug level.
func WithPrintMessage(arg bool) Option {
	return func(c *TelemetryClient) {
		c.printMessage = arg
	}
}

// WithTransport injects a ready transport instead of dialing the endpoint.
func WithTransport(tr Transport) Option {
	return func(c *TelemetryClient) {
		c.transport = tr
	}
}

// New creates the client and opens the connection immediately. There is no
// separate connect step and no error return: an unreachable endpoint moves
// the client to the closed state, observable via State and Done.
func New(endpoint string, opts ...Option) *TelemetryClient {
	c := &TelemetryClient{
		endpoint:  endpoint,
		l:         log.Default().Named("client"),
		listeners: make(map[model.Axis][]entry),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.setupMetrics()
	c.state.Store(int32(StateConnecting))

	if c.transport != nil {
		go c.run(c.transport)
		return c
	}
	if addr, _ := utils.ExtractFromWebsocketURL(endpoint); addr == "" {
		c.failStartup(ReportTransport, ErrInvalidEndpoint)
		return c
	}
	go c.dialAndRun()
	return c
}

func (c *TelemetryClient) State() State {
	return State(c.state.Load())
}

// Done is closed once the client reached its terminal state. A new client
// must be constructed to reconnect.
func (c *TelemetryClient) Done() <-chan struct{} {
	return c.done
}

// Close tears the connection down. Safe to call multiple times.
func (c *TelemetryClient) Close() {
	c.state.Store(int32(StateClosed))
	c.mutex.Lock()
	tr := c.transport
	c.mutex.Unlock()
	if tr != nil {
		tr.Close()
	} else {
		// dial still in flight; dialAndRun notices the state and bails out
		c.closeDone()
	}
}

func (c *TelemetryClient) closeDone() {
	c.once.Do(func() { close(c.done) })
}

func (c *TelemetryClient) failStartup(kind string, err error) {
	c.l.Error("client could not start",
		log.String("endpoint", c.endpoint), log.ErrorField(err))
	c.report(kind, err)
	c.state.Store(int32(StateClosed))
	c.closeDone()
}

func (c *TelemetryClient) dialAndRun() {
	tr, err := dialWebsocket(context.Background(), c.endpoint)
	if err != nil {
		c.failStartup(ReportTransport, err)
		return
	}
	if c.State() == StateClosed {
		tr.Close()
		c.closeDone()
		return
	}
	c.mutex.Lock()
	c.transport = tr
	c.mutex.Unlock()
	c.run(tr)
}

// run owns the session: handshake initiation, then one iteration per
// inbound message until the transport fails or is closed.
func (c *TelemetryClient) run(tr Transport) {
	defer c.closeDone()
	defer c.state.Store(int32(StateClosed))
	defer tr.Close()

	if err := tr.WriteMessage(wire.Encode(wire.KeyHandshakeInit, "")); err != nil {
		c.l.Error("could not send handshake initiation", log.ErrorField(err))
		c.report(ReportTransport, err)
		return
	}
	c.state.Store(int32(StateHandshaking))

	for {
		msg, err := tr.ReadMessage()
		if err != nil {
			if c.State() != StateClosed {
				c.l.Info("connection closed", log.ErrorField(err))
				c.report(ReportTransport, err)
			}
			return
		}
		c.handleMessage(tr, msg)
	}
}

func (c *TelemetryClient) handleMessage(tr Transport, msg string) {
	switch c.State() {
	case StateHandshaking:
		if msg == wire.HandshakeAck() {
			if err := c.sendInitSequence(tr); err != nil {
				c.l.Error("could not send init sequence", log.ErrorField(err))
				c.report(ReportTransport, err)
				tr.Close()
				return
			}
			c.state.Store(int32(StateStreaming))
			c.l.Info("session established", log.String("endpoint", c.endpoint))
		} else {
			c.l.Debug("ignoring message while handshaking", log.String("msg", msg))
		}
	case StateStreaming:
		c.handleFrame(tr, msg)
	default:
		c.l.Debug("ignoring message", log.String("state", c.State().String()))
	}
}

// sendInitSequence sends the four session-initialization messages. Order
// matters and each one goes out as an independent message.
func (c *TelemetryClient) sendInitSequence(tr Transport) error {
	for _, msg := range []string{
		wire.Encode(wire.KeyPeerID, wire.InitialPeerID),
		wire.Encode(wire.KeyTemplateLoading, ""),
		wire.Encode(wire.KeyRegisterComponents, wire.TemplatePath),
		wire.Encode(wire.KeyTemplateLoaded, ""),
	} {
		if err := tr.WriteMessage(msg); err != nil {
			return err
		}
	}
	return nil
}

//nolint:cyclop // steady state handling is one piece by design
func (c *TelemetryClient) handleFrame(tr Transport, msg string) {
	ctx := context.Background()
	c.count(ctx, c.framesRcv)

	frame, err := wire.Decode(msg)
	if err != nil {
		c.l.Warn("discarding malformed message", log.ErrorField(err))
		c.report(ReportMalformed, err)
		return
	}
	// per-message keep-alive; the source drops the session without it
	if err := tr.WriteMessage(wire.Encode(wire.KeyPeerID, frame.RequestID)); err != nil {
		c.l.Error("could not ack frame",
			log.String("requestId", frame.RequestID), log.ErrorField(err))
		c.report(ReportTransport, err)
		return
	}
	c.count(ctx, c.acksSnd)

	if c.printMessage {
		c.l.Debug("frame", log.String("payload", frame.Payload))
	}

	parsed, err := oj.ParseString(frame.Payload)
	if err != nil {
		c.l.Warn("discarding frame with invalid payload",
			log.String("requestId", frame.RequestID), log.ErrorField(err))
		c.count(ctx, c.decodeErrs)
		c.report(ReportDecode, err)
		return
	}

	// replace the latest frame wholesale and resolve the axis values while
	// holding the lock, so every callback of this frame sees the same data
	c.mutex.Lock()
	c.latest = parsed
	type dispatch struct {
		value   model.AxisValue
		entries []entry
	}
	pending := make([]dispatch, 0, len(c.listeners))
	for axis, entries := range c.listeners {
		if value, ok := model.LookupAxisValue(axis, parsed); ok {
			pending = append(pending, dispatch{value: value, entries: entries})
		}
	}
	c.mutex.Unlock()

	for _, d := range pending {
		for _, e := range d.entries {
			e.cb(d.value)
			c.count(ctx, c.dispatched)
		}
	}

	if c.frameObserver != nil {
		c.frameObserver(frame.Payload)
	}
}

// LatestFrame returns the most recently parsed payload, nil before the
// first frame.
func (c *TelemetryClient) LatestFrame() any {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.latest
}

func (c *TelemetryClient) report(kind string, err error) {
	if c.reporter != nil {
		c.reporter.Report(kind, err)
	}
}

func (c *TelemetryClient) setupMetrics() {
	meter := otel.GetMeterProvider().Meter("ris.client")
	register := func(name, desc string) metric.Int64Counter {
		counter, err := meter.Int64Counter(name,
			metric.WithDescription(desc), metric.WithUnit("{count}"))
		if err != nil {
			c.l.Error("failed to register metric",
				log.String("metric", name), log.ErrorField(err))
		}
		return counter
	}
	c.framesRcv = register("ris.client.frames.rcv", "Number of received messages")
	c.acksSnd = register("ris.client.acks.snd", "Number of keep-alive acks sent")
	c.dispatched = register("ris.client.dispatched", "Number of callback invocations")
	c.decodeErrs = register("ris.client.decode.errors", "Number of discarded payloads")
}

func (c *TelemetryClient) count(ctx context.Context, counter metric.Int64Counter) {
	if counter != nil {
		counter.Add(ctx, 1)
	}
}
