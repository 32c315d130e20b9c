//nolint:thelper,funlen // ok for tests
package client

import (
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/racedash/rsc-input-service-go/pkg/model"
	"github.com/racedash/rsc-input-service-go/pkg/wire"
)

type mockTransport struct {
	mu      sync.Mutex
	sent    []string
	inbound chan string
	closed  chan struct{}
	once    sync.Once
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		inbound: make(chan string, 16),
		closed:  make(chan struct{}),
	}
}

func (m *mockTransport) ReadMessage() (string, error) {
	select {
	case msg := <-m.inbound:
		return msg, nil
	case <-m.closed:
		return "", net.ErrClosed
	}
}

func (m *mockTransport) WriteMessage(msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mockTransport) Close() error {
	m.once.Do(func() { close(m.closed) })
	return nil
}

func (m *mockTransport) Sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	copy(out, m.sent)
	return out
}

func (m *mockTransport) deliver(msg string) {
	m.inbound <- msg
}

func (m *mockTransport) sentContains(msg string) bool {
	for _, s := range m.Sent() {
		if s == msg {
			return true
		}
	}
	return false
}

// valueRecorder collects dispatched values in a goroutine safe way
type valueRecorder struct {
	mu     sync.Mutex
	values []model.AxisValue
}

func (r *valueRecorder) callback(v model.AxisValue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *valueRecorder) recorded() []model.AxisValue {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.AxisValue, len(r.values))
	copy(out, r.values)
	return out
}

func streamingClient(t *testing.T, opts ...Option) (*TelemetryClient, *mockTransport) {
	tr := newMockTransport()
	c := New("ws://unit.test", append(opts, WithTransport(tr))...)
	t.Cleanup(c.Close)
	tr.deliver(wire.HandshakeAck())
	require.Eventually(t, func() bool { return c.State() == StateStreaming },
		2*time.Second, 5*time.Millisecond)
	return c, tr
}

func brakeFrame(reqID int, angle float64) string {
	return fmt.Sprintf(`%d|{"RSC - Input Display - Analog_Brake":{"currentAngle":%v}}`,
		reqID, angle)
}

func steeringFrame(reqID int, rotation float64) string {
	return fmt.Sprintf(`%d|{"RSC - Input Display - Analog_Steering":{"rotation":%v}}`,
		reqID, rotation)
}

// waits until the frame with the given request id was processed
func awaitAck(t *testing.T, tr *mockTransport, reqID int) {
	require.Eventually(t, func() bool {
		return tr.sentContains(wire.Encode(wire.KeyPeerID, fmt.Sprintf("%d", reqID)))
	}, 2*time.Second, 5*time.Millisecond)
}

func TestHandshakeOrdering(t *testing.T) {
	_, tr := streamingClient(t)

	want := []string{
		"echo|",
		"pid|-1",
		"mainTemplateLoading|",
		"registerComponents|/Dashtemplates/RSC - Input Display - Analog/RSC - Input Display - Analog.djson",
		"mainTemplateLoaded|",
	}
	if diff := cmp.Diff(want, tr.Sent()); diff != "" {
		t.Errorf("handshake sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestHandshakeIgnoresUnexpectedMessages(t *testing.T) {
	tr := newMockTransport()
	c := New("ws://unit.test", WithTransport(tr))
	t.Cleanup(c.Close)

	tr.deliver(`42|{"d":{}}`) // not the acknowledgement token
	tr.deliver(wire.HandshakeAck())
	require.Eventually(t, func() bool { return c.State() == StateStreaming },
		2*time.Second, 5*time.Millisecond)
	// the stray message must not have been acked as a data frame
	assert.False(t, tr.sentContains("pid|42"))
}

func TestPerFrameAck(t *testing.T) {
	_, tr := streamingClient(t)

	tr.deliver(`42|{"d":{}}`)
	awaitAck(t, tr, 42)
}

func TestAxisDispatch(t *testing.T) {
	c, tr := streamingClient(t)

	brake := &valueRecorder{}
	throttle := &valueRecorder{}
	c.AddListener(model.AxisBrake, brake.callback)
	c.AddListener(model.AxisThrottle, throttle.callback)

	tr.deliver(brakeFrame(1, 17))
	awaitAck(t, tr, 1)

	require.Eventually(t, func() bool { return len(brake.recorded()) == 1 },
		2*time.Second, 5*time.Millisecond)
	assert.Equal(t, model.PedalValue{CurrentAngle: 17}, brake.recorded()[0])
	assert.Empty(t, throttle.recorded())
}

func TestLatestValueWins(t *testing.T) {
	c, tr := streamingClient(t)

	steering := &valueRecorder{}
	c.AddListener(model.AxisSteering, steering.callback)

	tr.deliver(steeringFrame(1, 5))
	tr.deliver(steeringFrame(2, -5))
	awaitAck(t, tr, 2)

	require.Eventually(t, func() bool { return len(steering.recorded()) == 2 },
		2*time.Second, 5*time.Millisecond)
	got := steering.recorded()
	assert.Equal(t, model.SteeringValue{Rotation: 5}, got[0])
	assert.Equal(t, model.SteeringValue{Rotation: -5}, got[1])
}

func TestMalformedPayloadIsolation(t *testing.T) {
	c, tr := streamingClient(t)

	brake := &valueRecorder{}
	c.AddListener(model.AxisBrake, brake.callback)

	tr.deliver("13|this is not json")
	awaitAck(t, tr, 13)
	assert.Empty(t, brake.recorded())

	tr.deliver("no delimiter here would be needed but there is one missing")

	// the session survives and keeps processing
	tr.deliver(brakeFrame(14, 3))
	awaitAck(t, tr, 14)
	require.Eventually(t, func() bool { return len(brake.recorded()) == 1 },
		2*time.Second, 5*time.Millisecond)
	assert.Equal(t, StateStreaming, c.State())
}

func TestLateSubscription(t *testing.T) {
	c, tr := streamingClient(t)

	tr.deliver(brakeFrame(1, 10))
	tr.deliver(brakeFrame(2, 20))
	// the latest frame slot is replaced in the same critical section in
	// which the dispatch snapshot is taken, so once frame 2 is visible a
	// listener added below cannot be part of its dispatch anymore
	require.Eventually(t, func() bool {
		v, ok := model.LookupAxisValue(model.AxisBrake, c.LatestFrame())
		return ok && v == model.AxisValue(model.PedalValue{CurrentAngle: 20})
	}, 2*time.Second, 5*time.Millisecond)

	// no replay of past frames
	brake := &valueRecorder{}
	c.AddListener(model.AxisBrake, brake.callback)
	assert.Empty(t, brake.recorded())

	tr.deliver(brakeFrame(3, 30))
	awaitAck(t, tr, 3)
	require.Eventually(t, func() bool { return len(brake.recorded()) == 1 },
		2*time.Second, 5*time.Millisecond)
	assert.Equal(t, model.PedalValue{CurrentAngle: 30}, brake.recorded()[0])
}

func TestMultipleCallbacksInRegistrationOrder(t *testing.T) {
	c, tr := streamingClient(t)

	var (
		mu    sync.Mutex
		order []string
	)
	c.AddListener(model.AxisBrake, func(v model.AxisValue) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, "first")
	})
	c.AddListener(model.AxisBrake, func(v model.AxisValue) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, "second")
	})

	tr.deliver(brakeFrame(1, 1))
	awaitAck(t, tr, 1)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestRemoveListener(t *testing.T) {
	c, tr := streamingClient(t)

	brake := &valueRecorder{}
	handle := c.AddListener(model.AxisBrake, brake.callback)

	tr.deliver(brakeFrame(1, 1))
	awaitAck(t, tr, 1)
	require.Eventually(t, func() bool { return len(brake.recorded()) == 1 },
		2*time.Second, 5*time.Millisecond)

	c.RemoveListener(handle)
	c.RemoveListener(handle) // idempotent

	tr.deliver(brakeFrame(2, 2))
	awaitAck(t, tr, 2)
	assert.Equal(t, 1, len(brake.recorded()))
}

func TestTransportCloseIsTerminal(t *testing.T) {
	c, tr := streamingClient(t)

	tr.Close()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client did not reach terminal state")
	}
	assert.Equal(t, StateClosed, c.State())
}

func TestInvalidEndpoint(t *testing.T) {
	c := New("http://not-a-websocket")
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client did not reach terminal state")
	}
	assert.Equal(t, StateClosed, c.State())
}

func TestLatestFrameReplacedWholesale(t *testing.T) {
	c, tr := streamingClient(t)

	tr.deliver(brakeFrame(1, 10))
	awaitAck(t, tr, 1)
	tr.deliver(steeringFrame(2, 3))
	awaitAck(t, tr, 2)

	frame, ok := c.LatestFrame().(map[string]any)
	require.True(t, ok)
	// no merge with the previous frame
	_, hasBrake := frame["RSC - Input Display - Analog_Brake"]
	assert.False(t, hasBrake)
}
