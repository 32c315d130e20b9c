package client

import (
	"github.com/racedash/rsc-input-service-go/pkg/model"
)

// AddListener registers a callback for an axis. It may be called at any
// time, also before the handshake completed; the callback sees only frames
// arriving after registration. Callbacks for one axis are invoked in
// registration order.
func (c *TelemetryClient) AddListener(axis model.Axis, cb Callback) Handle {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.nextID++
	c.listeners[axis] = append(c.listeners[axis], entry{id: c.nextID, cb: cb})
	return Handle{axis: axis, id: c.nextID}
}

// RemoveListener deletes the registration identified by the handle.
// Removing a handle twice is a no-op. The list is rebuilt instead of
// shifted in place since a dispatch in flight may still read the old slice.
func (c *TelemetryClient) RemoveListener(h Handle) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	entries := c.listeners[h.axis]
	updated := make([]entry, 0, len(entries))
	for _, e := range entries {
		if e.id != h.id {
			updated = append(updated, e)
		}
	}
	c.listeners[h.axis] = updated
}
