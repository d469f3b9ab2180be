package media

import "sync"

// DeviceContext guards a GPU/decoder device shared between a decode
// goroutine (copying frames out of the decoder's recycled surfaces) and
// the render tick (sampling a frame). Device calls are not thread-safe,
// so both sides take this lock, which is deliberately distinct from any
// queue lock.
type DeviceContext struct {
	mu sync.Mutex
}

// NewDeviceContext creates a device context.
func NewDeviceContext() *DeviceContext {
	return &DeviceContext{}
}

// Lock acquires exclusive access to the device.
func (d *DeviceContext) Lock() {
	d.mu.Lock()
}

// Unlock releases the device.
func (d *DeviceContext) Unlock() {
	d.mu.Unlock()
}
