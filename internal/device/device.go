package device

import (
	"context"

	"github.com/windlass-marine/windlass-core/internal/bus"
)

// Device is the uniform lifecycle contract implemented by every virtual
// hardware variant.
//
// Implementations do not need to be safe for concurrent use: each device
// is exclusively owned by a single manager, which serialises all calls.
type Device interface {
	// Initialize acquires device-local resources. On success the owning
	// manager moves the device to Running (status Online); on failure the
	// device is marked Stopped and Process is never called.
	Initialize(ctx context.Context) error

	// Process is invoked once per scheduler tick while the device is
	// Running or Degraded. It must return promptly without blocking and
	// produces zero or more outbound messages reflecting the device's
	// internal state change. A fault is reported as an error wrapping
	// ErrProcess; it does not change the Running state immediately.
	Process() ([]bus.Message, error)

	// Info returns a read-only snapshot of the device's current
	// description. It has no side effects.
	Info() Info

	// Shutdown releases resources and sets the device's own status to
	// Offline. It is idempotent: repeated calls are no-ops.
	Shutdown(ctx context.Context) error
}

// MessageHandler is optionally implemented by devices that consume inbound
// Data traffic from their bus connection. The manager asserts for it
// dynamically and delivers drained messages during the tick; returned
// messages are forwarded to the bus.
//
// Devices that do not implement it have their inbound Data traffic drained
// and discarded by the manager so queues cannot grow without a consumer.
type MessageHandler interface {
	HandleMessage(msg bus.Message) ([]bus.Message, error)
}
