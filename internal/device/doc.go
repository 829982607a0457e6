// Package device defines the lifecycle contract every virtual hardware
// device implements, together with the shared device data model.
//
// A device is a unit that produces and consumes bus messages: a simulated
// GPS receiver, a radar sweep, an AIS vessel feed, an uplink bridge. All
// variants implement the Device interface and are dispatched through
// interface polymorphism — there is no runtime type inspection in the
// core.
//
// # Lifecycle
//
//	Uninitialized → Initializing → Running ⇄ Degraded → ShuttingDown → Stopped
//
// Initialize acquires device-local resources and moves the device to
// Running (status Online). Process is invoked once per scheduler tick
// while the device is Running or Degraded and must return promptly without
// blocking; three consecutive process failures transition the device to
// Degraded. Shutdown releases resources, sets status Offline and is
// idempotent.
//
// Lifecycle transitions are driven by the owning manager (see the manager
// package); devices only report their own view through Info().
//
// # Key types
//
//   - Device: the lifecycle contract
//   - Capability: what a device can do (gps, radar, ais, communication, generic)
//   - Status: externally visible health (online, degraded, offline, error)
//   - State: lifecycle position, owned by the manager
//   - Config: caller-supplied device parameters
//   - Info: the discoverable snapshot of a device
package device
