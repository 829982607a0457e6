// Package manager owns the device fleet: registration, the lifecycle
// state machine, cooperative scheduling and per-device discovery agents.
//
// # Lifecycle
//
//	Uninitialized --> Initializing --> Running <--> Degraded
//	                       |              |            |
//	                       v              v            v
//	                    Stopped <-- ShuttingDown <-----+
//
// A device that fails Initialize goes straight to Stopped and is
// excluded from the running set; the rest of the fleet is unaffected.
// Three consecutive process errors mark a device Degraded; the first
// subsequent success returns it to Running.
//
// # Scheduling
//
// The host drives the fleet with Tick. Each tick the manager, per
// device: drains the inbound queue (routing discovery traffic to the
// device's agent and data traffic to the device when it implements
// device.MessageHandler), calls Process when the device's update
// interval has elapsed, forwards produced messages to the bus, and
// drives the discovery agent. A Process call whose wall time exceeds
// the process budget counts as a process error even when it returns
// nil, so one misbehaving device cannot stall the fleet unnoticed.
//
// Every managed device gets its own discovery agent announcing on the
// device's behalf, so each participant keeps an independent view of the
// fleet, exactly as separate hardware units would.
package manager
