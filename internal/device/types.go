package device

import (
	"time"

	"github.com/windlass-marine/windlass-core/internal/bus"
)

// Capability represents what a device can do. The set is closed: per-type
// behaviour (radar vs. positioning vs. identification) is modelled as
// variants behind the one Device interface, not as open-ended tags.
type Capability string

// Capability constants.
const (
	CapabilityGps           Capability = "gps"
	CapabilityRadar         Capability = "radar"
	CapabilityAis           Capability = "ais"
	CapabilityCommunication Capability = "communication"
	CapabilityGeneric       Capability = "generic"
)

// AllCapabilities returns all valid capability values.
func AllCapabilities() []Capability {
	return []Capability{
		CapabilityGps, CapabilityRadar, CapabilityAis,
		CapabilityCommunication, CapabilityGeneric,
	}
}

// Status represents the externally visible health of a device.
type Status string

// Status constants.
const (
	StatusOnline   Status = "online"
	StatusDegraded Status = "degraded"
	StatusOffline  Status = "offline"
	StatusError    Status = "error"
)

// AllStatuses returns all valid status values.
func AllStatuses() []Status {
	return []Status{StatusOnline, StatusDegraded, StatusOffline, StatusError}
}

// State is the lifecycle position of a device. It is owned and advanced by
// the managing component; status values in Info derive from it.
type State string

// Lifecycle states.
const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateRunning       State = "running"
	StateDegraded      State = "degraded"
	StateShuttingDown  State = "shutting_down"
	StateStopped       State = "stopped"
)

// StatusFor maps a lifecycle state to the status it implies. A device's
// status is Online only while its owning manager considers it Running.
func StatusFor(state State) Status {
	switch state {
	case StateRunning:
		return StatusOnline
	case StateDegraded:
		return StatusDegraded
	case StateUninitialized, StateInitializing, StateShuttingDown, StateStopped:
		return StatusOffline
	default:
		return StatusError
	}
}

// Config holds caller-supplied device parameters. It is plain structured
// data; the core never loads configuration from files or environment.
type Config struct {
	// Name is the human-readable device name.
	Name string `json:"name" msgpack:"name"`

	// Capabilities advertises what the device can do.
	Capabilities []Capability `json:"capabilities" msgpack:"capabilities"`

	// UpdateInterval is how often the device emits fresh output. Devices
	// are still polled every tick; they pace themselves against this.
	UpdateInterval time.Duration `json:"update_interval" msgpack:"update_interval"`

	// QueueHint sizes the initial inbound queue buffer on the bus. The
	// queue itself is unbounded.
	QueueHint int `json:"queue_hint" msgpack:"queue_hint"`

	// Params carries free-form device-specific parameters.
	Params map[string]string `json:"params,omitempty" msgpack:"params,omitempty"`
}

// HasCapability reports whether the config advertises the capability.
func (c Config) HasCapability(cap Capability) bool {
	for _, have := range c.Capabilities {
		if have == cap {
			return true
		}
	}
	return false
}

// DeepCopy creates an independent copy of the Config so snapshots cannot
// be mutated through shared slices or maps.
func (c Config) DeepCopy() Config {
	cpy := c
	if c.Capabilities != nil {
		cpy.Capabilities = make([]Capability, len(c.Capabilities))
		copy(cpy.Capabilities, c.Capabilities)
	}
	if c.Params != nil {
		cpy.Params = make(map[string]string, len(c.Params))
		for k, v := range c.Params {
			cpy.Params[k] = v
		}
	}
	return cpy
}

// Info is the discoverable snapshot of a device.
//
// Mutation is single-writer: the component that owns a device mutates its
// Info (the bus refreshes last_seen on traffic through the discovery side
// channel; discovery agents refresh status and last_seen on heartbeats).
// Everyone else receives copies.
type Info struct {
	Address      bus.Address `json:"address" msgpack:"address"`
	Config       Config      `json:"config" msgpack:"config"`
	Status       Status      `json:"status" msgpack:"status"`
	LastSeen     time.Time   `json:"last_seen" msgpack:"last_seen"`
	Version      string      `json:"version" msgpack:"version"`
	Manufacturer string      `json:"manufacturer" msgpack:"manufacturer"`
}

// DeepCopy creates an independent copy of the Info.
func (i Info) DeepCopy() Info {
	cpy := i
	cpy.Config = i.Config.DeepCopy()
	return cpy
}
