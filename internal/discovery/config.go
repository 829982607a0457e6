package discovery

import (
	"fmt"
	"time"
)

// Config holds the timing and capacity parameters of a Protocol instance.
type Config struct {
	// HeartbeatInterval is how often the protocol re-announces its own
	// DeviceInfo on the bus.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	// DeviceTimeout is the silence threshold after which a known device
	// is considered gone. Should be a small multiple of the heartbeat
	// interval so a single lost announce does not evict a live device.
	DeviceTimeout time.Duration `yaml:"device_timeout"`

	// CleanupInterval is how often the known-devices table is swept for
	// timed-out entries.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`

	// MaxTrackedDevices bounds the known-devices table. When full, the
	// least recently seen entry is evicted to make room.
	MaxTrackedDevices int `yaml:"max_tracked_devices"`
}

// DefaultConfig returns the standard discovery timing: announce every
// 30s, time out after 90s of silence, sweep every 60s, track up to 1000
// devices.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: 30 * time.Second,
		DeviceTimeout:     90 * time.Second,
		CleanupInterval:   60 * time.Second,
		MaxTrackedDevices: 1000,
	}
}

// Validate checks that all config values are usable.
func (c Config) Validate() error {
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("%w: heartbeat_interval must be positive", ErrInvalidConfig)
	}
	if c.DeviceTimeout <= 0 {
		return fmt.Errorf("%w: device_timeout must be positive", ErrInvalidConfig)
	}
	if c.CleanupInterval <= 0 {
		return fmt.Errorf("%w: cleanup_interval must be positive", ErrInvalidConfig)
	}
	if c.MaxTrackedDevices <= 0 {
		return fmt.Errorf("%w: max_tracked_devices must be positive", ErrInvalidConfig)
	}
	if c.DeviceTimeout <= c.HeartbeatInterval {
		return fmt.Errorf("%w: device_timeout must exceed heartbeat_interval", ErrInvalidConfig)
	}
	return nil
}
