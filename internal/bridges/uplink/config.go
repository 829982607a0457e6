package uplink

import (
	"fmt"
	"strings"

	"github.com/windlass-marine/windlass-core/internal/bus"
)

// Default buffer and identification values.
const (
	// defaultBufferSize is the pending-publish channel capacity. Telemetry
	// arriving while the buffer is full is dropped, not queued.
	defaultBufferSize = 256

	// defaultName is the device name advertised over discovery.
	defaultName = "MQTT Uplink"
)

// Config holds uplink bridge parameters.
type Config struct {
	// Name is the device name advertised over discovery. Defaults to
	// "MQTT Uplink".
	Name string

	// TopicPrefix overrides the default topic root. Empty means the
	// package default ("windlass").
	TopicPrefix string

	// QoS is the publish QoS level (0, 1 or 2).
	QoS byte

	// BufferSize is the pending-publish channel capacity. Zero means the
	// package default.
	BufferSize int

	// Routes redirects payloads from specific addresses to fixed topics,
	// overriding the per-device telemetry topic. Keys are bus addresses,
	// values are full topic strings.
	Routes map[bus.Address]string
}

// Validate checks the configuration for structural problems.
func (c Config) Validate() error {
	var errs []string

	if c.QoS > 2 {
		errs = append(errs, fmt.Sprintf("qos must be 0-2, got %d", c.QoS))
	}
	if c.BufferSize < 0 {
		errs = append(errs, fmt.Sprintf("buffer size must not be negative, got %d", c.BufferSize))
	}
	for addr, topic := range c.Routes {
		if addr == "" || topic == "" {
			errs = append(errs, "routes must not contain empty addresses or topics")
			break
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid uplink config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// withDefaults returns a copy with zero values replaced by defaults.
func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = defaultName
	}
	if c.BufferSize == 0 {
		c.BufferSize = defaultBufferSize
	}
	return c
}
