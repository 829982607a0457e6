package mqtt

import "fmt"

// DefaultTopicPrefix is the root of the Windlass topic hierarchy.
// All uplink traffic lives under this prefix unless the deployment
// overrides it via uplink.topic_prefix.
const DefaultTopicPrefix = "windlass"

// Topics provides builders for Windlass MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
// The zero value uses DefaultTopicPrefix:
//
//	topics := mqtt.Topics{}
//	statusTopic := topics.DeviceStatus("gps-1")
//	// Returns: "windlass/device/gps-1/status"
//
// Set Prefix to publish under a custom root:
//
//	topics := mqtt.Topics{Prefix: "fleet/vessel-7"}
//	topics.NavPosition() // "fleet/vessel-7/nav/position"
type Topics struct {
	// Prefix overrides DefaultTopicPrefix when non-empty.
	Prefix string
}

func (t Topics) root() string {
	if t.Prefix != "" {
		return t.Prefix
	}
	return DefaultTopicPrefix
}

// =============================================================================
// Device Topics
// =============================================================================

// DeviceStatus returns the topic for a device's lifecycle status.
//
// Example: windlass/device/gps-1/status
func (t Topics) DeviceStatus(address string) string {
	return fmt.Sprintf("%s/device/%s/status", t.root(), address)
}

// DeviceTelemetry returns the topic for raw telemetry from a device.
//
// Example: windlass/device/radar-1/telemetry
func (t Topics) DeviceTelemetry(address string) string {
	return fmt.Sprintf("%s/device/%s/telemetry", t.root(), address)
}

// DeviceCommand returns the topic for commands addressed to a device.
//
// Example: windlass/device/autopilot-1/command
func (t Topics) DeviceCommand(address string) string {
	return fmt.Sprintf("%s/device/%s/command", t.root(), address)
}

// DeviceDiscovered returns the topic for discovery announcements relayed
// off the vessel bus.
//
// Example: windlass/discovery/gps-1
func (t Topics) DeviceDiscovered(address string) string {
	return fmt.Sprintf("%s/discovery/%s", t.root(), address)
}

// =============================================================================
// Navigation Topics
// =============================================================================

// NavPosition returns the topic for the vessel's position feed.
//
// Example: windlass/nav/position
func (t Topics) NavPosition() string {
	return fmt.Sprintf("%s/nav/position", t.root())
}

// NavRadar returns the topic for radar sweep snapshots.
//
// Example: windlass/nav/radar
func (t Topics) NavRadar() string {
	return fmt.Sprintf("%s/nav/radar", t.root())
}

// NavAIS returns the topic for AIS target reports.
//
// Example: windlass/nav/ais
func (t Topics) NavAIS() string {
	return fmt.Sprintf("%s/nav/ais", t.root())
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the system status topic. The client's last will
// publishes here when the connection drops.
//
// Example: windlass/system/status
func (t Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", t.root())
}

// SystemTime returns the time sync topic.
//
// Example: windlass/system/time
func (t Topics) SystemTime() string {
	return fmt.Sprintf("%s/system/time", t.root())
}

// SystemShutdown returns the shutdown signal topic.
//
// Example: windlass/system/shutdown
func (t Topics) SystemShutdown() string {
	return fmt.Sprintf("%s/system/shutdown", t.root())
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllDeviceStatus returns a pattern matching every device status topic.
//
// Pattern: windlass/device/+/status
func (t Topics) AllDeviceStatus() string {
	return fmt.Sprintf("%s/device/+/status", t.root())
}

// AllDeviceTelemetry returns a pattern matching all device telemetry.
//
// Pattern: windlass/device/+/telemetry
func (t Topics) AllDeviceTelemetry() string {
	return fmt.Sprintf("%s/device/+/telemetry", t.root())
}

// AllDeviceCommands returns a pattern matching commands to any device.
//
// Pattern: windlass/device/+/command
func (t Topics) AllDeviceCommands() string {
	return fmt.Sprintf("%s/device/+/command", t.root())
}

// AllDiscovery returns a pattern matching all discovery announcements.
//
// Pattern: windlass/discovery/+
func (t Topics) AllDiscovery() string {
	return fmt.Sprintf("%s/discovery/+", t.root())
}

// AllNav returns a pattern matching every navigation feed.
//
// Pattern: windlass/nav/+
func (t Topics) AllNav() string {
	return fmt.Sprintf("%s/nav/+", t.root())
}

// AllTopics returns a pattern matching all Windlass topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: windlass/#
func (t Topics) AllTopics() string {
	return fmt.Sprintf("%s/#", t.root())
}
