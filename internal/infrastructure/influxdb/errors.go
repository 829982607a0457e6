package influxdb

import "errors"

// Sentinel errors for the telemetry exporter, checked with errors.Is.
var (
	// ErrDisabled means the influxdb section has enabled: false. The
	// harness treats this as "run without telemetry", not a fault.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrInvalidConfig means a required connection field (URL, token,
	// org or bucket) is missing.
	ErrInvalidConfig = errors.New("influxdb: incomplete connection settings")

	// ErrConnectionFailed wraps the reason the initial ping failed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrNotConnected means the exporter has been closed or never came up.
	ErrNotConnected = errors.New("influxdb: not connected")
)
