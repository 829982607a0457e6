package uplink

import "errors"

// Package errors. Wrap with fmt.Errorf("%w: ...") and test with errors.Is.
var (
	// ErrNoPublisher indicates the uplink was constructed without an MQTT
	// client.
	ErrNoPublisher = errors.New("uplink: no publisher configured")

	// ErrNotConnected indicates the broker connection was unavailable when
	// a publish was attempted.
	ErrNotConnected = errors.New("uplink: broker not connected")
)
