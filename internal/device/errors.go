package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrProcess) {
//	    // count the failure, keep the tick loop running
//	}
var (
	// ErrInitialization is returned when a device fails to acquire its
	// local resources. The caller must not call Process after a failed
	// Initialize.
	ErrInitialization = errors.New("device: initialization failed")

	// ErrProcess is returned by Process on an internal fault. It is
	// recovered locally by the manager and never aborts the shared tick
	// loop.
	ErrProcess = errors.New("device: process failed")

	// ErrShutdown is returned when releasing device resources fails.
	ErrShutdown = errors.New("device: shutdown failed")

	// ErrInvalidConfig is returned when device configuration validation
	// fails.
	ErrInvalidConfig = errors.New("device: invalid config")

	// ErrInvalidName is returned when a device name is empty or too long.
	ErrInvalidName = errors.New("device: invalid name")

	// ErrInvalidCapability is returned when a capability is not in the
	// closed capability set.
	ErrInvalidCapability = errors.New("device: invalid capability")

	// ErrInvalidInterval is returned when an update interval is not
	// positive.
	ErrInvalidInterval = errors.New("device: invalid update interval")
)
