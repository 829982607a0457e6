package manager

import "errors"

// Sentinel errors for the manager package. Wrap with fmt.Errorf and %w;
// match with errors.Is.
var (
	// ErrUnknownDevice indicates an address with no registered device.
	ErrUnknownDevice = errors.New("unknown device")

	// ErrNotRunning indicates an operation that requires a started
	// device, such as triggering discovery on its behalf.
	ErrNotRunning = errors.New("device not running")
)
