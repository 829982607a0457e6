package discovery

import "errors"

// Sentinel errors for the discovery package. Wrap these with fmt.Errorf
// and %w so callers can match with errors.Is:
//
//	if errors.Is(err, discovery.ErrInvalidConfig) { ... }
var (
	// ErrInvalidConfig indicates a discovery configuration value that
	// fails validation (non-positive interval, zero table capacity).
	ErrInvalidConfig = errors.New("invalid discovery config")

	// ErrMalformedMessage indicates a discovery envelope that could not
	// be decoded. Handle logs and swallows it; the sentinel exists for
	// the codec's own callers and tests.
	ErrMalformedMessage = errors.New("malformed discovery message")

	// ErrNotDiscovery indicates a message of a kind the protocol does
	// not handle, such as plain data traffic.
	ErrNotDiscovery = errors.New("not a discovery message")
)
