package bus

import "errors"

// Domain errors for the bus package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, bus.ErrDuplicateAddress) {
//	    // handle duplicate registration
//	}
var (
	// ErrDuplicateAddress is returned when connecting an address that is
	// already registered on the bus.
	ErrDuplicateAddress = errors.New("bus: duplicate address")

	// ErrUnknownRecipient is returned when sending a point-to-point message
	// to an address that is not registered.
	ErrUnknownRecipient = errors.New("bus: unknown recipient")

	// ErrInvalidAddress is returned when an address is empty or reserved.
	ErrInvalidAddress = errors.New("bus: invalid address")

	// ErrInvalidMessage is returned when a message is structurally unusable
	// (missing sender, unknown kind).
	ErrInvalidMessage = errors.New("bus: invalid message")
)
