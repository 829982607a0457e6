package bus

import "github.com/google/uuid"

// Address is the unique string identifier of a bus participant.
// Uniqueness is enforced at registration time by Bus.Connect.
type Address string

// Broadcast is the wildcard recipient. A message addressed to Broadcast is
// fanned out to every registered address except the sender.
const Broadcast Address = "*"

// Kind discriminates the message variants carried on the bus.
type Kind string

// Message kinds.
const (
	// KindData carries an opaque application payload between two addresses
	// (or to Broadcast).
	KindData Kind = "data"

	// KindAnnounce carries a device's encoded self-description, broadcast
	// by its discovery agent.
	KindAnnounce Kind = "announce"

	// KindHeartbeat is a payload-free liveness beacon.
	KindHeartbeat Kind = "heartbeat"

	// KindDiscoveryRequest carries an encoded capability filter, broadcast
	// by a requester enumerating reachable devices.
	KindDiscoveryRequest Kind = "discovery_request"

	// KindDiscoveryResponse carries an encoded self-description, addressed
	// directly to the requester.
	KindDiscoveryResponse Kind = "discovery_response"
)

// AllKinds returns all valid message kinds.
func AllKinds() []Kind {
	return []Kind{
		KindData, KindAnnounce, KindHeartbeat,
		KindDiscoveryRequest, KindDiscoveryResponse,
	}
}

// Message is a single frame on the bus.
//
// ID is a globally unique token generated by the sender. It exists for
// tracing and deduplication only and carries no ordering semantics.
// Payload is opaque to the bus; encoding is an agreement between producer
// and consumer (the discovery package uses msgpack envelopes).
type Message struct {
	ID      uuid.UUID `json:"id"`
	Kind    Kind      `json:"kind"`
	From    Address   `json:"from"`
	To      Address   `json:"to"`
	Payload []byte    `json:"payload,omitempty"`
}

// NewData creates a Data message from one address to another.
// Pass Broadcast as the recipient for fan-out delivery.
func NewData(from, to Address, payload []byte) Message {
	return Message{
		ID:      uuid.New(),
		Kind:    KindData,
		From:    from,
		To:      to,
		Payload: payload,
	}
}

// NewAnnounce creates a broadcast Announce message carrying an encoded
// device description.
func NewAnnounce(from Address, payload []byte) Message {
	return Message{
		ID:      uuid.New(),
		Kind:    KindAnnounce,
		From:    from,
		To:      Broadcast,
		Payload: payload,
	}
}

// NewHeartbeat creates a broadcast Heartbeat message.
func NewHeartbeat(from Address) Message {
	return Message{
		ID:   uuid.New(),
		Kind: KindHeartbeat,
		From: from,
		To:   Broadcast,
	}
}

// NewDiscoveryRequest creates a broadcast DiscoveryRequest message carrying
// an encoded filter.
func NewDiscoveryRequest(from Address, payload []byte) Message {
	return Message{
		ID:      uuid.New(),
		Kind:    KindDiscoveryRequest,
		From:    from,
		To:      Broadcast,
		Payload: payload,
	}
}

// NewDiscoveryResponse creates a DiscoveryResponse message addressed
// directly to the requester.
func NewDiscoveryResponse(from, to Address, payload []byte) Message {
	return Message{
		ID:      uuid.New(),
		Kind:    KindDiscoveryResponse,
		From:    from,
		To:      to,
		Payload: payload,
	}
}

// IsBroadcast reports whether the message is addressed to all participants.
func (m Message) IsBroadcast() bool {
	return m.To == Broadcast
}

// IsDiscovery reports whether the message belongs to the discovery protocol
// rather than application Data traffic.
func (m Message) IsDiscovery() bool {
	switch m.Kind {
	case KindAnnounce, KindHeartbeat, KindDiscoveryRequest, KindDiscoveryResponse:
		return true
	default:
		return false
	}
}

// validate checks the structural invariants the bus requires before routing.
func (m Message) validate() error {
	if m.From == "" || m.From == Broadcast {
		return ErrInvalidMessage
	}
	if m.To == "" {
		return ErrInvalidMessage
	}
	switch m.Kind {
	case KindData, KindAnnounce, KindHeartbeat, KindDiscoveryRequest, KindDiscoveryResponse:
		return nil
	default:
		return ErrInvalidMessage
	}
}
