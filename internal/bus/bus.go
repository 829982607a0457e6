package bus

import (
	"sort"
	"sync"
)

// Logger defines the logging interface used by the Bus.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder receives a copy of every message the bus accepts for delivery.
//
// Implementations must not block: the bus calls Record synchronously on the
// sender's goroutine. The journal package provides a buffered SQLite-backed
// implementation.
type Recorder interface {
	Record(msg Message)
}

// Stats holds bus traffic counters for monitoring.
type Stats struct {
	// Sent counts messages accepted by Send.
	Sent uint64
	// Delivered counts per-recipient enqueues (a broadcast to N peers
	// counts N).
	Delivered uint64
	// Broadcasts counts accepted broadcast messages.
	Broadcasts uint64
	// Rejected counts sends that failed validation or addressing.
	Rejected uint64
	// QueueDepth is the total number of buffered messages across all
	// registered addresses at snapshot time.
	QueueDepth int
}

// Connection is the capability handle a participant receives when it
// attaches to the bus. It is exclusively owned by the attaching device (or
// its manager) for the lifetime of the attachment.
type Connection struct {
	addr Address
	bus  *Bus
	in   *queue
}

// Address returns the registered address of this connection.
func (c *Connection) Address() Address {
	return c.addr
}

// Messages returns the inbound stream for this address. The channel is
// closed when the address is disconnected; buffered messages that were not
// yet consumed are discarded at that point.
func (c *Connection) Messages() <-chan Message {
	return c.in.out
}

// Send routes a message through the bus on behalf of this connection.
// The message's From field is stamped with the connection's address.
func (c *Connection) Send(msg Message) error {
	msg.From = c.addr
	return c.bus.Send(msg)
}

// Bus is the address-keyed in-process message router. It exclusively owns
// the address registry and the per-address inbound queues.
type Bus struct {
	mu    sync.RWMutex
	conns map[Address]*Connection

	recorder   Recorder
	onActivity func(from Address)
	logger     Logger

	statsMu sync.Mutex
	stats   Stats
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		conns:  make(map[Address]*Connection),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the bus.
func (b *Bus) SetLogger(logger Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = logger
}

// SetRecorder installs a traffic recorder. Pass nil to disable recording.
// The recorder sees every accepted message exactly once, before fan-out.
func (b *Bus) SetRecorder(r Recorder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recorder = r
}

// SetOnActivity installs the side-channel callback invoked with the sender
// address after every successful Send. Discovery uses this to refresh a
// sender's last_seen without parsing traffic.
func (b *Bus) SetOnActivity(fn func(from Address)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onActivity = fn
}

// Connect registers an address and returns its Connection.
//
// The queueHint sizes the initial inbound buffer; the queue itself grows
// without bound so producers never block.
//
// Returns ErrDuplicateAddress if the address already has a live
// registration, or ErrInvalidAddress for an empty or wildcard address.
func (b *Bus) Connect(addr Address, queueHint int) (*Connection, error) {
	if addr == "" || addr == Broadcast {
		return nil, ErrInvalidAddress
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.conns[addr]; exists {
		return nil, ErrDuplicateAddress
	}

	conn := &Connection{
		addr: addr,
		bus:  b,
		in:   newQueue(queueHint),
	}
	b.conns[addr] = conn

	b.logger.Info("device connected to bus", "address", string(addr))
	return conn, nil
}

// Disconnect removes an address registration and discards its pending
// inbound queue. Disconnecting an unknown address is a no-op.
func (b *Bus) Disconnect(addr Address) {
	b.mu.Lock()
	conn, ok := b.conns[addr]
	if ok {
		delete(b.conns, addr)
	}
	b.mu.Unlock()

	if ok {
		conn.in.close()
		b.logger.Info("device disconnected from bus", "address", string(addr))
	}
}

// IsConnected reports whether an address has a live registration.
func (b *Bus) IsConnected(addr Address) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.conns[addr]
	return ok
}

// ConnectedAddresses returns the registered addresses in sorted order.
func (b *Bus) ConnectedAddresses() []Address {
	b.mu.RLock()
	addrs := make([]Address, 0, len(b.conns))
	for addr := range b.conns {
		addrs = append(addrs, addr)
	}
	b.mu.RUnlock()

	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// Send routes a message.
//
// Point-to-point messages are enqueued onto the recipient's inbound queue
// and fail with ErrUnknownRecipient if the target is not registered.
// Broadcast messages are enqueued onto every registered address except the
// sender and never fail for lack of recipients.
//
// Send never blocks. On success the recorder (if any) and the activity
// callback are invoked.
func (b *Bus) Send(msg Message) error {
	if err := msg.validate(); err != nil {
		b.countRejected()
		return err
	}

	b.mu.RLock()
	recorder := b.recorder
	onActivity := b.onActivity

	var delivered int
	if msg.IsBroadcast() {
		for addr, conn := range b.conns {
			if addr == msg.From {
				continue
			}
			conn.in.push(msg)
			delivered++
		}
	} else {
		conn, ok := b.conns[msg.To]
		if !ok {
			b.mu.RUnlock()
			b.countRejected()
			b.logger.Debug("send to unknown recipient",
				"from", string(msg.From), "to", string(msg.To))
			return ErrUnknownRecipient
		}
		conn.in.push(msg)
		delivered = 1
	}
	b.mu.RUnlock()

	b.countSent(msg.IsBroadcast(), delivered)

	if recorder != nil {
		recorder.Record(msg)
	}
	if onActivity != nil {
		onActivity(msg.From)
	}
	return nil
}

// GetStats returns a snapshot of the bus traffic counters.
func (b *Bus) GetStats() Stats {
	b.statsMu.Lock()
	stats := b.stats
	b.statsMu.Unlock()

	b.mu.RLock()
	for _, conn := range b.conns {
		stats.QueueDepth += conn.in.depth()
	}
	b.mu.RUnlock()

	return stats
}

func (b *Bus) countSent(broadcast bool, delivered int) {
	b.statsMu.Lock()
	b.stats.Sent++
	b.stats.Delivered += uint64(delivered)
	if broadcast {
		b.stats.Broadcasts++
	}
	b.statsMu.Unlock()
}

func (b *Bus) countRejected() {
	b.statsMu.Lock()
	b.stats.Rejected++
	b.statsMu.Unlock()
}
