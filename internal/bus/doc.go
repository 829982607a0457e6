// Package bus provides the in-process message bus for the virtual
// hardware layer.
//
// The bus routes messages between addressed participants (simulated
// instruments, bridges, and the discovery agents that ride alongside
// them). It is a pure routing and bookkeeping layer: payloads are opaque
// byte slices and are never interpreted here.
//
// # Architecture
//
//	┌────────────────────────────────────────────────────────────┐
//	│                           Bus                              │
//	│                                                            │
//	│  ┌──────────────┐   ┌──────────────┐   ┌───────────────┐   │
//	│  │   registry   │   │  per-address │   │   recorder    │   │
//	│  │ addr → conn  │──▶│ FIFO queues  │   │  (optional)   │   │
//	│  └──────────────┘   └──────────────┘   └───────────────┘   │
//	│         │                  │                               │
//	└─────────│──────────────────│───────────────────────────────┘
//	          ▼                  ▼
//	   Connect/Disconnect   Connection.Messages()
//
// # Delivery guarantees
//
//   - An address maps to at most one live registration at a time.
//   - Delivery is FIFO per (sender, receiver) pair; there is no ordering
//     guarantee across different senders.
//   - Send never blocks the producer: each address owns an unbounded
//     inbound queue drained by a dedicated pump goroutine. This trades
//     memory bounds for throughput; see the design notes in DESIGN.md.
//
// # Usage
//
//	b := bus.New()
//	conn, err := b.Connect("gps-1", 64)
//	if err != nil {
//	    return err
//	}
//	defer b.Disconnect("gps-1")
//
//	_ = b.Send(bus.NewData("gps-1", "radar-1", payload))
//
//	for msg := range conn.Messages() {
//	    // handle msg
//	}
//
// # Thread safety
//
// All Bus and Connection methods are safe for concurrent use.
package bus
