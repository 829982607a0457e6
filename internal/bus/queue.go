package bus

import "sync"

// queue is an unbounded FIFO buffer between a non-blocking producer (the
// bus Send path) and a channel-based consumer (the connection owner).
//
// push never blocks: messages accumulate in a slice under a mutex and a
// dedicated pump goroutine hands them to the out channel one at a time.
// Closing the queue discards anything still buffered.
type queue struct {
	mu     sync.Mutex
	items  []Message
	closed bool

	// notify wakes the pump when the buffer transitions from empty.
	// Capacity 1: a pending wake-up is never lost and push never blocks.
	notify chan struct{}

	// done terminates the pump even if the consumer stopped reading.
	done chan struct{}

	out chan Message
}

// newQueue creates a queue with the given initial capacity hint and starts
// its pump goroutine.
func newQueue(hint int) *queue {
	if hint < 0 {
		hint = 0
	}
	q := &queue{
		items:  make([]Message, 0, hint),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
		out:    make(chan Message),
	}
	go q.pump()
	return q
}

// push appends a message to the buffer. It never blocks and silently drops
// the message if the queue has been closed.
func (q *queue) push(m Message) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, m)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// pump moves buffered messages to the out channel in FIFO order.
func (q *queue) pump() {
	defer close(q.out)
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			closed := q.closed
			q.mu.Unlock()
			if closed {
				return
			}
			select {
			case <-q.notify:
			case <-q.done:
				return
			}
			continue
		}
		m := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()

		select {
		case q.out <- m:
		case <-q.done:
			return
		}
	}
}

// close marks the queue closed and discards buffered messages. The out
// channel is closed by the pump once it observes the closed state.
func (q *queue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.items = nil
	q.mu.Unlock()

	close(q.done)
}

// depth returns the number of buffered messages not yet handed to the
// consumer. Used for stats only.
func (q *queue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
