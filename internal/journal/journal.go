package journal

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/windlass-marine/windlass-core/internal/bus"
	"github.com/windlass-marine/windlass-core/internal/infrastructure/database"
)

const (
	// bufferSize is the number of messages held between the bus and the
	// background writer before drops begin.
	bufferSize = 1024

	defaultRecentLimit = 50
	maxRecentLimit     = 500
)

const schema = `
CREATE TABLE IF NOT EXISTS bus_journal (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id TEXT NOT NULL,
	kind       TEXT NOT NULL,
	sender     TEXT NOT NULL,
	recipient  TEXT NOT NULL,
	payload    BLOB,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_bus_journal_sender ON bus_journal(sender);
CREATE INDEX IF NOT EXISTS idx_bus_journal_created ON bus_journal(created_at);
`

// Entry is one journalled bus message.
type Entry struct {
	ID        int64
	MessageID string
	Kind      bus.Kind
	From      bus.Address
	To        bus.Address
	Payload   []byte
	CreatedAt time.Time
}

// Journal is a buffered, SQLite-backed bus.Recorder.
type Journal struct {
	db *database.DB

	buf     chan bus.Message
	done    chan struct{}
	wg      sync.WaitGroup
	closed  atomic.Bool
	dropped atomic.Uint64
}

// New creates the schema if needed and starts the background writer.
func New(db *database.DB) (*Journal, error) {
	if _, err := db.DB.Exec(schema); err != nil {
		return nil, fmt.Errorf("creating journal schema: %w", err)
	}

	j := &Journal{
		db:   db,
		buf:  make(chan bus.Message, bufferSize),
		done: make(chan struct{}),
	}
	j.wg.Add(1)
	go j.writer()
	return j, nil
}

// Record buffers a message for journalling. It never blocks: when the
// buffer is full the message is dropped and counted in Dropped.
func (j *Journal) Record(msg bus.Message) {
	if j.closed.Load() {
		return
	}
	select {
	case j.buf <- msg:
	default:
		j.dropped.Add(1)
	}
}

// Dropped returns how many messages were lost, either to a full buffer
// or to a failed insert.
func (j *Journal) Dropped() uint64 {
	return j.dropped.Load()
}

// writer drains the buffer into SQLite until Close.
func (j *Journal) writer() {
	defer j.wg.Done()
	for {
		select {
		case msg := <-j.buf:
			j.insert(msg)
		case <-j.done:
			// Flush whatever is still buffered.
			for {
				select {
				case msg := <-j.buf:
					j.insert(msg)
				default:
					return
				}
			}
		}
	}
}

func (j *Journal) insert(msg bus.Message) {
	_, err := j.db.DB.Exec(
		"INSERT INTO bus_journal (message_id, kind, sender, recipient, payload) VALUES (?, ?, ?, ?, ?)",
		msg.ID.String(),
		string(msg.Kind),
		string(msg.From),
		string(msg.To),
		msg.Payload,
	)
	if err != nil {
		// A failing writer must not take the bus down with it, but the
		// loss has to show up in the Close-time dropped count.
		j.dropped.Add(1)
	}
}

// Recent returns the newest journal entries, newest first. The limit
// defaults to 50 and is capped at 500.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	rows, err := j.db.DB.QueryContext(ctx,
		`SELECT id, message_id, kind, sender, recipient, payload, created_at
		 FROM bus_journal
		 ORDER BY id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		var kind, from, to string
		var payload sql.RawBytes
		var createdAt time.Time
		if err := rows.Scan(&e.ID, &e.MessageID, &kind, &from, &to, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}
		e.Kind = bus.Kind(kind)
		e.From = bus.Address(from)
		e.To = bus.Address(to)
		e.Payload = append([]byte(nil), payload...)
		e.CreatedAt = createdAt
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal: %w", err)
	}
	return entries, nil
}

// BySender returns the newest entries from one sender, newest first.
func (j *Journal) BySender(ctx context.Context, from bus.Address, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	rows, err := j.db.DB.QueryContext(ctx,
		`SELECT id, message_id, kind, sender, recipient, payload, created_at
		 FROM bus_journal
		 WHERE sender = ?
		 ORDER BY id DESC
		 LIMIT ?`,
		string(from),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying journal by sender: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		var kind, sender, to string
		var payload sql.RawBytes
		var createdAt time.Time
		if err := rows.Scan(&e.ID, &e.MessageID, &kind, &sender, &to, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}
		e.Kind = bus.Kind(kind)
		e.From = bus.Address(sender)
		e.To = bus.Address(to)
		e.Payload = append([]byte(nil), payload...)
		e.CreatedAt = createdAt
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal: %w", err)
	}
	return entries, nil
}

// Prune deletes entries older than the retention window and returns
// the number removed.
func (j *Journal) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}
	cutoff := time.Now().Add(-olderThan).UTC().Format("2006-01-02 15:04:05")
	result, err := j.db.DB.ExecContext(ctx,
		"DELETE FROM bus_journal WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning journal: %w", err)
	}
	return result.RowsAffected()
}

// Close stops accepting messages, flushes the buffer and waits for the
// writer to finish. The database connection is left open for the
// owner to close.
func (j *Journal) Close() error {
	if j.closed.Swap(true) {
		return nil
	}
	close(j.done)
	j.wg.Wait()
	return nil
}
