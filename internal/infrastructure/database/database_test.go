package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// journalSchema mirrors the bus journal table this store exists to
// hold. Tests exercise the same shape the production writer uses.
const journalSchema = `
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
`

func openTestDB(t *testing.T, wal bool) *DB {
	t.Helper()
	db, err := Open(Config{
		Path:        filepath.Join(t.TempDir(), "journal.db"),
		WALMode:     wal,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func insertEntry(t *testing.T, db *DB, sender, kind string, payload []byte) {
	t.Helper()
	_, err := db.Exec(
		"INSERT INTO bus_journal (message_id, kind, sender, recipient, payload) VALUES (?, ?, ?, ?, ?)",
		fmt.Sprintf("msg-%s-%d", sender, time.Now().UnixNano()),
		kind, sender, "*", payload,
	)
	if err != nil {
		t.Fatalf("inserting journal entry: %v", err)
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "journal.db")

	db, err := Open(Config{Path: path, WALMode: true, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Errorf("database directory was not created: %v", err)
	}
	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
}

func TestOpenFailsWhenDirectoryIsBlocked(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("not a directory"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := Open(Config{
		Path:        filepath.Join(blocker, "sub", "journal.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err == nil {
		t.Fatal("Open() succeeded with a file blocking the directory path")
	}
}

func TestJournalModeWAL(t *testing.T) {
	db := openTestDB(t, true)

	mode, err := db.JournalMode(context.Background())
	if err != nil {
		t.Fatalf("JournalMode() error = %v", err)
	}
	if mode != "wal" {
		t.Errorf("JournalMode() = %q, want %q", mode, "wal")
	}
}

func TestJournalModeWithoutWAL(t *testing.T) {
	db := openTestDB(t, false)

	mode, err := db.JournalMode(context.Background())
	if err != nil {
		t.Fatalf("JournalMode() error = %v", err)
	}
	if mode == "wal" {
		t.Error("JournalMode() = wal with WALMode disabled")
	}
}

func TestJournalSchemaRoundTrip(t *testing.T) {
	db := openTestDB(t, true)

	if _, err := db.Exec(journalSchema); err != nil {
		t.Fatalf("creating journal schema: %v", err)
	}

	insertEntry(t, db, "gps-1", "data", []byte(`{"latitude":50.79}`))
	insertEntry(t, db, "radar-1", "heartbeat", nil)

	var sender, kind string
	var payload []byte
	var createdAt time.Time
	err := db.QueryRow(
		"SELECT sender, kind, payload, created_at FROM bus_journal WHERE sender = ?",
		"gps-1",
	).Scan(&sender, &kind, &payload, &createdAt)
	if err != nil {
		t.Fatalf("reading back journal entry: %v", err)
	}

	if sender != "gps-1" || kind != "data" {
		t.Errorf("entry = %s/%s, want gps-1/data", sender, kind)
	}
	if string(payload) != `{"latitude":50.79}` {
		t.Errorf("payload = %s", payload)
	}
	// go-sqlite3 hands TIMESTAMP columns back as time.Time.
	if createdAt.IsZero() {
		t.Error("created_at did not scan into a time.Time")
	}
}

// TestReadsDuringAppendStream mirrors the production contention: the
// journal writer appending while Recent-style queries run against the
// same store. With one pooled connection and the busy timeout this must
// never surface a lock error.
func TestReadsDuringAppendStream(t *testing.T) {
	db := openTestDB(t, true)

	if _, err := db.Exec(journalSchema); err != nil {
		t.Fatalf("creating journal schema: %v", err)
	}

	const writes = 50
	var wg sync.WaitGroup
	errs := make(chan error, writes*2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < writes; i++ {
			if _, err := db.Exec(
				"INSERT INTO bus_journal (message_id, kind, sender, recipient) VALUES (?, ?, ?, ?)",
				fmt.Sprintf("msg-%d", i), "data", "gps-1", "*",
			); err != nil {
				errs <- err
				return
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < writes; i++ {
			var count int
			if err := db.QueryRow("SELECT COUNT(*) FROM bus_journal").Scan(&count); err != nil {
				errs <- err
				return
			}
		}
	}()

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("query failed under concurrent append: %v", err)
	}

	var total int
	if err := db.QueryRow("SELECT COUNT(*) FROM bus_journal").Scan(&total); err != nil {
		t.Fatal(err)
	}
	if total != writes {
		t.Errorf("journal holds %d entries, want %d", total, writes)
	}
}

func TestCheckpointTruncatesWAL(t *testing.T) {
	db := openTestDB(t, true)
	ctx := context.Background()

	if _, err := db.Exec(journalSchema); err != nil {
		t.Fatalf("creating journal schema: %v", err)
	}
	for i := 0; i < 20; i++ {
		insertEntry(t, db, "ais-1", "data", []byte("target"))
	}

	if err := db.Checkpoint(ctx); err != nil {
		t.Fatalf("Checkpoint() error = %v", err)
	}

	// TRUNCATE mode resets the WAL file to zero length.
	walPath := db.Path() + "-wal"
	if info, err := os.Stat(walPath); err == nil && info.Size() != 0 {
		t.Errorf("WAL file is %d bytes after checkpoint, want 0", info.Size())
	}

	// Entries survive the checkpoint.
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM bus_journal").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 20 {
		t.Errorf("journal holds %d entries after checkpoint, want 20", count)
	}
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t, true)

	if err := db.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v, want nil", err)
	}
}

func TestHealthCheckAfterClose(t *testing.T) {
	db := openTestDB(t, true)

	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := db.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() succeeded on a closed store")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	db := openTestDB(t, true)

	if err := db.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestCloseZeroValue(t *testing.T) {
	var db DB
	if err := db.Close(); err != nil {
		t.Errorf("Close() on zero value error = %v, want nil", err)
	}
}

func TestFilePermissions(t *testing.T) {
	db := openTestDB(t, true)

	// Force the file into existence before checking.
	if _, err := db.Exec(journalSchema); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(db.Path())
	if err != nil {
		t.Fatalf("database file missing: %v", err)
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		t.Errorf("database file permissions = %o, want owner-only", perm)
	}
}
