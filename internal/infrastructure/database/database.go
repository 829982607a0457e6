package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	// dirPermissions for the database directory.
	dirPermissions = 0750

	// filePermissions keeps the journal file owner-only; it carries
	// every payload that crossed the bus.
	filePermissions = 0600

	// openTimeout bounds the connectivity check during Open.
	openTimeout = 5 * time.Second

	msPerSecond = 1000
)

// DB is the journal store: a single SQLite file tuned for one
// append-heavy writer (the journal's background goroutine) with
// occasional readers (Recent/BySender queries and the pruner).
type DB struct {
	*sql.DB
	path string
}

// Config maps the database section of config.yaml.
type Config struct {
	// Path to the SQLite file. The directory is created if missing.
	Path string

	// WALMode turns on write-ahead logging. With WAL the journal writer
	// appends without blocking readers; without it every insert takes
	// the whole file lock. Leave on outside of debugging.
	WALMode bool

	// BusyTimeout in seconds. How long a statement waits on the file
	// lock before failing with SQLITE_BUSY.
	BusyTimeout int
}

// dsn renders the go-sqlite3 connection string.
//
// Pragma choices, sized to the journal workload:
//   - _txlock=immediate: the writer goroutine takes the write lock up
//     front instead of upgrading mid-transaction, which avoids
//     SQLITE_BUSY deadlocks against the pruner.
//   - _journal_mode=WAL + _synchronous=NORMAL: group-commits the append
//     stream; a power cut can lose the tail of the WAL but never
//     corrupts the file. The journal is a trace, not a ledger.
//   - no foreign keys: the schema is a single flat table.
func dsn(cfg Config) string {
	base := fmt.Sprintf("file:%s?_busy_timeout=%d&_txlock=immediate",
		cfg.Path, cfg.BusyTimeout*msPerSecond)
	if cfg.WALMode {
		return base + "&_journal_mode=WAL&_synchronous=NORMAL"
	}
	return base + "&_journal_mode=DELETE&_synchronous=FULL"
}

// Open prepares the journal store: creates the directory, opens the
// file with the workload pragmas, restricts it to a single connection
// and verifies it responds.
//
// One connection is deliberate. SQLite allows one writer regardless;
// funnelling the journal writer and the readers through the same
// connection means contention shows up as the busy timeout rather than
// as interleaved-lock errors.
func Open(cfg Config) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite3", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	// The journal holds this connection for the life of the process;
	// recycling it would only force WAL file reopens.
	sqlDB.SetConnMaxLifetime(0)

	db := &DB{DB: sqlDB, path: cfg.Path}

	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		sqlDB.Close() //nolint:errcheck // best effort on the error path
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	// First run creates the file on first write, so a failure here is fine.
	_ = os.Chmod(cfg.Path, filePermissions)

	return db, nil
}

// Close releases the connection. Safe on a zero DB.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Path returns the journal file location.
func (db *DB) Path() string {
	return db.path
}

// HealthCheck runs a trivial query to prove the connection is live.
func (db *DB) HealthCheck(ctx context.Context) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// JournalMode reports the journal mode SQLite actually settled on
// ("wal", "delete", ...). Pragmas in the DSN are requests, not
// guarantees; health reporting reads the mode back.
func (db *DB) JournalMode(ctx context.Context) (string, error) {
	var mode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
		return "", fmt.Errorf("reading journal mode: %w", err)
	}
	return mode, nil
}

// Checkpoint folds the WAL back into the main file and truncates it.
// Called after a prune pass so deleted journal entries actually return
// disk space instead of sitting in the WAL. A no-op off WAL mode.
func (db *DB) Checkpoint(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("checkpointing database: %w", err)
	}
	return nil
}

// Stats exposes the connection pool counters.
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}
