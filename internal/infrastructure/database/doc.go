// Package database opens and tunes the SQLite file behind the bus
// journal.
//
// The workload is one append-heavy writer (the journal's background
// goroutine) with occasional readers (Recent/BySender queries and the
// retention pruner). The connection string pragmas and the
// single-connection pool are sized for exactly that; see dsn in
// database.go for the reasoning per pragma.
//
// Schema ownership lives with the consuming package: the journal
// creates its own table on first use, this package only hands out a
// configured connection plus the WAL housekeeping (JournalMode,
// Checkpoint) the harness runs after pruning.
//
// The journal file carries every payload that crossed the bus, so it is
// created owner-only (0600) and all queries use parameterised
// statements.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
package database
