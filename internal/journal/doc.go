// Package journal records bus traffic to SQLite for post-run analysis.
//
// The journal implements bus.Recorder. Record never blocks the sender:
// messages are handed to a buffered channel and written by a background
// goroutine; when the buffer is full the message is dropped and
// counted. The schema is created on first use.
//
// # Usage
//
//	db, _ := database.Open(database.Config{Path: "windlass.db", WALMode: true})
//	j, _ := journal.New(db)
//	defer j.Close()
//	b.SetRecorder(j)
package journal
