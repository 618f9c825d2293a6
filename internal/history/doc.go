// Package history persists one immutable task record per transformed item.
//
// Store is the SQLite persistence collaborator: insert-only on the write
// side, with listings by user, by service type, and overall on the read side.
// Recorder builds records from engine outcomes and never lets a persistence
// failure reach the caller; it logs a warning instead. When a Publisher is
// attached each stored record is also announced on the message bus.
package history
