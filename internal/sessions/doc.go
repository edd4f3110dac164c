// Package sessions records rabcd peer connections in SQLite.
//
// Each accepted client gets a session row keyed by a UUID; the daemon updates
// it with the number of frames received and the reason the connection ended.
// Rows left open by a daemon that died are marked abandoned on the next start.
// The history backs `rabcd sessions` and is safe to delete at any time.
package sessions
