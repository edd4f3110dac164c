// Package daemon runs the rabc peer: a unix socket service that answers every
// keepalive frame with "pong".
//
// The Daemon owns the single-instance flock, the session store, and the echo
// Server. The Server removes a stale socket before listening, wraps each
// accepted peer with rabc.AcceptExisting, and records one session per
// connection. A client hanging up is a normal end of session; anything else is
// logged with its kind and message.
package daemon
