// Package preflight runs lightweight health checks against the rabc
// environment: directory permissions, socket path sanity, and a live
// ping/pong exchange with the daemon.
//
// Each check returns a Result with a short human-readable detail. RunAll is
// what `rabcc doctor` renders.
package preflight
