// Package daemonctl inspects and stops a running rabcd from another process.
//
// Liveness is decided by the daemon's flock rather than the socket, since a
// crashed daemon can leave its socket file behind.
package daemonctl
