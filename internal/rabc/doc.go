// Package rabc is the client core: a periodic keepalive timer and a framed
// unix-socket connection multiplexed through one epoll instance.
//
// Client exposes the synchronous Poll/Process pair. Stream wraps a Client and
// turns kernel readiness into goroutine wake-ups so callers can block on the
// next received frame without spinning. Errors are always *Error values whose
// Kind separates a peer hang-up from size violations, bad input, and bugs.
package rabc
