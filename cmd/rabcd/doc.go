// Command rabcd is the peer daemon for rabc clients.
//
// Running rabcd listens on the configured unix socket and answers every
// frame with "pong" until SIGINT or SIGTERM. `rabcd sessions` lists the
// recorded client sessions.
package main
