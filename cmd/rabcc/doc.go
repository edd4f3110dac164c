// Command rabcc is the rabc keepalive client.
//
// `rabcc poll` drives the client's readiness loop directly, printing every
// reply the daemon sends; `rabcc stream` consumes replies through the
// asynchronous Stream adapter. Both send "ping" on every timer tick.
// `rabcc config` creates, shows, and validates the TOML configuration.
package main
