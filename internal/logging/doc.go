// Package logging assembles structured slog loggers and formatting helpers used
// by the rabc client, daemon, and C export layer.
//
// It owns the console and JSON handlers, level and output plumbing, the
// standard field keys, and an in-memory sink whose buffered lines the C ABI
// hands back to callers after every call. A no-op logger is provided for
// tests and for wiring code that receives a nil logger.
package logging
