// Package logs reads the daemon log file for `rabcd logs`.
//
// Tail returns the last N lines plus the offset reached; Follow polls from an
// offset and hands new lines to a callback until its context ends. Memory use
// is bounded by the line limit, not the file size.
package logs
