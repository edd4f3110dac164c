// Package cabi implements the Go half of the librabc C interface.
//
// Every call reports a Status and hands back the log lines recorded while it
// ran, drained from a process-wide in-memory sink. Failures additionally carry
// the error kind and message as separate strings. The cgo layer in
// cmd/librabc only converts these values to C memory.
package cabi
