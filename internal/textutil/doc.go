// Package textutil renders terminal output shared by the rabcc and rabcd
// commands.
//
// The primary use cases are:
//   - Rendering rounded go-pretty tables with per-column alignment
//   - Title-casing enum-like values such as session end reasons
//   - Deciding whether a writer is a terminal that accepts ANSI colour
package textutil
