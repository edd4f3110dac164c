// Package config loads, normalizes, and validates rabc configuration data.
//
// It supplies defaults for the keepalive client and its peer daemon, expands
// user paths (including tilde shortcuts), reads TOML files, and honours the
// RABC_SOCKET and RABC_LOG_LEVEL environment overrides.
//
// Always obtain settings through this package so the CLIs, the daemon, and
// the C export layer agree on socket paths, frame limits, and log formats.
package config
