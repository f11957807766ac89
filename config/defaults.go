package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultHost is probed when no positional host is given.
	DefaultHost = "localhost"

	// DefaultCycles is the number of measurement cycles per port.
	DefaultCycles = 4

	// DefaultAttempts is the number of handshakes summed into one cycle.
	DefaultAttempts = 5

	// DefaultTimeout bounds a single connection attempt.
	DefaultTimeout = 3000 * time.Millisecond

	// DefaultFailoverDelay is the pause before trying the next candidate
	// address after a refused attempt.
	DefaultFailoverDelay time.Duration = 0

	// EnvPrefix prefixes every supported environment variable.
	EnvPrefix = "ZING_"
)
