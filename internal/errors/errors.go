// Package errors provides domain-specific error types for zing.
//
// These types carry structured context (operation, address, resolver
// diagnostics) that lets the top level decide how a run ended and which
// exit code to report, without any probe code calling os.Exit itself.
package errors

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"syscall"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrConnectionFailed = errors.New("connection establishment impossible")
	ErrTimeout          = errors.New("timed out")
	ErrNoEndpoints      = errors.New("no usable addresses")
)

// ── Exit codes ───────────────────────────────────────────────────────

const (
	ExitOK     = 0
	ExitConfig = 1 // bad CLI input or address resolution failure
	ExitProbe  = 2 // timeout, or every candidate endpoint refused
)

// ── Structured error types ───────────────────────────────────────────

// NetworkError represents a failure in a network operation.
type NetworkError struct {
	Op        string // operation: "connect", "socket", "poll"
	Addr      string // network address involved
	Err       error  // underlying error
	Retryable bool   // whether another candidate is worth trying
}

func (e *NetworkError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ResolutionError reports a failed name lookup for one host:port pair.
type ResolutionError struct {
	Host string
	Port int
	Code string // resolver diagnostic, e.g. "EAI_NONAME"
	Err  error
}

func (e *ResolutionError) Error() string {
	addr := net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
	if e.Err == nil {
		return fmt.Sprintf("resolve %s: %s", addr, e.Code)
	}
	return fmt.Sprintf("resolve %s: %s (%v)", addr, e.Code, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a NetworkError, automatically detecting retryability
// from the underlying error.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{
		Op:        op,
		Addr:      addr,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// Timeout builds the fatal error for a connect that hit its deadline.
func Timeout(addr string) *NetworkError {
	return &NetworkError{Op: "connect", Addr: addr, Err: ErrTimeout}
}

// Exhausted builds the fatal error for a port whose candidates all
// failed.  last is the reason reported by the final candidate.
func Exhausted(addr string, last error) *NetworkError {
	err := ErrConnectionFailed
	if last != nil && !errors.Is(last, ErrConnectionFailed) {
		err = fmt.Errorf("%w: %w", ErrConnectionFailed, last)
	}
	return &NetworkError{Op: "connect", Addr: addr, Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// IsRetryable reports whether err is worth retrying against another
// candidate endpoint.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Retryable
	}
	return classifyRetryable(err)
}

// IsTimeout reports whether err is a probe timeout.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

// ExitCode maps a run error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var (
		ce *ConfigError
		re *ResolutionError
	)
	switch {
	case errors.As(err, &ce), errors.As(err, &re):
		return ExitConfig
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrConnectionFailed):
		return ExitProbe
	}
	// Anything else (including an interrupted run) is reported like a
	// configuration failure.
	return ExitConfig
}

// classifyRetryable inspects standard library error types.  A sentinel
// timeout is never retryable: a hung handshake ends the run.
func classifyRetryable(err error) bool {
	if err == nil || errors.Is(err, ErrTimeout) {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return !opErr.Timeout()
	}
	var errno syscall.Errno
	return errors.As(err, &errno)
}

// ── Re-exports for convenience ───────────────────────────────────────
//
// These allow callers to use zing/internal/errors as a drop-in
// replacement for the standard library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }
