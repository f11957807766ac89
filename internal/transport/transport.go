// Package transport provides the deadline-bounded connection primitive
// used for zero-packet probing.  A connector opens a fresh socket per
// call, completes (or fails) the TCP handshake within the caller's
// timeout, closes the socket, and classifies what happened.  No payload
// is ever written.
package transport

import (
	"fmt"
	"time"

	"zing/internal/resolve"
)

// Status is the kind of outcome a single connect attempt produced.
type Status int

const (
	Connected Status = iota
	Failed
	TimedOut
)

func (s Status) String() string {
	switch s {
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	case TimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// Outcome is emitted once per attempt.
//
// Elapsed is zero when the handshake completed synchronously; callers
// measure wall time around Connect themselves.  Reason is set only for
// Failed and is usually a syscall.Errno such as ECONNREFUSED.
type Outcome struct {
	Status  Status
	Elapsed time.Duration
	Reason  error
}

func (o Outcome) String() string {
	if o.Status == Failed && o.Reason != nil {
		return fmt.Sprintf("%s: %v", o.Status, o.Reason)
	}
	return o.Status.String()
}

// Connector performs one bounded connection attempt.  Implementations
// must own the socket for the whole call and close it before returning.
type Connector interface {
	Connect(ep resolve.Endpoint, timeout time.Duration) Outcome
}

// ConnectorFunc adapts a function to the Connector interface.
type ConnectorFunc func(ep resolve.Endpoint, timeout time.Duration) Outcome

// Connect calls f(ep, timeout).
func (f ConnectorFunc) Connect(ep resolve.Endpoint, timeout time.Duration) Outcome {
	return f(ep, timeout)
}

func connected(elapsed time.Duration) Outcome { return Outcome{Status: Connected, Elapsed: elapsed} }

func failed(reason error) Outcome { return Outcome{Status: Failed, Reason: reason} }

func timedOut(elapsed time.Duration) Outcome { return Outcome{Status: TimedOut, Elapsed: elapsed} }
