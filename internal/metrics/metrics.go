// Package metrics provides lightweight, lock-free counters for tracking
// what a zing run did: resolutions, attempts, failovers, and how each
// attempt ended.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for a zing run.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	resolutions atomic.Int64
	candidates  atomic.Int64
	attempts    atomic.Int64
	connected   atomic.Int64
	failed      atomic.Int64
	timedOut    atomic.Int64
	failovers   atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Resolution ───────────────────────────────────────────────────────

// Resolved records one successful resolution yielding n candidates.
func (c *Collector) Resolved(n int) {
	if c == nil {
		return
	}
	c.resolutions.Add(1)
	c.candidates.Add(int64(n))
}

// Resolutions returns the number of successful resolutions.
func (c *Collector) Resolutions() int64 {
	if c == nil {
		return 0
	}
	return c.resolutions.Load()
}

// ── Attempts ─────────────────────────────────────────────────────────

// AttemptStarted counts a connect call about to be issued.
func (c *Collector) AttemptStarted() {
	if c == nil {
		return
	}
	c.attempts.Add(1)
}

// Connected counts a completed handshake.
func (c *Collector) Connected() {
	if c == nil {
		return
	}
	c.connected.Add(1)
}

// Failed counts a refused or unreachable attempt.
func (c *Collector) Failed() {
	if c == nil {
		return
	}
	c.failed.Add(1)
}

// TimedOut counts an attempt that hit its deadline.
func (c *Collector) TimedOut() {
	if c == nil {
		return
	}
	c.timedOut.Add(1)
}

// Failover counts a move to the next candidate endpoint.
func (c *Collector) Failover() {
	if c == nil {
		return
	}
	c.failovers.Add(1)
}

// Attempts returns the number of connect calls issued.
func (c *Collector) Attempts() int64 {
	if c == nil {
		return 0
	}
	return c.attempts.Load()
}

// ConnectedCount returns the number of completed handshakes.
func (c *Collector) ConnectedCount() int64 {
	if c == nil {
		return 0
	}
	return c.connected.Load()
}

// FailedCount returns the number of failed attempts.
func (c *Collector) FailedCount() int64 {
	if c == nil {
		return 0
	}
	return c.failed.Load()
}

// Failovers returns the number of candidate switches.
func (c *Collector) Failovers() int64 {
	if c == nil {
		return 0
	}
	return c.failovers.Load()
}

// ── Errors ───────────────────────────────────────────────────────────

// RecordError stores the most recent error message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string `json:"uptime"`
	Resolutions      int64  `json:"resolutions"`
	Candidates       int64  `json:"candidates"`
	Attempts         int64  `json:"attempts"`
	Connected        int64  `json:"connected"`
	Failed           int64  `json:"failed"`
	TimedOut         int64  `json:"timed_out"`
	Failovers        int64  `json:"failovers"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:      time.Since(c.startTime).Truncate(time.Millisecond).String(),
		Resolutions: c.resolutions.Load(),
		Candidates:  c.candidates.Load(),
		Attempts:    c.attempts.Load(),
		Connected:   c.connected.Load(),
		Failed:      c.failed.Load(),
		TimedOut:    c.timedOut.Load(),
		Failovers:   c.failovers.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}
