// Package report renders probe results.  The text form matches the
// classic zing console output; the JSON form emits one document when
// the run ends, whether with a summary or a failure.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	zerr "zing/internal/errors"
	"zing/internal/metrics"
	"zing/internal/stats"
)

// Header describes the run once the first handshake has completed.
type Header struct {
	Host        string
	Addr        string
	Ports       int
	OpsPerCycle int // attempts per cycle × ports
}

// Attempt is one successful handshake.
type Attempt struct {
	Port    int
	Cycle   int
	Host    string
	Addr    string
	Elapsed time.Duration
}

// Result is everything the final summary needs.
type Result struct {
	Host    string
	Addr    string
	Summary stats.Summary
	Metrics metrics.Snapshot
}

// Failure describes a run that ended without a summary.
type Failure struct {
	Host    string
	Port    int
	Err     error
	Metrics metrics.Snapshot
}

// Kind names how the run failed: "timed_out", "connection_failed",
// "resolution_failed" or "error".
func (f Failure) Kind() string {
	var re *zerr.ResolutionError
	switch {
	case zerr.IsTimeout(f.Err):
		return "timed_out"
	case zerr.Is(f.Err, zerr.ErrConnectionFailed):
		return "connection_failed"
	case zerr.As(f.Err, &re):
		return "resolution_failed"
	}
	return "error"
}

// Reporter receives events from the probe controller.  Calls arrive
// sequentially from a single goroutine.  A run ends with exactly one of
// Summary or Failed.
type Reporter interface {
	Header(h Header)
	Attempt(a Attempt)
	Failed(f Failure)
	Summary(r Result) error
}

// New returns the text reporter, or the JSON reporter when asJSON is set.
func New(w io.Writer, asJSON bool) Reporter {
	if asJSON {
		return NewJSON(w)
	}
	return NewText(w)
}

// ms converts a duration to fractional milliseconds.
func ms(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }

// ── Text ─────────────────────────────────────────────────────────────

// Text writes human-readable lines as the run progresses.
type Text struct {
	w io.Writer
}

// NewText creates a text reporter writing to w.
func NewText(w io.Writer) *Text { return &Text{w: w} }

func (t *Text) Header(h Header) {
	fmt.Fprintf(t.w, "\nZING: %s (%s): %d ports used, %d ops per cycle.\n\n",
		h.Host, h.Addr, h.Ports, h.OpsPerCycle)
}

func (t *Text) Attempt(a Attempt) {
	fmt.Fprintf(t.w, "ZING: Port: %-5d %s [%s] Time: %4.3f-ms.\n",
		a.Port, a.Host, a.Addr, ms(a.Elapsed))
}

// Failed prints the classic timeout line.  Other failures are left to
// the error log on stderr.
func (t *Text) Failed(f Failure) {
	if f.Kind() == "timed_out" {
		fmt.Fprintf(t.w, "Error connecting to host: %s port: %d timed out!\n", f.Host, f.Port)
	}
}

func (t *Text) Summary(r Result) error {
	l := r.Summary.Millis()
	_, err := fmt.Fprintf(t.w,
		"\n--- zing summary for %s/%s ---\n"+
			"%d total ops used; total time: %d ms\n"+
			"total-time min/avg/max/stddev = %.3f/%.3f/%.3f/%.3f ms\n",
		r.Host, r.Addr,
		r.Summary.TotalOps, r.Summary.WallMillis(),
		l.Min, l.Avg, l.Max, l.StdDev)
	return err
}

// ── JSON ─────────────────────────────────────────────────────────────

// Document is the JSON form of a completed (or aborted) run.
type Document struct {
	Host      string            `json:"host"`
	Addr      string            `json:"addr,omitempty"`
	Ports     int               `json:"ports,omitempty"`
	Attempts  []AttemptRecord   `json:"attempts"`
	Summary   *SummaryRecord    `json:"summary,omitempty"`
	Metrics   *metrics.Snapshot `json:"metrics,omitempty"`
	Status    string            `json:"status"`
	Error     string            `json:"error,omitempty"`
	ErrorPort int               `json:"error_port,omitempty"`
}

// AttemptRecord is one handshake in the JSON document.
type AttemptRecord struct {
	Port   int     `json:"port"`
	Cycle  int     `json:"cycle"`
	Addr   string  `json:"addr"`
	TimeMS float64 `json:"time_ms"`
}

// SummaryRecord carries the reduced figures in milliseconds.
type SummaryRecord struct {
	stats.Latency
	TotalOps    int   `json:"total_ops"`
	TotalTimeMS int64 `json:"total_time_ms"`
	Samples     int   `json:"samples"`
}

// JSON buffers events and writes a single Document.
type JSON struct {
	mu  sync.Mutex
	enc *json.Encoder
	doc Document
}

// NewJSON creates a JSON reporter writing to w.
func NewJSON(w io.Writer) *JSON {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return &JSON{enc: enc, doc: Document{Attempts: []AttemptRecord{}}}
}

func (j *JSON) Header(h Header) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.doc.Host = h.Host
	j.doc.Addr = h.Addr
	j.doc.Ports = h.Ports
}

func (j *JSON) Attempt(a Attempt) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.doc.Attempts = append(j.doc.Attempts, AttemptRecord{
		Port:   a.Port,
		Cycle:  a.Cycle,
		Addr:   a.Addr,
		TimeMS: ms(a.Elapsed),
	})
}

// Failed writes the partial document with the run metrics; no summary
// follows.
func (j *JSON) Failed(f Failure) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.doc.Host = f.Host
	j.doc.Status = f.Kind()
	j.doc.Error = f.Err.Error()
	j.doc.ErrorPort = f.Port
	snap := f.Metrics
	j.doc.Metrics = &snap
	_ = j.enc.Encode(j.doc)
}

func (j *JSON) Summary(r Result) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.doc.Host = r.Host
	j.doc.Addr = r.Addr
	j.doc.Status = "ok"
	j.doc.Summary = &SummaryRecord{
		Latency:     r.Summary.Millis(),
		TotalOps:    r.Summary.TotalOps,
		TotalTimeMS: r.Summary.WallMillis(),
		Samples:     r.Summary.Samples,
	}
	snap := r.Metrics
	j.doc.Metrics = &snap
	return j.enc.Encode(j.doc)
}
