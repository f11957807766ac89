package core

import (
	"context"
	"fmt"
	"time"

	zerr "zing/internal/errors"
	"zing/internal/metrics"
	"zing/internal/report"
	"zing/internal/resolve"
	"zing/internal/retry"
	"zing/internal/stats"
	"zing/internal/transport"
	"zing/util"
)

// Target is what a run measures.  It is never modified after Build.
type Target struct {
	Host   string
	Ports  []int
	Family resolve.Family
}

// Plan is how a run measures.
type Plan struct {
	Cycles        int
	Attempts      int // per cycle
	Timeout       time.Duration
	FailoverDelay time.Duration
}

// Measurement is the outcome of a completed probe run.
type Measurement struct {
	Series  stats.Series
	Summary stats.Summary
	Addr    string // display address of the last successful handshake
}

// ProbeMode measures TCP handshake latency to every port of a Target,
// strictly one attempt at a time.
type ProbeMode struct {
	Target    Target
	Plan      Plan
	Resolver  resolve.Resolver
	Connector transport.Connector
	Reporter  report.Reporter
	Metrics   *metrics.Collector
	Logger    *util.Logger
}

// Run probes every port and reports the summary.  A timeout or an
// unreachable port ends the run early; the reporter then gets Failed
// instead of Summary.
func (m *ProbeMode) Run(ctx context.Context) error {
	res, err := m.Probe(ctx)
	if err != nil {
		return err
	}
	return m.Reporter.Summary(report.Result{
		Host:    m.Target.Host,
		Addr:    res.Addr,
		Summary: res.Summary,
		Metrics: m.Metrics.Snapshot(),
	})
}

// Probe executes the measurement loop: for each port, resolve once, then
// run Plan.Cycles cycles of Plan.Attempts handshakes, summing each
// cycle's elapsed times into one record.
func (m *ProbeMode) Probe(ctx context.Context) (Measurement, error) {
	start := time.Now()

	var (
		res    Measurement
		header bool
	)
	for _, port := range m.Target.Ports {
		eps, err := m.Resolver.Resolve(ctx, m.Target.Host, port, m.Target.Family)
		if err != nil {
			return Measurement{}, m.fail(port, err)
		}
		if len(eps) == 0 {
			return Measurement{}, m.fail(port, &zerr.ResolutionError{
				Host: m.Target.Host, Port: port, Code: "EAI_NONAME", Err: zerr.ErrNoEndpoints,
			})
		}
		m.Metrics.Resolved(len(eps))
		m.Logger.Verbose("resolved %s port %d to %d candidate(s), first %s",
			m.Target.Host, port, len(eps), eps[0])

		cur := &cursor{endpoints: eps}
		for cycle := 0; cycle < m.Plan.Cycles; cycle++ {
			var acc time.Duration
			for i := 0; i < m.Plan.Attempts; i++ {
				if err := ctx.Err(); err != nil {
					return Measurement{}, m.fail(port, fmt.Errorf("probe interrupted: %w", err))
				}

				ep, elapsed, err := m.attempt(ctx, port, cur)
				if err != nil {
					return Measurement{}, m.fail(port, err)
				}

				if !header {
					m.Reporter.Header(report.Header{
						Host:        m.Target.Host,
						Addr:        ep.Display,
						Ports:       len(m.Target.Ports),
						OpsPerCycle: m.Plan.Attempts * len(m.Target.Ports),
					})
					header = true
				}
				m.Reporter.Attempt(report.Attempt{
					Port:    port,
					Cycle:   cycle,
					Host:    m.Target.Host,
					Addr:    ep.Display,
					Elapsed: elapsed,
				})
				acc += elapsed
				res.Addr = ep.Display
			}
			res.Series = append(res.Series, stats.Record{Port: port, Cycle: cycle, Accumulated: acc})
		}
	}

	total := stats.TotalOps(len(m.Target.Ports), m.Plan.Attempts, m.Plan.Cycles)
	res.Summary = stats.Aggregate(res.Series, total, time.Since(start))
	return res, nil
}

// fail records a fatal error and hands it to the reporter.  An
// interrupted run is returned as is.
func (m *ProbeMode) fail(port int, err error) error {
	if zerr.Is(err, context.Canceled) || zerr.Is(err, context.DeadlineExceeded) {
		return err
	}
	m.Metrics.RecordError(err.Error())
	m.Reporter.Failed(report.Failure{
		Host:    m.Target.Host,
		Port:    port,
		Err:     err,
		Metrics: m.Metrics.Snapshot(),
	})
	return err
}

// attempt performs one measured handshake, failing over through the
// port's remaining candidates when a candidate refuses.  A failure that
// is not a network refusal ends the port at once.  The returned duration
// is the wall time of the successful connect only.
func (m *ProbeMode) attempt(ctx context.Context, port int, cur *cursor) (resolve.Endpoint, time.Duration, error) {
	var (
		ep      resolve.Endpoint
		elapsed time.Duration
		last    error
		addr    = util.FormatAddr(m.Target.Host, port)
	)

	b := retry.Backoff{InitialDelay: m.Plan.FailoverDelay, MaxAttempts: cur.remaining()}
	err := b.Do(ctx, func(int) error {
		ep = cur.current()
		m.Metrics.AttemptStarted()

		t0 := time.Now()
		out := m.Connector.Connect(ep, m.Plan.Timeout)
		elapsed = time.Since(t0)
		m.Logger.Debug("connect %s: %v in %v", ep, out, elapsed)

		switch out.Status {
		case transport.Connected:
			m.Metrics.Connected()
			return nil
		case transport.TimedOut:
			m.Metrics.TimedOut()
			return retry.Permanent(zerr.Timeout(ep.String()))
		}

		m.Metrics.Failed()
		last = out.Reason
		if last == nil {
			last = zerr.ErrConnectionFailed
		}
		nerr := zerr.Wrap("connect", ep.String(), last)
		if !zerr.IsRetryable(nerr) {
			return retry.Permanent(zerr.Exhausted(addr, last))
		}
		if cur.advance() {
			m.Metrics.Failover()
			m.Logger.Warn("connect %s failed: %v; trying next candidate", ep, last)
		}
		return nerr
	})

	switch {
	case err == nil:
		return ep, elapsed, nil
	case zerr.Is(err, retry.ErrExhausted):
		m.Logger.Verbose("all %d candidate(s) for %s refused", len(cur.endpoints), addr)
		return ep, 0, zerr.Exhausted(addr, last)
	}
	return ep, 0, err
}

// cursor walks a port's candidate endpoints in resolver order.  It only
// moves forward: a candidate that refused is not tried again for the
// rest of the run.
type cursor struct {
	endpoints []resolve.Endpoint
	pos       int
}

func (c *cursor) current() resolve.Endpoint { return c.endpoints[c.pos] }

// remaining counts the current candidate and every one after it.
func (c *cursor) remaining() int { return len(c.endpoints) - c.pos }

// advance moves to the next candidate and reports whether one exists.
func (c *cursor) advance() bool {
	if c.pos+1 >= len(c.endpoints) {
		return false
	}
	c.pos++
	return true
}
