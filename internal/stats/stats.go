// Package stats reduces per-cycle handshake timings into summary
// latency figures.
package stats

import (
	"math"
	"time"
)

// Record is the accumulated connect time of one cycle on one port: the
// sum of every attempt's elapsed time in that cycle.
type Record struct {
	Port        int
	Cycle       int
	Accumulated time.Duration
}

// Micros returns the accumulated time in microseconds.
func (r Record) Micros() int64 { return r.Accumulated.Microseconds() }

// Series is the ordered sequence of records for a whole run.
type Series []Record

// Latency holds the four reduced figures in a single unit.
type Latency struct {
	Min    float64 `json:"min"`
	Avg    float64 `json:"avg"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"stddev"`
}

// Summary is the derived result printed once at the end of a run.
// Latency is kept in microseconds; use Millis for reporting.
type Summary struct {
	Latency   Latency
	Samples   int
	TotalOps  int
	TotalWall time.Duration
}

// Millis converts the latency figures to milliseconds.
func (s Summary) Millis() Latency {
	return Latency{
		Min:    s.Latency.Min / 1000,
		Avg:    s.Latency.Avg / 1000,
		Max:    s.Latency.Max / 1000,
		StdDev: s.Latency.StdDev / 1000,
	}
}

// WallMillis returns the total wall time truncated to whole milliseconds.
func (s Summary) WallMillis() int64 { return s.TotalWall.Milliseconds() }

// Aggregate computes min/avg/max and the population standard deviation
// (divisor len(series)) over every record.  totalOps and wall are carried
// through untouched.  An empty series yields zero latency figures.
func Aggregate(series Series, totalOps int, wall time.Duration) Summary {
	s := Summary{
		Samples:   len(series),
		TotalOps:  totalOps,
		TotalWall: wall,
	}
	if len(series) == 0 {
		return s
	}

	first := float64(series[0].Micros())
	lo, hi, sum := first, first, 0.0
	for _, r := range series {
		v := float64(r.Micros())
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		sum += v
	}
	mean := sum / float64(len(series))

	var dv float64
	for _, r := range series {
		d := float64(r.Micros()) - mean
		dv += d * d
	}

	s.Latency = Latency{
		Min:    lo,
		Avg:    mean,
		Max:    hi,
		StdDev: math.Sqrt(dv / float64(len(series))),
	}
	return s
}

// TotalOps is ports × attempts-per-cycle × cycles.
func TotalOps(ports, attemptsPerCycle, cycles int) int {
	return ports * attemptsPerCycle * cycles
}
