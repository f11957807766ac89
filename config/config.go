// Package config defines the run configuration for zing and provides
// helpers for parsing port lists and validating user input.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	zerr "zing/internal/errors"
	"zing/internal/resolve"
)

// Config holds every tuneable for a single zing run.  It is built once
// from defaults, file, environment and flags, then treated as read-only.
type Config struct {
	// ── Target ───────────────────────────────────────────────────────
	Host   string
	Ports  []int // ordered, distinct
	Family resolve.Family

	// ── Measurement ──────────────────────────────────────────────────
	Cycles        int           // -c: measurement cycles per port
	Attempts      int           // -o: attempts per cycle
	Timeout       time.Duration // -t: per-attempt deadline
	FailoverDelay time.Duration // pause before the next candidate endpoint

	// ── Output ───────────────────────────────────────────────────────
	Verbose    int
	JSON       bool
	ConfigFile string
}

// Default returns a Config populated from defaults.go.
func Default() *Config {
	return &Config{
		Host:          DefaultHost,
		Family:        resolve.FamilyAny,
		Cycles:        DefaultCycles,
		Attempts:      DefaultAttempts,
		Timeout:       DefaultTimeout,
		FailoverDelay: DefaultFailoverDelay,
	}
}

// OpsPerCycle is attempts × ports, the figure shown in the run header.
func (c *Config) OpsPerCycle() int { return c.Attempts * len(c.Ports) }

// ── Port helpers ─────────────────────────────────────────────────────

// PortRange is an inclusive start–end pair.
type PortRange struct {
	Start int
	End   int
}

// Expand returns every port in the range.
func (pr PortRange) Expand() []int {
	out := make([]int, 0, pr.End-pr.Start+1)
	for p := pr.Start; p <= pr.End; p++ {
		out = append(out, p)
	}
	return out
}

// ParsePortSpec accepts "80" or "80-90".
func ParsePortSpec(spec string) (PortRange, error) {
	if strings.Contains(spec, "-") {
		parts := strings.SplitN(spec, "-", 2)
		start, err := strconv.Atoi(parts[0])
		if err != nil {
			return PortRange{}, fmt.Errorf("invalid port range start %q", parts[0])
		}
		end, err := strconv.Atoi(parts[1])
		if err != nil {
			return PortRange{}, fmt.Errorf("invalid port range end %q", parts[1])
		}
		if start < 1 || end > 65535 || start > end {
			return PortRange{}, fmt.Errorf("invalid port range %d-%d", start, end)
		}
		return PortRange{Start: start, End: end}, nil
	}

	port, err := strconv.Atoi(spec)
	if err != nil {
		return PortRange{}, fmt.Errorf("invalid port %q", spec)
	}
	if port < 1 || port > 65535 {
		return PortRange{}, fmt.Errorf("port %d out of range 1-65535", port)
	}
	return PortRange{Start: port, End: port}, nil
}

// ParsePortList splits a comma-separated list such as "80,443,8000-8002"
// into ports, preserving order.  Repeated ports are rejected.
func ParsePortList(list string) ([]int, error) {
	var (
		out  []int
		seen = make(map[int]bool)
	)
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			return nil, fmt.Errorf("empty entry in port list %q", list)
		}
		pr, err := ParsePortSpec(item)
		if err != nil {
			return nil, err
		}
		for _, p := range pr.Expand() {
			if seen[p] {
				return nil, fmt.Errorf("port %d listed more than once", p)
			}
			seen[p] = true
			out = append(out, p)
		}
	}
	return out, nil
}

// SetPorts parses list and replaces the configured ports.
func (c *Config) SetPorts(list string) error {
	ports, err := ParsePortList(list)
	if err != nil {
		return &zerr.ConfigError{
			Field:   "ports",
			Value:   list,
			Message: err.Error(),
			Hint:    "use a comma-separated list such as -p 80,443 or -p 8000-8005",
		}
	}
	c.Ports = ports
	return nil
}

// FamilyFromFlags maps the -4 / -6 switches to a family preference.
func FamilyFromFlags(v4, v6 bool) (resolve.Family, error) {
	switch {
	case v4 && v6:
		return resolve.FamilyAny, &zerr.ConfigError{
			Field:   "ipv4",
			Message: "-4 and -6 are mutually exclusive",
		}
	case v4:
		return resolve.FamilyIPv4, nil
	case v6:
		return resolve.FamilyIPv6, nil
	}
	return resolve.FamilyAny, nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
// Every failure is a *errors.ConfigError.
func (c *Config) Validate() error {
	if c.Host == "" {
		return &zerr.ConfigError{Field: "host", Message: "hostname is empty"}
	}
	if len(c.Ports) == 0 {
		return &zerr.ConfigError{
			Field:   "ports",
			Message: "missing explicit port list",
			Hint:    "zing -p 80,443 " + c.Host,
		}
	}
	seen := make(map[int]bool, len(c.Ports))
	for _, p := range c.Ports {
		if p < 1 || p > 65535 {
			return &zerr.ConfigError{Field: "ports", Value: p, Message: "port out of range 1-65535"}
		}
		if seen[p] {
			return &zerr.ConfigError{Field: "ports", Value: p, Message: "port listed more than once"}
		}
		seen[p] = true
	}
	if c.Cycles < 1 {
		return &zerr.ConfigError{Field: "count", Value: c.Cycles, Message: "cycle count must be positive"}
	}
	if c.Attempts < 1 {
		return &zerr.ConfigError{Field: "ops", Value: c.Attempts, Message: "attempts per cycle must be positive"}
	}
	if c.Timeout <= 0 {
		return &zerr.ConfigError{
			Field:   "timeout",
			Value:   c.Timeout.Milliseconds(),
			Message: "timeout must be positive",
			Hint:    "the timeout is given in milliseconds, e.g. -t 3000",
		}
	}
	if c.FailoverDelay < 0 {
		return &zerr.ConfigError{Field: "failover-delay", Value: c.FailoverDelay, Message: "delay cannot be negative"}
	}
	return nil
}
