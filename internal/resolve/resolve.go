// Package resolve turns a host name and an explicit port into the
// ordered list of TCP endpoints a probe may connect to.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"

	zerr "zing/internal/errors"
	"zing/util"
)

// Family is the caller's address-family preference.
type Family int

const (
	FamilyAny Family = iota
	FamilyIPv4
	FamilyIPv6
)

func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	default:
		return "any"
	}
}

// lookupNetwork is the network name understood by net.Resolver.
func (f Family) lookupNetwork() string {
	switch f {
	case FamilyIPv4:
		return "ip4"
	case FamilyIPv6:
		return "ip6"
	default:
		return "ip"
	}
}

// ParseFamily accepts "any", "ipv4"/"4", "ipv6"/"6" (case-insensitive).
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any":
		return FamilyAny, nil
	case "4", "ipv4", "inet":
		return FamilyIPv4, nil
	case "6", "ipv6", "inet6":
		return FamilyIPv6, nil
	}
	return FamilyAny, fmt.Errorf("unknown address family %q", s)
}

// Endpoint is one resolved, connectable stream address.
type Endpoint struct {
	Family  Family         // FamilyIPv4 or FamilyIPv6, never FamilyAny
	Addr    netip.AddrPort // socket address
	Display string         // printable IP, without port
}

// String returns the "ip:port" form.
func (e Endpoint) String() string { return e.Addr.String() }

// Resolver produces candidate endpoints for one host:port pair.
type Resolver interface {
	Resolve(ctx context.Context, host string, port int, family Family) ([]Endpoint, error)
}

// LookupFunc matches (*net.Resolver).LookupNetIP.
type LookupFunc func(ctx context.Context, network, host string) ([]netip.Addr, error)

// System resolves through the operating system's resolver, keeping the
// order it returns addresses in.
type System struct {
	// Lookup defaults to net.DefaultResolver.LookupNetIP.
	Lookup LookupFunc
}

// Resolve returns the endpoints for host:port restricted to family.  An
// empty result is reported as a *errors.ResolutionError, never as an
// empty slice.
func (s *System) Resolve(ctx context.Context, host string, port int, family Family) ([]Endpoint, error) {
	if port < 1 || port > 65535 {
		return nil, &zerr.ResolutionError{Host: host, Port: port, Code: "EAI_SERVICE",
			Err: fmt.Errorf("port %d out of range 1-65535", port)}
	}

	lookup := s.Lookup
	if lookup == nil {
		lookup = net.DefaultResolver.LookupNetIP
	}

	addrs, err := lookup(ctx, family.lookupNetwork(), host)
	if err != nil {
		return nil, &zerr.ResolutionError{Host: host, Port: port, Code: diagnosticCode(err), Err: err}
	}

	out := make([]Endpoint, 0, len(addrs))
	for _, a := range addrs {
		a = a.Unmap()
		fam := FamilyIPv6
		if a.Is4() {
			fam = FamilyIPv4
		}
		if family != FamilyAny && fam != family {
			continue
		}
		out = append(out, Endpoint{
			Family:  fam,
			Addr:    netip.AddrPortFrom(a, uint16(port)),
			Display: a.String(),
		})
	}

	if len(out) == 0 {
		return nil, &zerr.ResolutionError{Host: host, Port: port, Code: "EAI_ADDRFAMILY",
			Err: fmt.Errorf("%w for %s (%s)", zerr.ErrNoEndpoints, util.FormatAddr(host, port), family)}
	}
	return out, nil
}

// diagnosticCode maps Go resolver failures onto getaddrinfo-style codes.
func diagnosticCode(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		switch {
		case dnsErr.IsNotFound:
			return "EAI_NONAME"
		case dnsErr.IsTimeout, dnsErr.IsTemporary:
			return "EAI_AGAIN"
		}
		return "EAI_FAIL"
	}
	var addrErr *net.AddrError
	if errors.As(err, &addrErr) {
		return "EAI_ADDRFAMILY"
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "EAI_AGAIN"
	}
	return "EAI_FAIL"
}
