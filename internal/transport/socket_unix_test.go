//go:build unix

package transport

import (
	"errors"
	"net"
	"net/netip"
	"syscall"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"zing/internal/resolve"
	"zing/util"
)

func endpointFor(t *testing.T, addr string) resolve.Endpoint {
	t.Helper()
	ap := netip.MustParseAddrPort(addr)
	fam := resolve.FamilyIPv4
	if ap.Addr().Is6() {
		fam = resolve.FamilyIPv6
	}
	return resolve.Endpoint{Family: fam, Addr: ap, Display: ap.Addr().String()}
}

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	return ln
}

// TestSocket_ConnectsToListener verifies a local listening socket yields
// Connected well under the timeout.
func TestSocket_ConnectsToListener(t *testing.T) {
	ln := listen(t)
	ep := endpointFor(t, ln.Addr().String())

	start := time.Now()
	out := (&Socket{}).Connect(ep, 2*time.Second)
	elapsed := time.Since(start)

	if out.Status != Connected {
		t.Fatalf("status = %v, want connected", out)
	}
	if elapsed > time.Second {
		t.Errorf("connect took %v", elapsed)
	}
}

// TestSocket_Refused verifies an immediately refusing port is Failed
// with the pending socket error as reason, never a hang.
func TestSocket_Refused(t *testing.T) {
	port, err := util.FindFreePort()
	if err != nil {
		t.Fatal(err)
	}
	ep := endpointFor(t, util.FormatAddr("127.0.0.1", port))

	start := time.Now()
	out := (&Socket{}).Connect(ep, 2*time.Second)
	if time.Since(start) > time.Second {
		t.Errorf("refused connect took %v", time.Since(start))
	}

	if out.Status != Failed {
		t.Fatalf("status = %v, want failed", out)
	}
	if !errors.Is(out.Reason, syscall.ECONNREFUSED) {
		t.Errorf("reason = %v, want ECONNREFUSED", out.Reason)
	}
}

// TestSocket_TimeoutBound verifies a handshake that never completes
// times out within the budget plus scheduling slack.
func TestSocket_TimeoutBound(t *testing.T) {
	sa := saturated(t).(*unix.SockaddrInet4)
	ep := endpointFor(t, util.FormatAddr("127.0.0.1", sa.Port))
	timeout := 50 * time.Millisecond

	start := time.Now()
	out := (&Socket{}).Connect(ep, timeout)
	elapsed := time.Since(start)

	if out.Status != TimedOut {
		t.Fatalf("status = %v, want timed out", out)
	}
	if elapsed < timeout {
		t.Errorf("returned after %v, before the %v deadline", elapsed, timeout)
	}
	if elapsed > timeout+500*time.Millisecond {
		t.Errorf("returned after %v, want ≤ %v + slack", elapsed, timeout)
	}
}

// saturated returns the address of a loopback listener whose accept
// queue is full, so further handshakes stay in SYN_SENT.
func saturated(t *testing.T) unix.Sockaddr {
	t.Helper()
	lfd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { unix.Close(lfd) })
	if err := unix.Bind(lfd, &unix.SockaddrInet4{Addr: [4]byte{127, 0, 0, 1}}); err != nil {
		t.Fatal(err)
	}
	if err := unix.Listen(lfd, 0); err != nil {
		t.Fatal(err)
	}
	sa, err := unix.Getsockname(lfd)
	if err != nil {
		t.Fatal(err)
	}

	// Never accept: fill the queue until a handshake hangs.
	for i := 0; i < 16; i++ {
		fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_TCP)
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { unix.Close(fd) })
		if connectWithDeadline(fd, sa, 100*time.Millisecond).Status == TimedOut {
			return sa
		}
	}
	t.Skip("accept queue never filled")
	return nil
}

// TestConnectWithDeadline_RestoresFlags verifies O_NONBLOCK is scoped to
// the call on the success, failure and timeout paths.
func TestConnectWithDeadline_RestoresFlags(t *testing.T) {
	ln := listen(t)
	port, err := util.FindFreePort()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		target  func(t *testing.T) unix.Sockaddr
		timeout time.Duration
		want    Status
	}{
		{"connected", addrOf(ln.Addr().String()), time.Second, Connected},
		{"refused", addrOf(util.FormatAddr("127.0.0.1", port)), time.Second, Failed},
		{"timed out", saturated, 20 * time.Millisecond, TimedOut},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sa := tt.target(t)

			fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_TCP)
			if err != nil {
				t.Fatal(err)
			}
			defer unix.Close(fd)

			before, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
			if err != nil {
				t.Fatal(err)
			}
			if before&unix.O_NONBLOCK != 0 {
				t.Fatal("fresh socket should be blocking")
			}

			if out := connectWithDeadline(fd, sa, tt.timeout); out.Status != tt.want {
				t.Errorf("status = %v, want %v", out, tt.want)
			}

			after, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
			if err != nil {
				t.Fatal(err)
			}
			if after != before {
				t.Errorf("flags = %#x after connect, want %#x", after, before)
			}
		})
	}
}

func addrOf(addr string) func(t *testing.T) unix.Sockaddr {
	return func(t *testing.T) unix.Sockaddr {
		t.Helper()
		sa, _, err := sockaddr(endpointFor(t, addr))
		if err != nil {
			t.Fatal(err)
		}
		return sa
	}
}

func TestInProgress(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{unix.EINPROGRESS, true},
		{unix.EALREADY, true},
		{unix.EINTR, true},
		{unix.EAGAIN, false}, // no ephemeral port, nothing was sent
		{unix.ECONNREFUSED, false},
		{unix.ENETUNREACH, false},
	}
	for _, tt := range tests {
		if got := inProgress(tt.err); got != tt.want {
			t.Errorf("inProgress(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

// TestSettle_Unconnected verifies a socket that polls writable without
// ever having connected is not reported as Connected.
func TestSettle_Unconnected(t *testing.T) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		t.Fatal(err)
	}
	defer unix.Close(fd)

	pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
	if _, err := unix.Poll(pfd, 0); err != nil {
		t.Fatal(err)
	}

	revents := []int16{pfd[0].Revents, unix.POLLOUT}
	for _, ev := range revents {
		if out := settle(fd, ev, time.Now()); out.Status != Failed {
			t.Errorf("revents %#x: status = %v, want failed", ev, out)
		}
	}
	if out := settle(fd, unix.POLLOUT, time.Now()); !errors.Is(out.Reason, unix.ENOTCONN) {
		t.Errorf("reason = %v, want ENOTCONN", out.Reason)
	}
}

// TestSettle_Connected verifies an established socket settles as Connected.
func TestSettle_Connected(t *testing.T) {
	ln := listen(t)
	sa := addrOf(ln.Addr().String())(t)

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		t.Fatal(err)
	}
	defer unix.Close(fd)
	if err := unix.Connect(fd, sa); err != nil {
		t.Fatal(err)
	}

	if out := settle(fd, unix.POLLOUT, time.Now()); out.Status != Connected {
		t.Errorf("status = %v, want connected", out)
	}
	if out := settle(fd, unix.POLLNVAL, time.Now()); !errors.Is(out.Reason, unix.EBADF) {
		t.Errorf("POLLNVAL reason = %v, want EBADF", out.Reason)
	}
}

func TestPollMillis(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int
	}{
		{time.Microsecond, 1},
		{time.Millisecond, 1},
		{1500 * time.Microsecond, 2},
		{3 * time.Second, 3000},
		{1000 * time.Hour, 1<<31 - 1},
	}
	for _, tt := range tests {
		if got := pollMillis(tt.in); got != tt.want {
			t.Errorf("pollMillis(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSockaddr(t *testing.T) {
	sa, domain, err := sockaddr(endpointFor(t, "[::1]:443"))
	if err != nil {
		t.Fatal(err)
	}
	if domain != unix.AF_INET6 {
		t.Errorf("domain = %d, want AF_INET6", domain)
	}
	in6, ok := sa.(*unix.SockaddrInet6)
	if !ok || in6.Port != 443 || in6.Addr[15] != 1 {
		t.Errorf("got %#v", sa)
	}

	if _, _, err := sockaddr(resolve.Endpoint{}); err == nil {
		t.Error("zero endpoint should not produce a sockaddr")
	}
}
