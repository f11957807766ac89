//go:build unix

package transport

import (
	"math"
	"net"
	"strconv"
	"time"

	"golang.org/x/sys/unix"

	"zing/internal/resolve"
)

// NewConnector returns the platform's deadline connector.
func NewConnector() Connector { return &Socket{} }

// Socket connects with a raw non-blocking stream socket and waits for
// write-readiness with poll(2), bounded by a deadline taken from the
// monotonic clock.
type Socket struct{}

// Connect opens a fresh socket for ep, attempts the handshake within
// timeout, and closes the socket before returning the outcome.
func (s *Socket) Connect(ep resolve.Endpoint, timeout time.Duration) Outcome {
	sa, domain, err := sockaddr(ep)
	if err != nil {
		return failed(err)
	}

	fd, err := unix.Socket(domain, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return failed(err)
	}
	unix.CloseOnExec(fd)

	out := connectWithDeadline(fd, sa, timeout)
	unix.Close(fd)
	return out
}

// connectWithDeadline runs one connect on fd.  O_NONBLOCK is set for the
// duration of the call only; the original file status flags are restored
// on every return path.
func connectWithDeadline(fd int, sa unix.Sockaddr, timeout time.Duration) (out Outcome) {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		return failed(err)
	}
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFL, flags|unix.O_NONBLOCK); err != nil {
		return failed(err)
	}
	defer func() {
		_, err := unix.FcntlInt(uintptr(fd), unix.F_SETFL, flags)
		if err != nil && out.Status == Connected {
			out = failed(err)
		}
	}()

	start := time.Now()
	switch err := unix.Connect(fd, sa); {
	case err == nil:
		return connected(0)
	case !inProgress(err):
		return failed(err)
	}

	// time.Time carries a monotonic reading, so both the deadline and the
	// remaining budget below are immune to wall-clock steps.
	deadline := start.Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return timedOut(time.Since(start))
		}

		pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
		n, err := unix.Poll(pfd, pollMillis(remaining))
		switch {
		case err == unix.EINTR:
			continue
		case err != nil:
			return failed(err)
		case n == 0:
			continue // loop re-checks the deadline
		}
		return settle(fd, pfd[0].Revents, start)
	}
}

// inProgress reports whether a non-blocking connect error means the
// handshake is still under way.  EAGAIN is not among them: on Linux it
// means no local port was free and no SYN was ever sent.
func inProgress(err error) bool {
	switch err {
	case unix.EINPROGRESS, unix.EALREADY, unix.EINTR:
		// An interrupted connect keeps going in the background.
		return true
	}
	return false
}

// settle classifies a socket that poll reported ready.  A pending socket
// error wins; otherwise the peer address must be known, since an
// unconnected socket also polls writable (with POLLHUP) and a clear
// SO_ERROR.
func settle(fd int, revents int16, start time.Time) Outcome {
	if revents&unix.POLLNVAL != 0 {
		return failed(unix.EBADF)
	}
	soErr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return failed(err)
	}
	if soErr != 0 {
		return failed(unix.Errno(soErr))
	}
	if revents&unix.POLLHUP != 0 {
		return failed(unix.ENOTCONN)
	}
	if _, err := unix.Getpeername(fd); err != nil {
		return failed(err)
	}
	return connected(time.Since(start))
}

// pollMillis rounds d up to whole milliseconds so a sub-millisecond
// remainder still waits instead of spinning.
func pollMillis(d time.Duration) int {
	ms := (d + time.Millisecond - 1) / time.Millisecond
	if ms > math.MaxInt32 {
		return math.MaxInt32
	}
	if ms < 1 {
		return 1
	}
	return int(ms)
}

func sockaddr(ep resolve.Endpoint) (unix.Sockaddr, int, error) {
	a := ep.Addr.Addr()
	port := int(ep.Addr.Port())

	switch {
	case a.Is4():
		return &unix.SockaddrInet4{Port: port, Addr: a.As4()}, unix.AF_INET, nil
	case a.Is6():
		sa := &unix.SockaddrInet6{Port: port, Addr: a.As16()}
		if zone := a.Zone(); zone != "" {
			id, err := zoneIndex(zone)
			if err != nil {
				return nil, 0, err
			}
			sa.ZoneId = id
		}
		return sa, unix.AF_INET6, nil
	}
	return nil, 0, unix.EAFNOSUPPORT
}

func zoneIndex(zone string) (uint32, error) {
	if ifi, err := net.InterfaceByName(zone); err == nil {
		return uint32(ifi.Index), nil
	}
	n, err := strconv.ParseUint(zone, 10, 32)
	if err != nil {
		return 0, unix.ENXIO
	}
	return uint32(n), nil
}
