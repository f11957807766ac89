package transport

import (
	"errors"
	"net"
	"time"

	"zing/internal/resolve"
)

// Dialer connects through the standard library dialer.  It serves
// platforms without poll(2) and carries the same outcome semantics,
// although the socket's blocking mode is managed by the runtime.
type Dialer struct{}

// Connect dials ep with timeout and closes the connection immediately.
func (d *Dialer) Connect(ep resolve.Endpoint, timeout time.Duration) Outcome {
	nd := net.Dialer{Timeout: timeout}

	start := time.Now()
	conn, err := nd.Dial("tcp", ep.String())
	elapsed := time.Since(start)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return timedOut(elapsed)
		}
		return failed(err)
	}
	conn.Close()
	return connected(elapsed)
}
