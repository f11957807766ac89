//go:build !unix

package transport

// NewConnector returns the platform's deadline connector.
func NewConnector() Connector { return &Dialer{} }
