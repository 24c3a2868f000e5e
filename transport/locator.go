// Package transport provides Locator implementations which report the
// endpoint remote readers should use to fetch data written by this process.
// The fetch protocol itself belongs to the host framework.
package transport

import (
	"net"
	"strconv"

	"github.com/go-spill/spill"
)

// staticLocator reports a fixed, preconfigured endpoint
type staticLocator struct {
	endpoint spill.Endpoint
}

// CreateStaticLocator produces a Locator which always reports the given
// host, port and topology hint
func CreateStaticLocator(host string, port int, topology string) spill.Locator {
	return &staticLocator{endpoint: spill.Endpoint{Host: host, Port: port, Topology: topology}}
}

// CurrentEndpoint returns the configured Endpoint
func (l *staticLocator) CurrentEndpoint() (spill.Endpoint, error) {
	return l.endpoint, nil
}

// ListenerLocator binds a TCP listener and reports its bound address, which
// is useful when the serving port is assigned by the OS and not known until
// the listener exists
type ListenerLocator struct {
	listener net.Listener
	topology string
}

// CreateListenerLocator binds a TCP listener on addr (e.g. "127.0.0.1:0")
// and produces a Locator reporting the bound address
func CreateListenerLocator(addr string, topology string) (*ListenerLocator, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &ListenerLocator{listener: listener, topology: topology}, nil
}

// CurrentEndpoint returns the Endpoint of the bound listener
func (l *ListenerLocator) CurrentEndpoint() (spill.Endpoint, error) {
	host, portStr, err := net.SplitHostPort(l.listener.Addr().String())
	if err != nil {
		return spill.Endpoint{}, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return spill.Endpoint{}, err
	}
	return spill.Endpoint{Host: host, Port: port, Topology: l.topology}, nil
}

// Listener exposes the underlying listener, so the host framework can serve
// its fetch protocol on it
func (l *ListenerLocator) Listener() net.Listener {
	return l.listener
}

// Close closes the underlying listener
func (l *ListenerLocator) Close() error {
	return l.listener.Close()
}
