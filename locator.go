package spill

import "fmt"

// An Endpoint is a reachable location remote readers should use to fetch data
// written by this process
type Endpoint struct {
	Host     string
	Port     int
	Topology string // optional topology hint (e.g. rack or fabric identifier)
}

// String returns a textual representation of this Endpoint
func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// A Locator reports the current reachable Endpoint of this process. Writers
// query it once per completed write pass rather than caching it, as the
// address may not be finalized until data exists.
type Locator interface {
	CurrentEndpoint() (Endpoint, error) // CurrentEndpoint returns the Endpoint remote readers should fetch from
}
