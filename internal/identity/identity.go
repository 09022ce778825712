// Package identity holds the server's bind identity: an immutable
// (host, port) tuple established once at startup and consulted by the
// Host validator. There are no hidden globals — every component that
// needs it receives a *Identity by reference.
package identity

import "strconv"

// Identity is the server's bind host and port.
type Identity struct {
	Host string
	Port int
}

// New constructs an Identity.
func New(host string, port int) *Identity {
	return &Identity{Host: host, Port: port}
}

// PortString returns the bind port formatted as a string, for use in
// "host:port" comparisons.
func (id *Identity) PortString() string {
	return strconv.Itoa(id.Port)
}

// HostPort returns "host:port".
func (id *Identity) HostPort() string {
	return id.Host + ":" + id.PortString()
}
