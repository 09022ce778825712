// Package hostvalidator implements Host header binding (spec §4.3):
// comparing the Host header against the server's bind identity so the
// server only answers requests addressed to itself.
package hostvalidator

import (
	"strconv"
	"strings"

	"github.com/zynqcloud/httpd/internal/identity"
)

// Result is the outcome of validating a Host header.
type Result struct {
	OK     bool
	Status int // 400 or 403 when !OK
}

// Validate checks hostHeader against id. Missing or empty header yields
// 400; a present header that doesn't match the acceptable set yields 403.
func Validate(hostHeader string, id *identity.Identity) Result {
	hostHeader = strings.TrimSpace(hostHeader)
	if hostHeader == "" {
		return Result{OK: false, Status: 400}
	}

	var host, portStr string
	if i := strings.LastIndexByte(hostHeader, ':'); i >= 0 {
		host, portStr = hostHeader[:i], hostHeader[i+1:]
		if _, err := strconv.Atoi(portStr); err != nil {
			return Result{OK: false, Status: 400}
		}
	} else {
		host = hostHeader
		portStr = id.PortString()
	}

	acceptable := map[string]bool{
		id.Host + ":" + id.PortString(): true,
	}
	// spec §4.3: when bind_host is 127.0.0.1, localhost, or 0.0.0.0, the
	// set additionally contains localhost:{port} and 127.0.0.1:{port} —
	// the three bind hosts are named explicitly in one case here, matching
	// the original's valid_host_header branches rather than a generic
	// "loopback-ish" predicate.
	switch id.Host {
	case "127.0.0.1", "localhost", "0.0.0.0":
		acceptable["localhost:"+id.PortString()] = true
		acceptable["127.0.0.1:"+id.PortString()] = true
	}

	if acceptable[host+":"+portStr] {
		return Result{OK: true}
	}
	return Result{OK: false, Status: 403}
}
