// Package netutil provides small networking helpers for the preview server.
package netutil

import (
	"fmt"
	"net"
)

// FindAvailablePort probes host:start, host:start+1, ... for up to
// maxAttempts ports and returns the first one that can be bound. The probe
// listener is closed immediately, so the port is free for the caller to
// bind. Returns false when the whole range is in use.
func FindAvailablePort(host string, start, maxAttempts int) (int, bool) {
	for port := start; port < start+maxAttempts; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
		if err != nil {
			continue
		}
		ln.Close()
		return port, true
	}
	return 0, false
}
