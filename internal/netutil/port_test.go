package netutil

import (
	"fmt"
	"net"
	"testing"
)

func TestFindAvailablePort_ReturnsFirstFree(t *testing.T) {
	// Grab a free port from the kernel, release it, then ask for it back.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	start := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	port, ok := FindAvailablePort("127.0.0.1", start, 1)
	if !ok {
		t.Fatalf("FindAvailablePort(%d, 1) found nothing", start)
	}
	if port != start {
		t.Fatalf("FindAvailablePort = %d, want %d", port, start)
	}
}

func TestFindAvailablePort_SkipsBoundPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()
	bound := ln.Addr().(*net.TCPAddr).Port

	port, ok := FindAvailablePort("127.0.0.1", bound, 10)
	if !ok {
		t.Fatalf("FindAvailablePort(%d, 10) found nothing", bound)
	}
	if port == bound {
		t.Fatalf("FindAvailablePort returned the bound port %d", bound)
	}
}

func TestFindAvailablePort_ExhaustedRange(t *testing.T) {
	// Pre-bind a small contiguous range and probe exactly that range.
	const attempts = 3
	var listeners []net.Listener
	defer func() {
		for _, l := range listeners {
			l.Close()
		}
	}()

	var start int
	for base := 42000; base < 43000; base++ {
		listeners = listeners[:0]
		ok := true
		for i := 0; i < attempts; i++ {
			l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", base+i))
			if err != nil {
				ok = false
				break
			}
			listeners = append(listeners, l)
		}
		if ok {
			start = base
			break
		}
		for _, l := range listeners {
			l.Close()
		}
	}
	if start == 0 {
		t.Skip("could not reserve a contiguous port range")
	}

	if port, ok := FindAvailablePort("127.0.0.1", start, attempts); ok {
		t.Fatalf("FindAvailablePort = %d, want exhaustion", port)
	}
}
