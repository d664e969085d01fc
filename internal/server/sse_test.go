package server

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mdview-dev/mdview/internal/watch"
)

func sseEngine(t *testing.T, keepalive time.Duration) (*Engine, *watch.Bus, *httptest.Server) {
	t.Helper()
	dir := t.TempDir()
	file := filepath.Join(dir, "doc.md")
	if err := os.WriteFile(file, []byte("# sse\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	bus := watch.NewBus()
	e, err := New(Options{
		FilePath:  file,
		BaseDir:   dir,
		Keepalive: keepalive,
		Bus:       bus,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	srv := httptest.NewServer(e.Handler())
	t.Cleanup(srv.Close)
	return e, bus, srv
}

// openStream connects to /events and returns a line reader over the stream.
func openStream(t *testing.T, srv *httptest.Server) (*bufio.Reader, *http.Response) {
	t.Helper()
	resp, err := http.Get(srv.URL + "/events")
	if err != nil {
		t.Fatalf("GET /events: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /events status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-cache" {
		t.Fatalf("Cache-Control = %q", cc)
	}
	if ao := resp.Header.Get("Access-Control-Allow-Origin"); ao != "*" {
		t.Fatalf("Access-Control-Allow-Origin = %q", ao)
	}
	return bufio.NewReader(resp.Body), resp
}

// nextFrame reads lines until a non-empty data frame arrives.
func nextFrame(t *testing.T, r *bufio.Reader, timeout time.Duration) string {
	t.Helper()
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				ch <- result{err: err}
				return
			}
			line = strings.TrimRight(line, "\n")
			if line != "" {
				ch <- result{line: line}
				return
			}
		}
	}()
	select {
	case res := <-ch:
		if res.err != nil {
			t.Fatalf("stream read: %v", res.err)
		}
		return res.line
	case <-time.After(timeout):
		t.Fatalf("no SSE frame within %v", timeout)
		return ""
	}
}

func TestSSE_ReloadDeliveredToAllSubscribers(t *testing.T) {
	_, bus, srv := sseEngine(t, 10*time.Second)

	a, _ := openStream(t, srv)
	b, _ := openStream(t, srv)

	// Wait for both handlers to subscribe before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for bus.SubscriberCount() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	bus.Publish()

	for _, r := range []*bufio.Reader{a, b} {
		if frame := nextFrame(t, r, 3*time.Second); frame != "data: reload" {
			t.Fatalf("frame = %q, want data: reload", frame)
		}
	}
}

func TestSSE_LateSubscriberMissesEarlierEvents(t *testing.T) {
	_, bus, srv := sseEngine(t, 300*time.Millisecond)

	bus.Publish() // fired before anyone connects

	late, _ := openStream(t, srv)

	// The first frame the late subscriber sees must be a keepalive, never
	// the reload published before it connected.
	if frame := nextFrame(t, late, 3*time.Second); frame != "data: keepalive" {
		t.Fatalf("late subscriber's first frame = %q, want data: keepalive", frame)
	}
}

func TestSSE_KeepaliveKeepsFlowing(t *testing.T) {
	_, _, srv := sseEngine(t, 100*time.Millisecond)

	r, _ := openStream(t, srv)
	for i := 0; i < 3; i++ {
		if frame := nextFrame(t, r, 2*time.Second); frame != "data: keepalive" {
			t.Fatalf("frame %d = %q, want data: keepalive", i, frame)
		}
	}
}

func TestSSE_ClientCountTracksDisconnects(t *testing.T) {
	_, bus, srv := sseEngine(t, 10*time.Second)

	resp, err := http.Get(srv.URL + "/events")
	if err != nil {
		t.Fatalf("GET /events: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for bus.SubscriberCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp.Body.Close()

	deadline = time.Now().Add(3 * time.Second)
	for bus.SubscriberCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscription not released after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
