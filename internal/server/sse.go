package server

import (
	"io"
	"net/http"
	"time"
)

// SSE wire framing. Reload and keepalive are both data frames so the
// browser's connection-health timer sees every one of them; the client
// reloads only on "reload".
const (
	sseReloadFrame    = "data: reload\n\n"
	sseKeepaliveFrame = "data: keepalive\n\n"
)

// handleEvents serves one browser tab's live-reload stream. The connection
// holds a private bus subscription created here, so it only observes
// changes from this point on. Any write failure means the tab went away;
// the handler just returns and lets the subscription close.
func (e *Engine) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := e.opts.Bus.Subscribe()
	defer sub.Close()

	e.metrics.SSEClients.Inc()
	defer e.metrics.SSEClients.Dec()
	e.logger.Info("sse client connected", "remote", r.RemoteAddr)

	keepalive := time.NewTicker(e.opts.Keepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			e.logger.Info("sse client disconnected", "remote", r.RemoteAddr)
			return
		case _, ok := <-sub.C:
			if !ok {
				return
			}
			if _, err := io.WriteString(w, sseReloadFrame); err != nil {
				return
			}
			flusher.Flush()
			e.metrics.ReloadsSent.Inc()
		case <-keepalive.C:
			if _, err := io.WriteString(w, sseKeepaliveFrame); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
