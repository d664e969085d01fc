// Package server implements the preview serving engine: cached page
// delivery, sandboxed static assets, and the live-reload event stream.
package server

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mdview-dev/mdview/internal/render"
	"github.com/mdview-dev/mdview/internal/watch"
)

// Options configures an Engine.
type Options struct {
	// Host and Port form the listen address.
	Host string
	Port int

	// FilePath is the canonical path of the previewed file; BaseDir is its
	// parent directory, the root of the asset sandbox.
	FilePath string
	BaseDir  string

	// Title is the page title, usually the file's base name.
	Title string

	// Keepalive is the idle interval between SSE keepalive frames.
	Keepalive time.Duration

	// Bus delivers change notifications from the watcher.
	Bus *watch.Bus

	Logger  *slog.Logger
	Metrics *Metrics
}

// Engine serves one preview instance. net/http hands every accepted
// connection its own goroutine, so long-lived SSE streams never block page
// or asset requests.
type Engine struct {
	opts    Options
	cache   pageCache
	logger  *slog.Logger
	metrics *Metrics
}

// New builds an Engine and primes the render cache from disk. An unreadable
// file is fatal here: there is nothing to serve yet.
func New(opts Options) (*Engine, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	if opts.Keepalive <= 0 {
		opts.Keepalive = 30 * time.Second
	}
	if opts.Title == "" {
		opts.Title = filepath.Base(opts.FilePath)
	}
	if opts.Bus == nil {
		opts.Bus = watch.NewBus()
	}

	e := &Engine{opts: opts, logger: opts.Logger, metrics: opts.Metrics}
	if err := e.RefreshCache(); err != nil {
		return nil, err
	}
	return e, nil
}

// Handler returns the engine's routing tree. Priority: the event stream,
// then metrics, then image assets, then the cached page for everything
// else.
func (e *Engine) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(e.traceMiddleware)
	r.Get("/events", e.handleEvents)
	r.Method(http.MethodGet, "/metrics", e.metrics.Handler())
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		if isImagePath(req.URL.Path) {
			e.metrics.Requests.WithLabelValues("asset").Inc()
			e.handleAsset(w, req)
			return
		}
		e.metrics.Requests.WithLabelValues("page").Inc()
		e.handlePage(w, req)
	})
	return r
}

// ListenAndServe binds the configured address and serves until the process
// exits. A bind failure is returned to the caller; per-connection failures
// stay inside their handlers.
func (e *Engine) ListenAndServe() error {
	addr := net.JoinHostPort(e.opts.Host, strconv.Itoa(e.opts.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: bind %s: %w", addr, err)
	}
	e.logger.Info("server running", "addr", addr)

	srv := &http.Server{Handler: e.Handler()}
	return srv.Serve(ln)
}

// RefreshCache re-reads the watched file, re-renders it, and atomically
// replaces the cached page.
func (e *Engine) RefreshCache() error {
	src, err := os.ReadFile(e.opts.FilePath)
	if err != nil {
		return fmt.Errorf("server: read %s: %w", e.opts.FilePath, err)
	}
	page, err := render.Page(e.opts.Title, render.Markdown(src))
	if err != nil {
		return fmt.Errorf("server: render page: %w", err)
	}
	e.cache.set(page)
	return nil
}

// handlePage refreshes the cache from disk and serves it. A failed refresh
// is logged and the previous (stale but complete) page is served instead.
func (e *Engine) handlePage(w http.ResponseWriter, r *http.Request) {
	if err := e.RefreshCache(); err != nil {
		e.metrics.RenderErrors.Inc()
		e.logger.Warn("cache refresh failed, serving stale page", "error", err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	io.WriteString(w, e.cache.get())
}

// pageCache holds the last fully-rendered page. The lock guards only the
// string swap, never I/O, so readers and the refresher contend for no
// longer than a copy.
type pageCache struct {
	mu   sync.RWMutex
	html string
}

func (c *pageCache) get() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.html
}

func (c *pageCache) set(html string) {
	c.mu.Lock()
	c.html = html
	c.mu.Unlock()
}
