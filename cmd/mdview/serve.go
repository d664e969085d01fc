package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mdview-dev/mdview/internal/config"
	"github.com/mdview-dev/mdview/internal/daemon"
	"github.com/mdview-dev/mdview/internal/netutil"
	"github.com/mdview-dev/mdview/internal/registry"
	"github.com/mdview-dev/mdview/internal/server"
	"github.com/mdview-dev/mdview/internal/watch"
)

func serveCmd() *cobra.Command {
	var noOpen bool

	cmd := &cobra.Command{
		Use:   "serve <file>",
		Short: "Start a preview in the background",
		Long: `Start a background daemon serving the file and open it in the
browser. The daemon keeps running after the terminal closes; stop it
with "mdview stop <file>".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(args[0], noOpen)
		},
	}

	cmd.Flags().BoolVar(&noOpen, "no-open", false, "Don't open the browser automatically")

	return cmd
}

// The re-executed child starts with cwd / and must not re-derive decisions
// the parent already made, so the parent hands them over in the environment:
// the allocated port and the canonical file path (relative arguments would
// no longer resolve from /).
const (
	daemonPortEnv = "MDVIEW_DAEMON_PORT"
	daemonFileEnv = "MDVIEW_DAEMON_FILE"
)

func portFromEnv() (int, bool) {
	v := os.Getenv(daemonPortEnv)
	if v == "" {
		return 0, false
	}
	port, err := strconv.Atoi(v)
	if err != nil || port <= 0 {
		return 0, false
	}
	return port, true
}

func runServe(arg string, noOpen bool) error {
	// The daemon child has been chdir'd to /, so it revalidates the
	// canonical path from the environment rather than the raw argument.
	target := arg
	if v := os.Getenv(daemonFileEnv); v != "" {
		target = v
	}
	filePath, err := validateFile(target)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	store, err := registry.NewStore(cfg.Paths.DataDir)
	if err != nil {
		return err
	}

	reg, err := store.Load()
	if err != nil {
		return fmt.Errorf("loading registry: %w", err)
	}

	stale := reg.CleanupStale()
	for _, inst := range stale {
		warn("Cleaned up stale instance for '%s'", inst.FilePath)
	}

	// CleanupStale already dropped dead pids, so a surviving entry is live.
	if existing, ok := reg.Get(filePath); ok {
		info("Already serving '%s' at http://localhost:%d", filePath, existing.Port)
		info("PID: %d", existing.PID)
		if len(stale) > 0 {
			if err := store.Save(reg); err != nil {
				warn("Could not save registry: %v", err)
			}
		}
		return nil
	}

	if len(stale) > 0 {
		if err := store.Save(reg); err != nil {
			warn("Could not save registry: %v", err)
		}
	}

	// The detached child re-runs this function from the top; it inherits
	// the parent's port decision through the environment instead of
	// probing again.
	port, ok := portFromEnv()
	if !ok {
		port, ok = netutil.FindAvailablePort(cfg.Server.Host, cfg.Server.StartPort, cfg.Server.MaxPortAttempts)
		if !ok {
			return fmt.Errorf("no available port in range %d-%d",
				cfg.Server.StartPort, cfg.Server.StartPort+cfg.Server.MaxPortAttempts-1)
		}
	}

	logPath := store.LogPath(filePath, port)
	url := fmt.Sprintf("http://localhost:%d", port)

	info("Starting mdview daemon for '%s'", filepath.Base(filePath))
	info("URL: %s", url)
	info("Log: %s", logPath)

	handle, err := daemon.Detach(logPath, map[string]string{
		daemonPortEnv: strconv.Itoa(port),
		daemonFileEnv: filePath,
	})
	if err != nil {
		return err
	}

	if handle.IsParent() {
		if !noOpen {
			// Give the daemon a moment to bind before the browser asks.
			time.Sleep(200 * time.Millisecond)
			openURL(url)
		}
		success("Started (PID %d)", handle.ChildPID())
		return nil
	}
	defer handle.Release()

	return runDaemon(cfg, store, filePath, port, logPath)
}

// runDaemon is the detached side of serve: register, arm shutdown, serve.
// Its stdout/stderr already point at the instance's log file.
func runDaemon(cfg *config.Config, store *registry.Store, filePath string, port int, logPath string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	inst := registry.Instance{
		PID:       daemon.PID(),
		Port:      port,
		FilePath:  filePath,
		StartedAt: time.Now().UTC(),
		LogFile:   logPath,
	}

	reg, err := store.Load()
	if err != nil {
		logger.Warn("could not load registry, starting from empty", "error", err)
		reg = registry.New()
	}
	reg.Add(inst)
	if err := store.Save(reg); err != nil {
		logger.Warn("could not save registry", "error", err)
	}

	logger.Info("daemon started", "file", filePath, "pid", inst.PID, "port", port)

	armShutdown(store, filePath, logger)

	if err := serveInstance(cfg, filePath, port, logger); err != nil {
		logger.Error("server failed", "error", err)
		deregister(store, filePath, logger)
		return err
	}
	return nil
}

// serveInstance wires cache, bus, watcher and engine, then serves until
// the process exits. Shared by the daemon and foreground paths.
func serveInstance(cfg *config.Config, filePath string, port int, logger *slog.Logger) error {
	bus := watch.NewBus()

	engine, err := server.New(server.Options{
		Host:      cfg.Server.Host,
		Port:      port,
		FilePath:  filePath,
		BaseDir:   filepath.Dir(filePath),
		Title:     filepath.Base(filePath),
		Keepalive: cfg.Keepalive(),
		Bus:       bus,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	go func() {
		// A watcher that cannot start leaves the preview serving without
		// live reload, which beats taking the instance down.
		if err := watch.NewWatcher(filePath, bus, logger).Run(context.Background()); err != nil {
			logger.Warn("live reload disabled", "error", err)
		}
	}()

	return engine.ListenAndServe()
}

// armShutdown deregisters this instance and exits when SIGINT or SIGTERM
// arrives. Failures along the way are logged, not retried; a kill that
// bypasses this path leaves a stale entry for the next cleanup pass.
func armShutdown(store *registry.Store, filePath string, logger *slog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("shutdown signal received", "signal", sig.String())
		deregister(store, filePath, logger)
		os.Exit(0)
	}()
}

func deregister(store *registry.Store, filePath string, logger *slog.Logger) {
	reg, err := store.Load()
	if err != nil {
		logger.Warn("could not load registry during shutdown", "error", err)
		return
	}
	reg.Remove(filePath)
	if err := store.Save(reg); err != nil {
		logger.Warn("could not save registry during shutdown", "error", err)
	}
}

// validateFile checks that arg names an existing regular file and returns
// its canonical path, the registry's uniqueness key.
func validateFile(arg string) (string, error) {
	fi, err := os.Stat(arg)
	if err != nil {
		return "", fmt.Errorf("file '%s' not found", arg)
	}
	if !fi.Mode().IsRegular() {
		return "", fmt.Errorf("'%s' is not a file", arg)
	}

	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", fmt.Errorf("resolving '%s': %w", arg, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolving '%s': %w", arg, err)
	}
	return resolved, nil
}
