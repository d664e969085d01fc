package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mdview-dev/mdview/internal/config"
	"github.com/mdview-dev/mdview/internal/netutil"
)

// runForeground serves a file in the invoking process, original-flavor:
// no daemon, no registry entry, Ctrl-C stops it.
func runForeground(arg string) error {
	filePath, err := validateFile(arg)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	port, ok := netutil.FindAvailablePort(cfg.Server.Host, cfg.Server.StartPort, cfg.Server.MaxPortAttempts)
	if !ok {
		return fmt.Errorf("no available port in range %d-%d",
			cfg.Server.StartPort, cfg.Server.StartPort+cfg.Server.MaxPortAttempts-1)
	}

	url := fmt.Sprintf("http://localhost:%d", port)
	info("Serving '%s' at %s", filepath.Base(filePath), url)
	info("Press Ctrl+C to stop the server")

	openURL(url)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down server...")
		os.Exit(0)
	}()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return serveInstance(cfg, filePath, port, logger)
}
