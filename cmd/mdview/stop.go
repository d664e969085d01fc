package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mdview-dev/mdview/internal/config"
	"github.com/mdview-dev/mdview/internal/registry"
)

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <file>",
		Short: "Stop a running background preview",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStop(args[0])
		},
	}
}

func runStop(arg string) error {
	// The previewed file may already be gone; fall back to best-effort
	// canonicalization so its instance can still be stopped by name.
	filePath, err := validateFile(arg)
	if err != nil {
		filePath, err = filepath.Abs(arg)
		if err != nil {
			return fmt.Errorf("resolving '%s': %w", arg, err)
		}
		if resolved, rerr := filepath.EvalSymlinks(filePath); rerr == nil {
			filePath = resolved
		}
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

	inst, ok := reg.Get(filePath)
	if !ok {
		return fmt.Errorf("no running instance found for '%s'", filePath)
	}

	err = syscall.Kill(inst.PID, syscall.SIGTERM)
	switch {
	case err == nil:
		info("Sent stop signal to mdview (PID %d)", inst.PID)
	case errors.Is(err, syscall.ESRCH):
		warn("Process %d not running (stale entry), cleaning up", inst.PID)
	default:
		warn("Failed to stop process %d: %v", inst.PID, err)
	}

	reg.Remove(filePath)
	if err := store.Save(reg); err != nil {
		warn("Could not save registry: %v", err)
	}

	success("Stopped serving '%s'", filePath)
	return nil
}
