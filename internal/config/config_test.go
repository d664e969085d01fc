package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := loadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("loadFrom: %v", err)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Fatalf("Host = %q, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.StartPort != 6914 {
		t.Fatalf("StartPort = %d, want 6914", cfg.Server.StartPort)
	}
	if cfg.Server.MaxPortAttempts != 100 {
		t.Fatalf("MaxPortAttempts = %d, want 100", cfg.Server.MaxPortAttempts)
	}
	if cfg.Keepalive() != 30*time.Second {
		t.Fatalf("Keepalive = %v, want 30s", cfg.Keepalive())
	}
	if cfg.Paths.DataDir != "" {
		t.Fatalf("DataDir = %q, want empty", cfg.Paths.DataDir)
	}
}

func TestConfigFileOverrides(t *testing.T) {
	dir := t.TempDir()
	content := "server:\n  start_port: 9000\nsse:\n  keepalive_seconds: 15\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := loadFrom(dir)
	if err != nil {
		t.Fatalf("loadFrom: %v", err)
	}
	if cfg.Server.StartPort != 9000 {
		t.Fatalf("StartPort = %d, want 9000", cfg.Server.StartPort)
	}
	if cfg.SSE.KeepaliveSeconds != 15 {
		t.Fatalf("KeepaliveSeconds = %d, want 15", cfg.SSE.KeepaliveSeconds)
	}
	// Untouched keys keep their defaults.
	if cfg.Server.Host != "127.0.0.1" {
		t.Fatalf("Host = %q, want default", cfg.Server.Host)
	}
}

func TestMalformedConfigFileIsAnError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(":\n  - ["), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := loadFrom(dir); err == nil {
		t.Fatalf("loadFrom on malformed config succeeded")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("MDVIEW_SERVER_START_PORT", "7500")

	cfg, err := loadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("loadFrom: %v", err)
	}
	if cfg.Server.StartPort != 7500 {
		t.Fatalf("StartPort = %d, want 7500 from env", cfg.Server.StartPort)
	}
}
