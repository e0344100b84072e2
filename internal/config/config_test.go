package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Backend.Socket != "/tmp/opsdeckd.sock" {
		t.Errorf("socket = %q", cfg.Backend.Socket)
	}
	if cfg.Backend.CallTimeout != 12*time.Second {
		t.Errorf("call timeout = %v", cfg.Backend.CallTimeout)
	}
	if cfg.History.MaxPerKind != 500 {
		t.Errorf("max per kind = %d", cfg.History.MaxPerKind)
	}
	if cfg.UI.SettleDelay != 750*time.Millisecond {
		t.Errorf("settle delay = %v", cfg.UI.SettleDelay)
	}
	if cfg.Metrics.Enabled {
		t.Error("metrics should default off")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
backend:
  socket: /run/opsdeckd.sock
polling:
  intervals:
    services: 1s
ui:
  log_tail_lines: 50
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OPSDECK_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Backend.Socket != "/run/opsdeckd.sock" {
		t.Errorf("socket = %q", cfg.Backend.Socket)
	}
	if got := cfg.Polling.Intervals["services"]; got != time.Second {
		t.Errorf("services interval = %v", got)
	}
	if cfg.UI.LogTailLines != 50 {
		t.Errorf("log tail = %d", cfg.UI.LogTailLines)
	}
	// Sections absent from the file keep their defaults.
	if cfg.Backend.CallTimeout != 12*time.Second {
		t.Errorf("call timeout = %v", cfg.Backend.CallTimeout)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "backend:\n  socket: $OPSDECK_TEST_SOCK\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OPSDECK_CONFIG", path)
	t.Setenv("OPSDECK_TEST_SOCK", "/tmp/other.sock")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.Socket != "/tmp/other.sock" {
		t.Errorf("socket = %q", cfg.Backend.Socket)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("OPSDECK_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.Socket != DefaultConfig().Backend.Socket {
		t.Error("missing file should yield defaults")
	}
}
