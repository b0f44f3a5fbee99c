package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c != Default() {
		t.Fatalf("got %+v, want defaults", c)
	}
	if c.SendInterval != 50*time.Millisecond || c.ReconnectDelay != time.Second {
		t.Fatalf("unexpected cadence defaults: %+v", c)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RELAY_ADDR", "0.0.0.0:7000")
	t.Setenv("SEND_INTERVAL", "20ms")
	t.Setenv("ARENA_WIDTH", "1024")
	t.Setenv("FPS", "30")

	c, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.RelayAddr != "0.0.0.0:7000" || c.SendInterval != 20*time.Millisecond || c.ArenaWidth != 1024 || c.FPS != 30 {
		t.Fatalf("overrides not applied: %+v", c)
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("SIGNAL_ADDR=127.0.0.1:18888\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("SIGNAL_ADDR") })

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.SignalAddr != "127.0.0.1:18888" {
		t.Fatalf("SignalAddr = %q", c.SignalAddr)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct{ key, value string }{
		{"BLEND_DURATION", "fast"},
		{"SEND_INTERVAL", "0s"},
		{"SEND_INTERVAL", "-50ms"},
		{"RECONNECT_DELAY", "0"},
		{"RECONNECT_DELAY", "-1s"},
		{"FPS", "0"},
	}
	for _, c := range cases {
		t.Run(c.key+"="+c.value, func(t *testing.T) {
			t.Setenv(c.key, c.value)
			if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
				t.Fatalf("expected error for %s=%q", c.key, c.value)
			}
		})
	}
}
