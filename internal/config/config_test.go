// Package config tests for the defaults -> JSON -> flags layering.
package config

import (
	"os"
	"path/filepath"
	"testing"
)

// withArgs swaps os.Args for the duration of a test.
func withArgs(t *testing.T, args ...string) {
	t.Helper()
	saved := os.Args
	os.Args = append([]string{"reflecta"}, args...)
	t.Cleanup(func() { os.Args = saved })
}

// TestLoadDefaults verifies the baseline settings.
func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if cfg.DataDir != "./data" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.ListenAddr != "127.0.0.1:8090" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.JoinURL != "" {
		t.Errorf("JoinURL = %q, want empty", cfg.JoinURL)
	}
	if cfg.Nick != "student" || cfg.Color != "#FFD700" {
		t.Errorf("identity = %q/%q", cfg.Nick, cfg.Color)
	}
	if cfg.LogLevel != "INFO" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

// TestDerivedPaths verifies state and picture locations follow the data dir.
func TestDerivedPaths(t *testing.T) {
	cfg := &Config{DataDir: "/var/lib/reflecta"}
	if got := cfg.StatePath(); got != filepath.Join("/var/lib/reflecta", "activity_state.json") {
		t.Errorf("StatePath = %q", got)
	}
	if got := cfg.PicturesDir(); got != filepath.Join("/var/lib/reflecta", "pictures") {
		t.Errorf("PicturesDir = %q", got)
	}
}

// TestLoadConfig_flagsOverride verifies flags win over defaults.
func TestLoadConfig_flagsOverride(t *testing.T) {
	withArgs(t, "-d", "/tmp/refl", "-n", "maria", "-log", "DEBUG")

	cfg := LoadConfig()
	if cfg.DataDir != "/tmp/refl" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.Nick != "maria" {
		t.Errorf("Nick = %q", cfg.Nick)
	}
	if cfg.LogLevel != "DEBUG" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	// untouched fields keep defaults
	if cfg.ListenAddr != "127.0.0.1:8090" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
}

// TestLoadConfig_jsonOverlay verifies a JSON file overrides defaults and
// empty JSON fields do not.
func TestLoadConfig_jsonOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	blob := `{"listen_addr": "0.0.0.0:9000", "color": "#00AA00"}`
	if err := os.WriteFile(path, []byte(blob), 0644); err != nil {
		t.Fatal(err)
	}
	withArgs(t, "-c", path)

	cfg := LoadConfig()
	if cfg.ListenAddr != "0.0.0.0:9000" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.Color != "#00AA00" {
		t.Errorf("Color = %q", cfg.Color)
	}
	if cfg.Nick != "student" {
		t.Errorf("Nick = %q, want default", cfg.Nick)
	}
}

// TestLoadConfig_flagBeatsJSON verifies precedence: defaults < JSON < flags.
func TestLoadConfig_flagBeatsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	blob := `{"nick": "from-json", "data_dir": "/from/json"}`
	if err := os.WriteFile(path, []byte(blob), 0644); err != nil {
		t.Fatal(err)
	}
	withArgs(t, "-c", path, "-n", "from-flag")

	cfg := LoadConfig()
	if cfg.Nick != "from-flag" {
		t.Errorf("Nick = %q, want the flag value", cfg.Nick)
	}
	if cfg.DataDir != "/from/json" {
		t.Errorf("DataDir = %q, want the JSON value", cfg.DataDir)
	}
}
