package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSaveCreatesParentDir(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "deep", "config.yaml")

	if err := Save(DefaultConfig(), path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatalf("Config file was not created: %s", path)
	}
}

// A saved file must load back through the layered loader, durations included.
func TestSaveThenLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	cfg := DefaultConfig()
	cfg.Defense.Tick = 750 * time.Millisecond
	cfg.Defense.Hostiles = []string{"phantom"}
	cfg.Flavor.Command = "fortune"
	cfg.Flavor.Args = []string{"-s"}
	cfg.History.Path = filepath.Join(tmpDir, "history.db")

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}
	if !strings.Contains(string(data), "tick: 750ms") {
		t.Errorf("expected human readable durations, got:\n%s", data)
	}

	loaded, err := Load("", path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Defense.Tick != 750*time.Millisecond {
		t.Errorf("expected tick 750ms, got %v", loaded.Defense.Tick)
	}
	if len(loaded.Defense.Hostiles) != 1 || loaded.Defense.Hostiles[0] != "phantom" {
		t.Errorf("expected [phantom], got %v", loaded.Defense.Hostiles)
	}
	if loaded.Flavor.Command != "fortune" || len(loaded.Flavor.Args) != 1 {
		t.Errorf("flavor not preserved: %+v", loaded.Flavor)
	}
	if loaded.History.Path != cfg.History.Path {
		t.Errorf("expected history path %q, got %q", cfg.History.Path, loaded.History.Path)
	}
}

func TestSaveOverwritesExisting(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	first := DefaultConfig()
	first.Name = "first"
	if err := Save(first, path); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}

	second := DefaultConfig()
	second.Name = "second"
	if err := Save(second, path); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	loaded, err := Load("", path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Name != "second" {
		t.Errorf("expected name 'second', got %q", loaded.Name)
	}
}
