package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "renderer.toml")
	content := []byte("app_name = \"demo\"\nwidth = 800\nvsync = false\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AppName != "demo" {
		t.Errorf("AppName = %q, want \"demo\"", cfg.AppName)
	}
	if cfg.Width != 800 {
		t.Errorf("Width = %d, want 800", cfg.Width)
	}
	if cfg.VSync {
		t.Error("VSync = true, want false")
	}
	// fields absent from the file keep their defaults
	if cfg.Height != Default().Height {
		t.Errorf("Height = %d, want default %d", cfg.Height, Default().Height)
	}
	if cfg.Backend != "vulkan" {
		t.Errorf("Backend = %q, want default \"vulkan\"", cfg.Backend)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Load of a missing file succeeded")
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "renderer.toml")
	if err := os.WriteFile(path, []byte("width = [not toml"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load of malformed TOML succeeded")
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "renderer.toml")
	if err := os.WriteFile(path, []byte("width = 100\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	reloaded := make(chan *RendererConfig, 4)
	watcher, err := NewWatcher(path, func(cfg *RendererConfig) {
		reloaded <- cfg
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer watcher.Close()

	if err := os.WriteFile(path, []byte("width = 640\nheight = 480\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Width != 640 || cfg.Height != 480 {
			t.Errorf("reloaded config is %dx%d, want 640x480", cfg.Width, cfg.Height)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed within 5s")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "renderer.toml")
	if err := os.WriteFile(path, []byte("width = 100\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	reloaded := make(chan *RendererConfig, 4)
	watcher, err := NewWatcher(path, func(cfg *RendererConfig) {
		reloaded <- cfg
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer watcher.Close()

	if err := os.WriteFile(filepath.Join(dir, "other.toml"), []byte("width = 1\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	select {
	case <-reloaded:
		t.Error("reload fired for an unrelated file")
	case <-time.After(250 * time.Millisecond):
	}
}
