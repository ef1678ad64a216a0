package config

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/igloo-gfx/igloo/engine/core"
)

// RendererConfig holds the renderer settings loaded from a TOML file.
type RendererConfig struct {
	AppName           string `toml:"app_name"`
	Backend           string `toml:"backend"`
	Width             uint32 `toml:"width"`
	Height            uint32 `toml:"height"`
	Validation        bool   `toml:"validation"`
	MaxFramesInFlight uint8  `toml:"max_frames_in_flight"`
	VSync             bool   `toml:"vsync"`
}

// Default returns the configuration used when no file is present.
func Default() *RendererConfig {
	return &RendererConfig{
		AppName:           "Igloo",
		Backend:           "vulkan",
		Width:             1280,
		Height:            720,
		Validation:        true,
		MaxFramesInFlight: 2,
		VSync:             true,
	}
}

// Load reads a RendererConfig from the TOML file at path. Missing fields
// keep their defaults.
func Load(path string) (*RendererConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Watcher reloads the configuration whenever the underlying file changes
// and hands the fresh copy to the registered callback.
type Watcher struct {
	path     string
	fsnotify *fsnotify.Watcher
	done     chan struct{}
	isClosed bool

	mutex    sync.Mutex
	onChange func(*RendererConfig)
}

// NewWatcher starts watching the configuration file at path.
func NewWatcher(path string, onChange func(*RendererConfig)) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		path:     path,
		fsnotify: fsWatch,
		done:     make(chan struct{}),
		onChange: onChange,
	}
	// Watch the directory rather than the file: editors replace files on
	// save, which would drop a direct file watch.
	if err := fsWatch.Add(filepath.Dir(path)); err != nil {
		fsWatch.Close()
		return nil, err
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				core.LogWarn("config reload failed for %s: %s", w.path, err)
				continue
			}
			core.LogInfo("configuration reloaded from %s", w.path)
			w.mutex.Lock()
			cb := w.onChange
			w.mutex.Unlock()
			if cb != nil {
				cb(cfg)
			}
		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("config watcher: %s", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.isClosed {
		return nil
	}
	w.isClosed = true
	close(w.done)
	return w.fsnotify.Close()
}
