package engine

import (
	"errors"
	"fmt"

	"github.com/igloo-gfx/igloo/engine/config"
	"github.com/igloo-gfx/igloo/engine/core"
	"github.com/igloo-gfx/igloo/engine/platform"
	"github.com/igloo-gfx/igloo/engine/renderer"
	"github.com/igloo-gfx/igloo/engine/renderer/d3d12"
	"github.com/igloo-gfx/igloo/engine/renderer/metadata"
	"github.com/igloo-gfx/igloo/engine/renderer/vulkan"
)

// defaultConfigPath is where New looks for renderer settings when the
// application does not supply its own.
const defaultConfigPath = "igloo.toml"

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// ApplicationConfig describes the window the engine opens and the renderer
// settings it boots with. A nil Renderer falls back to config.Default().
type ApplicationConfig struct {
	Name      string
	StartPosX uint32
	StartPosY uint32
	Renderer  *config.RendererConfig
}

type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    bool
	isSuspended  bool
	platform     *platform.Platform
	rendererCfg  *config.RendererConfig
	device       renderer.Device
	// swapchain control lives below the Device interface; non-nil only when
	// the vulkan backend drives a window
	vulkanBackend *vulkan.VulkanRenderer
	queue         renderer.CommandQueue
	width         uint32
	height        uint32
	clock         *core.Clock
	lastTime      float64
	configWatcher *config.Watcher
}

func New(g *Game) (*Engine, error) {
	if g == nil || g.ApplicationConfig == nil {
		return nil, errors.New("engine.New requires a game with an application config")
	}

	cfg := g.ApplicationConfig.Renderer
	if cfg == nil {
		loaded, err := config.Load(defaultConfigPath)
		if err != nil {
			core.LogWarn("no renderer config at %s, using defaults: %v", defaultConfigPath, err)
			loaded = config.Default()
		}
		cfg = loaded
	}
	if g.ApplicationConfig.Name != "" {
		cfg.AppName = g.ApplicationConfig.Name
	}

	p, err := platform.New()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		platform:     p,
		rendererCfg:  cfg,
		clock:        core.NewClock(),
		isRunning:    true,
		isSuspended:  false,
		width:        cfg.Width,
		height:       cfg.Height,
		lastTime:     0,
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	if err := core.MetricsInitialize(); err != nil {
		return err
	}

	if err := e.platform.Startup(e.rendererCfg.AppName,
		e.gameInstance.ApplicationConfig.StartPosX,
		e.gameInstance.ApplicationConfig.StartPosY,
		e.width,
		e.height); err != nil {
		return err
	}
	e.platform.SetResizeCallback(e.onResized)

	device, err := e.createDevice()
	if err != nil {
		return err
	}
	e.device = device

	queue, r := e.device.CreateCommandQueue(metadata.CommandQueueDesc{Type: metadata.CommandQueueTypeGraphics})
	if !r.IsOk() {
		return errors.New(r.Error())
	}
	e.queue = queue

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e.device); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}

	// config edits while running: only the window size is applied live,
	// everything else needs a restart
	if e.gameInstance.ApplicationConfig.Renderer == nil {
		watcher, err := config.NewWatcher(defaultConfigPath, e.onConfigChanged)
		if err != nil {
			core.LogDebug("config watcher disabled: %v", err)
		} else {
			e.configWatcher = watcher
		}
	}

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) onConfigChanged(cfg *config.RendererConfig) {
	if cfg.Backend != e.rendererCfg.Backend {
		core.LogWarn("renderer backend changed to %q, restart to apply", cfg.Backend)
	}
	if cfg.Width != e.width || cfg.Height != e.height {
		e.onResized(cfg.Width, cfg.Height)
	}
}

// createDevice picks the backend named by the renderer configuration. The
// headless backend renders offscreen and is mostly useful for tooling and
// CI runs without a GPU.
func (e *Engine) createDevice() (renderer.Device, error) {
	switch e.rendererCfg.Backend {
	case "vulkan":
		vr := vulkan.New(e.platform, e.rendererCfg)
		if err := vr.Initialize(); err != nil {
			return nil, err
		}
		e.vulkanBackend = vr
		return vr, nil
	case "headless":
		device, err := d3d12.NewD3D12Device(&d3d12.HeadlessDevice{}, &d3d12.HeadlessCommandQueue{})
		if err != nil {
			return nil, err
		}
		return device, nil
	case "d3d12":
		return nil, fmt.Errorf("d3d12 backend requires a native device adapter; none is registered on this platform")
	case "metal", "opengl":
		return nil, core.NewResult(core.Unimplemented, "backend %q is not implemented", e.rendererCfg.Backend)
	default:
		return nil, fmt.Errorf("unknown renderer backend %q", e.rendererCfg.Backend)
	}
}

func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed().Seconds()

	for e.isRunning {
		e.platform.PumpMessages()
		if e.platform.ShouldClose() {
			e.isRunning = false
			break
		}

		if e.isSuspended {
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed().Seconds()
		delta := currentTime - e.lastTime

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(delta); err != nil {
				core.LogFatal("game update failed, shutting down: %v", err)
				e.isRunning = false
				break
			}
		}

		if e.vulkanBackend != nil {
			if err := e.vulkanBackend.BeginFrame(); err != nil {
				if err == core.ErrSwapchainOutOfDate {
					// swapchain is being rebuilt, skip this frame
					continue
				}
				return err
			}
		}

		if e.gameInstance.FnRender != nil {
			if err := e.gameInstance.FnRender(e.device, e.queue, delta); err != nil {
				core.LogFatal("game render failed, shutting down: %v", err)
				e.isRunning = false
				break
			}
		}

		core.MetricsUpdate(delta)
		e.lastTime = currentTime
	}

	return e.Shutdown()
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShuttingDown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.isRunning = false

	if e.configWatcher != nil {
		if err := e.configWatcher.Close(); err != nil {
			core.LogError("closing config watcher: %v", err)
		}
		e.configWatcher = nil
	}

	if e.device != nil {
		if err := e.device.WaitIdle(); err != nil {
			core.LogError("wait idle during shutdown: %v", err)
		}
	}
	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			return err
		}
	}
	if e.device != nil {
		if err := e.device.Shutdown(); err != nil {
			return err
		}
		e.device = nil
	}
	return e.platform.Shutdown()
}

func (e *Engine) onResized(width, height uint32) {
	e.width = width
	e.height = height
	e.isSuspended = width == 0 || height == 0
	if e.isSuspended {
		return
	}
	if e.vulkanBackend != nil {
		e.vulkanBackend.Resized(width, height)
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			core.LogError("resize callback failed: %v", err)
		}
	}
}

// GetFramebufferSize returns the width and height (in this order) of the
// window framebuffer.
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}
