package platform

import (
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/igloo-gfx/igloo/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// Platform is the thin windowing adapter: a GLFW window plus the hooks the
// renderer needs (surface creation, required instance extensions, resize).
type Platform struct {
	Window *glfw.Window

	onResize func(width, height uint32)
}

func New() (*Platform, error) {
	return &Platform{}, nil
}

func (p *Platform) Startup(applicationName string, x, y, width, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogFatal("failed to initialize glfw: %s", err)
		return err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		core.LogFatal("failed to create window: %s", err)
		return err
	}
	p.Window = window

	p.Window.SetFramebufferSizeCallback(func(_ *glfw.Window, w, h int) {
		if p.onResize != nil {
			p.onResize(uint32(w), uint32(h))
		}
	})
	p.Window.SetPos(int(x), int(y))
	p.Window.Show()

	return nil
}

// SetResizeCallback registers the function invoked on framebuffer resizes.
func (p *Platform) SetResizeCallback(fn func(width, height uint32)) {
	p.onResize = fn
}

// GetRequiredExtensionNames returns the Vulkan instance extensions the
// window system needs.
func (p *Platform) GetRequiredExtensionNames() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

// CreateVulkanSurface creates a window surface for the given instance and
// returns its raw handle.
func (p *Platform) CreateVulkanSurface(instance interface{}) (uintptr, error) {
	surface, err := p.Window.CreateWindowSurface(instance, nil)
	if err != nil {
		core.LogError("failed to create window surface: %s", err)
		return 0, err
	}
	return surface, nil
}

func (p *Platform) PumpMessages() {
	glfw.PollEvents()
}

func (p *Platform) ShouldClose() bool {
	return p.Window.ShouldClose()
}

func (p *Platform) Shutdown() error {
	glfw.Terminate()
	return nil
}
