package engine

import (
	"github.com/igloo-gfx/igloo/engine/renderer"
)

// Game is the application-side half of the engine. The engine owns the
// window, the device and the frame loop; the hooks below are where the
// application creates its resources and records its draw commands.
type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnRender          Render
	FnOnResize        OnResize
	FnShutdown        Shutdown
}

// Initialize runs once after the device is created; resource creation
// belongs here.
type Initialize func(device renderer.Device) error

// Update runs once per frame before rendering.
type Update func(deltaTime float64) error

// Render records and submits the frame's command buffers. The queue is the
// engine's graphics queue; the hook is responsible for submitting what it
// encodes.
type Render func(device renderer.Device, queue renderer.CommandQueue, deltaTime float64) error

// OnResize is called whenever the window framebuffer changes size.
type OnResize func(width, height uint32) error

// Shutdown runs before the device is destroyed.
type Shutdown func() error
