package testbed

import (
	"math"

	"github.com/igloo-gfx/igloo/engine"
	"github.com/igloo-gfx/igloo/engine/core"
	"github.com/igloo-gfx/igloo/engine/renderer"
	"github.com/igloo-gfx/igloo/engine/renderer/metadata"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	elapsed float64

	vertexBuffer  renderer.Buffer
	uniformBuffer renderer.Buffer

	width  uint32
	height uint32
}

func NewTestGame() (*TestGame, error) {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: &engine.ApplicationConfig{
				Name:      "Igloo Testbed",
				StartPosX: 100,
				StartPosY: 100,
			},
			State: &gameState{},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg, nil
}

func (g *TestGame) Initialize(device renderer.Device) error {
	core.LogInfo("initializing testbed...")
	state := g.State.(*gameState)

	// interleaved position+color, one triangle
	vertices := []float32{
		0.0, -0.5, 1.0, 0.0, 0.0,
		0.5, 0.5, 0.0, 1.0, 0.0,
		-0.5, 0.5, 0.0, 0.0, 1.0,
	}
	vb, r := device.CreateBuffer(metadata.BufferDesc{
		Size:      uint64(len(vertices) * 4),
		Usage:     metadata.BufferUsageVertex | metadata.BufferUsageTransferDst,
		Storage:   metadata.BufferStorageDeviceLocal,
		Data:      floatBytes(vertices),
		DebugName: "testbed_triangle_vb",
	})
	if !r.IsOk() {
		core.LogError(r.Error())
		return r
	}
	state.vertexBuffer = vb

	ub, r := device.CreateBuffer(metadata.BufferDesc{
		Size:      256,
		Usage:     metadata.BufferUsageUniform,
		Storage:   metadata.BufferStorageHostVisible,
		DebugName: "testbed_frame_ub",
	})
	if !r.IsOk() {
		core.LogError(r.Error())
		return r
	}
	state.uniformBuffer = ub

	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	state := g.State.(*gameState)
	state.elapsed += deltaTime
	return nil
}

func (g *TestGame) Render(device renderer.Device, queue renderer.CommandQueue, deltaTime float64) error {
	state := g.State.(*gameState)

	cb, r := queue.CreateCommandBuffer()
	if !r.IsOk() {
		return r
	}

	// pulse the clear color so there is something to look at
	pulse := float32(0.5 + 0.5*math.Sin(state.elapsed))
	pass := metadata.RenderPassDesc{
		ColorAttachments: []metadata.ColorAttachmentDesc{
			{
				LoadAction:  metadata.LoadActionClear,
				StoreAction: metadata.StoreActionStore,
				ClearColor:  metadata.Color{R: 0.1, G: 0.1, B: pulse, A: 1.0},
			},
		},
	}

	encoder, r := cb.CreateRenderCommandEncoder(pass, nil)
	if !r.IsOk() {
		return r
	}
	encoder.EndEncoding()

	if r := queue.Submit(cb, true); !r.IsOk() {
		return r
	}
	return nil
}

func (g *TestGame) OnResize(width, height uint32) error {
	state := g.State.(*gameState)
	state.width = width
	state.height = height
	return nil
}

func (g *TestGame) Shutdown() error {
	fps, frameTime := core.MetricsFrame()
	core.LogInfo("shutting down testbed (%.0f fps, %.2f ms/frame)", fps, frameTime)
	return nil
}

func floatBytes(values []float32) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		bits := math.Float32bits(v)
		out[i*4+0] = byte(bits)
		out[i*4+1] = byte(bits >> 8)
		out[i*4+2] = byte(bits >> 16)
		out[i*4+3] = byte(bits >> 24)
	}
	return out
}
