package d3d12

import (
	"github.com/igloo-gfx/igloo/engine/core"
	"github.com/igloo-gfx/igloo/engine/renderer"
	"github.com/igloo-gfx/igloo/engine/renderer/metadata"
)

// D3D12Device implements the renderer device over a native D3D12 device and
// its direct command queue.
type D3D12Device struct {
	context *D3D12Context
}

func NewD3D12Device(native NativeDevice, queue NativeCommandQueue) (*D3D12Device, error) {
	context, err := NewD3D12Context(native, queue)
	if err != nil {
		return nil, err
	}
	return &D3D12Device{context: context}, nil
}

func (d *D3D12Device) BackendType() renderer.BackendType {
	return renderer.BackendTypeD3D12
}

func (d *D3D12Device) CreateBuffer(desc metadata.BufferDesc) (renderer.Buffer, core.Result) {
	if desc.Size == 0 {
		return nil, core.NewResult(core.ArgumentInvalid, "buffer size must be non-zero")
	}
	if desc.Data != nil && uint64(len(desc.Data)) > desc.Size {
		return nil, core.NewResult(core.ArgumentOutOfRange, "initial data of %d bytes does not fit a %d-byte buffer", len(desc.Data), desc.Size)
	}

	hostVisible := desc.Storage == metadata.BufferStorageHostVisible
	initialState := ResourceStateCommon
	if hostVisible {
		// Upload-heap resources stay in the generic read state.
		initialState = ResourceStateVertexAndConstantBuffer
	}
	resource, err := d.context.Native.CreateBufferResource(desc.Size, hostVisible, initialState)
	if err != nil {
		return nil, core.NewResult(core.RuntimeError, "buffer creation failed: %v", err)
	}

	buffer := &D3D12Buffer{
		resource:    resource,
		size:        desc.Size,
		hostVisible: hostVisible,
		state:       initialState,
		context:     d.context,
	}
	if desc.Data != nil {
		if r := buffer.Upload(desc.Data, 0); !r.IsOk() {
			return nil, r
		}
	}
	return buffer, core.ResultOk()
}

func (d *D3D12Device) CreateTexture(desc metadata.TextureDesc) (renderer.Texture, core.Result) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, core.NewResult(core.ArgumentInvalid, "texture dimensions must be non-zero")
	}
	if desc.Depth == 0 {
		desc.Depth = 1
	}
	if desc.NumLayers == 0 {
		desc.NumLayers = 1
	}
	if desc.NumMips == 0 {
		desc.NumMips = 1
	}

	resource, err := d.context.Native.CreateTextureResource(desc, ResourceStateCommon)
	if err != nil {
		return nil, core.NewResult(core.RuntimeError, "texture creation failed: %v", err)
	}
	return &D3D12Texture{
		desc:     desc,
		resource: resource,
		state:    ResourceStateCommon,
		context:  d.context,
	}, core.ResultOk()
}

// D3D12SamplerState keeps the sampler description; the descriptor itself is
// written into the sampler heap at bind time.
type D3D12SamplerState struct {
	desc metadata.SamplerStateDesc
}

func (d *D3D12Device) CreateSamplerState(desc metadata.SamplerStateDesc) (renderer.SamplerState, core.Result) {
	return &D3D12SamplerState{desc: desc}, core.ResultOk()
}

type D3D12RenderPipeline struct {
	pso  NativePipelineState
	desc metadata.RenderPipelineDesc
}

type D3D12ComputePipeline struct {
	pso NativePipelineState
}

func (d *D3D12Device) CreateRenderPipeline(desc metadata.RenderPipelineDesc) (renderer.RenderPipeline, core.Result) {
	pso, err := d.context.Native.CreateRenderPipelineState(desc)
	if err != nil {
		return nil, core.NewResult(core.RuntimeError, "render pipeline creation failed: %v", err)
	}
	return &D3D12RenderPipeline{pso: pso, desc: desc}, core.ResultOk()
}

func (d *D3D12Device) CreateComputePipeline(desc metadata.ComputePipelineDesc) (renderer.ComputePipeline, core.Result) {
	pso, err := d.context.Native.CreateComputePipelineState(desc)
	if err != nil {
		return nil, core.NewResult(core.RuntimeError, "compute pipeline creation failed: %v", err)
	}
	return &D3D12ComputePipeline{pso: pso}, core.ResultOk()
}

func (d *D3D12Device) CreateCommandQueue(desc metadata.CommandQueueDesc) (renderer.CommandQueue, core.Result) {
	// Graphics, compute and transfer work all drain into the direct queue.
	return &D3D12CommandQueue{context: d.context, queueType: desc.Type}, core.ResultOk()
}

func (d *D3D12Device) CreateFramebuffer(desc renderer.FramebufferDesc) (renderer.Framebuffer, core.Result) {
	return newD3D12Framebuffer(desc)
}

func (d *D3D12Device) WaitIdle() error {
	d.context.Queue.WaitIdle()
	return nil
}

func (d *D3D12Device) Shutdown() error {
	d.context.Queue.WaitIdle()
	return nil
}
