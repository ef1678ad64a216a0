package renderer

import (
	"github.com/igloo-gfx/igloo/engine/core"
	"github.com/igloo-gfx/igloo/engine/renderer/metadata"
)

type BackendType int

const (
	BackendTypeInvalid BackendType = iota
	BackendTypeVulkan
	BackendTypeMetal
	BackendTypeOpenGL
	BackendTypeD3D12
)

func (b BackendType) String() string {
	switch b {
	case BackendTypeVulkan:
		return "Vulkan"
	case BackendTypeMetal:
		return "Metal"
	case BackendTypeOpenGL:
		return "OpenGL"
	case BackendTypeD3D12:
		return "D3D12"
	}
	return "Invalid"
}

// Device is the top-level factory for GPU resources. One concrete Device
// exists per backend; the backend is selected once at creation time and
// callers never dispatch on it again.
type Device interface {
	CreateBuffer(desc metadata.BufferDesc) (Buffer, core.Result)
	CreateTexture(desc metadata.TextureDesc) (Texture, core.Result)
	CreateSamplerState(desc metadata.SamplerStateDesc) (SamplerState, core.Result)
	CreateRenderPipeline(desc metadata.RenderPipelineDesc) (RenderPipeline, core.Result)
	CreateComputePipeline(desc metadata.ComputePipelineDesc) (ComputePipeline, core.Result)
	CreateCommandQueue(desc metadata.CommandQueueDesc) (CommandQueue, core.Result)
	CreateFramebuffer(desc FramebufferDesc) (Framebuffer, core.Result)

	BackendType() BackendType
	// WaitIdle blocks until all submitted GPU work completes.
	WaitIdle() error
	Shutdown() error
}

// Buffer is a GPU buffer resource.
type Buffer interface {
	// Upload copies data into the buffer at offset, staging through a
	// transfer queue for device-local buffers.
	Upload(data []byte, offset uint64) core.Result
	Size() uint64
}

// Texture is a GPU image resource.
type Texture interface {
	// Upload copies pixel data into the sub-region described by range.
	// The range is validated against the texture dimensions before any
	// native call is made.
	Upload(data []byte, r metadata.TextureRangeDesc) core.Result
	Desc() *metadata.TextureDesc
}

type SamplerState interface{}

type RenderPipeline interface{}

type ComputePipeline interface{}

// FramebufferAttachment pairs a render target with its optional MSAA
// resolve target.
type FramebufferAttachment struct {
	Texture        Texture
	ResolveTexture Texture
}

// FramebufferDesc lists the attachments of a framebuffer in index order.
// All attachments must share identical dimensions; this is validated on
// creation and on every attachment update.
type FramebufferDesc struct {
	ColorAttachments []FramebufferAttachment
	DepthAttachment  FramebufferAttachment
	DebugName        string
}

// Framebuffer caches native framebuffer objects keyed by the exact set of
// attachment image views.
type Framebuffer interface {
	Width() uint32
	Height() uint32
}

// CommandQueue submits command buffers for GPU execution.
type CommandQueue interface {
	CreateCommandBuffer() (CommandBuffer, core.Result)
	// Submit schedules the command buffer. Ordering across submissions is
	// only guaranteed through the semaphore chaining performed internally
	// or explicit wait/signal links; see the package documentation.
	Submit(cb CommandBuffer, present bool) core.Result
}

// CommandBuffer records one or more encoded passes for a single submission.
type CommandBuffer interface {
	CreateRenderCommandEncoder(pass metadata.RenderPassDesc, fb Framebuffer) (RenderCommandEncoder, core.Result)
	CreateComputeCommandEncoder() (ComputeCommandEncoder, core.Result)
}

// RenderCommandEncoder records a single render pass. It is a state machine:
// created encoding, bind/draw while encoding, then EndEncoding exactly once.
// Invalid calls log and skip the command rather than corrupting the pass.
type RenderCommandEncoder interface {
	BindRenderPipelineState(p RenderPipeline)
	BindViewport(v metadata.Viewport)
	BindScissorRect(r metadata.ScissorRect)
	BindVertexBuffer(index uint32, b Buffer, offset uint64)
	BindIndexBuffer(b Buffer, format metadata.IndexFormat, offset uint64)
	BindBuffer(index uint32, b Buffer, offset, size uint64)
	BindTexture(index uint32, t Texture)
	BindSamplerState(index uint32, s SamplerState)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
	EndEncoding()
}

// ComputeCommandEncoder records a single compute pass.
type ComputeCommandEncoder interface {
	BindComputePipelineState(p ComputePipeline)
	BindBuffer(index uint32, b Buffer, offset, size uint64)
	BindStorageBuffer(index uint32, b Buffer, offset, elementStride uint64)
	BindTexture(index uint32, t Texture)
	Dispatch(groupsX, groupsY, groupsZ uint32)
	EndEncoding()
}
