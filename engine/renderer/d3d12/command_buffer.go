package d3d12

import (
	"github.com/igloo-gfx/igloo/engine/core"
	"github.com/igloo-gfx/igloo/engine/renderer"
	"github.com/igloo-gfx/igloo/engine/renderer/metadata"
)

// D3D12Framebuffer implements renderer.Framebuffer. It is a value object
// holding the ordered attachment textures; render targets are set on the
// command list when a render pass begins.
type D3D12Framebuffer struct {
	desc   renderer.FramebufferDesc
	width  uint32
	height uint32

	colorTextures []*D3D12Texture
	depthTexture  *D3D12Texture
}

func newD3D12Framebuffer(desc renderer.FramebufferDesc) (*D3D12Framebuffer, core.Result) {
	fb := &D3D12Framebuffer{desc: desc}

	for i, attachment := range desc.ColorAttachments {
		texture, ok := attachment.Texture.(*D3D12Texture)
		if !ok || texture == nil {
			return nil, core.NewResult(core.ArgumentNull, "framebuffer color attachment %d is missing", i)
		}
		fb.colorTextures = append(fb.colorTextures, texture)
	}
	if len(fb.colorTextures) == 0 {
		return nil, core.NewResult(core.ArgumentInvalid, "framebuffer has no color attachments")
	}

	if depth, ok := desc.DepthAttachment.Texture.(*D3D12Texture); ok && depth != nil {
		fb.depthTexture = depth
	}

	fb.width = fb.colorTextures[0].desc.Width
	fb.height = fb.colorTextures[0].desc.Height
	for i, texture := range fb.colorTextures {
		if texture.desc.Width != fb.width || texture.desc.Height != fb.height {
			return nil, core.NewResult(core.ArgumentInvalid, "color attachment %d is %dx%d, expected %dx%d", i, texture.desc.Width, texture.desc.Height, fb.width, fb.height)
		}
	}
	if fb.depthTexture != nil && (fb.depthTexture.desc.Width != fb.width || fb.depthTexture.desc.Height != fb.height) {
		return nil, core.NewResult(core.ArgumentInvalid, "depth attachment is %dx%d, expected %dx%d", fb.depthTexture.desc.Width, fb.depthTexture.desc.Height, fb.width, fb.height)
	}

	return fb, core.ResultOk()
}

func (fb *D3D12Framebuffer) Width() uint32  { return fb.width }
func (fb *D3D12Framebuffer) Height() uint32 { return fb.height }

// D3D12CommandQueue implements renderer.CommandQueue. Every queue type
// funnels into the single direct queue.
type D3D12CommandQueue struct {
	context   *D3D12Context
	queueType metadata.CommandQueueType
}

func (q *D3D12CommandQueue) CreateCommandBuffer() (renderer.CommandBuffer, core.Result) {
	list, err := q.context.Queue.CreateCommandList()
	if err != nil {
		return nil, core.NewResult(core.RuntimeError, "command list creation failed: %v", err)
	}
	return &D3D12CommandBuffer{context: q.context, list: list}, core.ResultOk()
}

func (q *D3D12CommandQueue) Submit(cb renderer.CommandBuffer, present bool) core.Result {
	dcb, ok := cb.(*D3D12CommandBuffer)
	if !ok || dcb == nil {
		return core.NewResult(core.ArgumentNull, "command buffer is missing")
	}
	if dcb.submitted {
		return core.NewResult(core.InvalidOperation, "command buffer was already submitted")
	}
	if dcb.encoding {
		return core.NewResult(core.InvalidOperation, "an encoder is still active on this command buffer")
	}

	if err := dcb.list.Close(); err != nil {
		return core.NewResult(core.RuntimeError, "command list close failed: %v", err)
	}
	fenceValue := q.context.Queue.ExecuteCommandList(dcb.list)
	dcb.submitted = true
	q.context.LastSubmittedValue = fenceValue

	// once the GPU has caught up with everything submitted, no in-flight
	// work reads the per-frame descriptor ranges any more and the heaps can
	// be recycled
	if q.context.IsComplete(fenceValue) {
		q.context.ViewHeap.ResetFrame()
		q.context.SamplerHeap.ResetFrame()
	}
	return core.ResultOk()
}

// D3D12CommandBuffer implements renderer.CommandBuffer over one native
// command list.
type D3D12CommandBuffer struct {
	context   *D3D12Context
	list      NativeCommandList
	encoding  bool
	submitted bool
}

func (cb *D3D12CommandBuffer) CreateRenderCommandEncoder(pass metadata.RenderPassDesc, fb renderer.Framebuffer) (renderer.RenderCommandEncoder, core.Result) {
	if cb.submitted {
		return nil, core.NewResult(core.InvalidOperation, "command buffer was already submitted")
	}
	if cb.encoding {
		return nil, core.NewResult(core.InvalidOperation, "another encoder is still active on this command buffer")
	}
	return newRenderCommandEncoder(cb, pass, fb)
}

func (cb *D3D12CommandBuffer) CreateComputeCommandEncoder() (renderer.ComputeCommandEncoder, core.Result) {
	if cb.submitted {
		return nil, core.NewResult(core.InvalidOperation, "command buffer was already submitted")
	}
	if cb.encoding {
		return nil, core.NewResult(core.InvalidOperation, "another encoder is still active on this command buffer")
	}
	cb.encoding = true
	return newComputeCommandEncoder(cb), core.ResultOk()
}
