package d3d12

import (
	"github.com/igloo-gfx/igloo/engine/core"
	"github.com/igloo-gfx/igloo/engine/renderer"
	"github.com/igloo-gfx/igloo/engine/renderer/metadata"
)

// D3D12RenderCommandEncoder implements renderer.RenderCommandEncoder. Bind
// state accumulates in the resources binder and is flushed into the
// descriptor heaps when a draw is recorded. Invalid calls log and skip the
// command instead of corrupting the pass.
type D3D12RenderCommandEncoder struct {
	cb       *D3D12CommandBuffer
	list     NativeCommandList
	fb       *D3D12Framebuffer
	binder   *ResourcesBinder
	ended    bool
	pipeline *D3D12RenderPipeline
}

func newRenderCommandEncoder(cb *D3D12CommandBuffer, pass metadata.RenderPassDesc, fb renderer.Framebuffer) (renderer.RenderCommandEncoder, core.Result) {
	dfb, ok := fb.(*D3D12Framebuffer)
	if !ok || dfb == nil {
		return nil, core.NewResult(core.ArgumentNull, "framebuffer is missing")
	}
	if len(pass.ColorAttachments) != len(dfb.colorTextures) {
		return nil, core.NewResult(core.ArgumentInvalid, "render pass has %d color attachments but framebuffer has %d", len(pass.ColorAttachments), len(dfb.colorTextures))
	}
	if pass.DepthAttachment != nil && dfb.depthTexture == nil {
		return nil, core.NewResult(core.ArgumentInvalid, "render pass needs a depth attachment but the framebuffer has none")
	}

	colors := make([]NativeResource, len(dfb.colorTextures))
	for i, texture := range dfb.colorTextures {
		texture.TransitionState(cb.list, ResourceStateRenderTarget)
		colors[i] = texture.resource
	}
	var depth NativeResource
	if pass.DepthAttachment != nil {
		dfb.depthTexture.TransitionState(cb.list, ResourceStateDepthWrite)
		depth = dfb.depthTexture.resource
	}
	cb.list.SetRenderTargets(colors, depth)

	for i, attachment := range pass.ColorAttachments {
		if attachment.LoadAction == metadata.LoadActionClear {
			c := attachment.ClearColor
			cb.list.ClearRenderTarget(colors[i], [4]float32{c.R, c.G, c.B, c.A})
		}
	}
	if pass.DepthAttachment != nil && pass.DepthAttachment.LoadAction == metadata.LoadActionClear {
		cb.list.ClearDepth(depth, pass.DepthAttachment.ClearDepth)
	}

	encoder := &D3D12RenderCommandEncoder{
		cb:     cb,
		list:   cb.list,
		fb:     dfb,
		binder: NewResourcesBinder(cb.context, false),
	}
	encoder.BindViewport(metadata.Viewport{
		Width:    float32(dfb.width),
		Height:   float32(dfb.height),
		MaxDepth: 1.0,
	})
	encoder.BindScissorRect(metadata.ScissorRect{Width: dfb.width, Height: dfb.height})

	cb.encoding = true
	return encoder, core.ResultOk()
}

func (e *D3D12RenderCommandEncoder) invalid(op string) bool {
	if e.ended {
		core.LogError("render encoder: %s after EndEncoding; command skipped", op)
		return true
	}
	return false
}

func (e *D3D12RenderCommandEncoder) BindRenderPipelineState(p renderer.RenderPipeline) {
	if e.invalid("BindRenderPipelineState") {
		return
	}
	pipeline, ok := p.(*D3D12RenderPipeline)
	if !ok || pipeline == nil {
		core.LogError("render encoder: pipeline does not belong to this backend; command skipped")
		return
	}
	e.pipeline = pipeline
	e.list.SetPipelineState(pipeline.pso)
}

func (e *D3D12RenderCommandEncoder) BindViewport(v metadata.Viewport) {
	if e.invalid("BindViewport") {
		return
	}
	e.list.SetViewport(v.X, v.Y, v.Width, v.Height, v.MinDepth, v.MaxDepth)
}

func (e *D3D12RenderCommandEncoder) BindScissorRect(r metadata.ScissorRect) {
	if e.invalid("BindScissorRect") {
		return
	}
	e.list.SetScissorRect(r.X, r.Y, r.Width, r.Height)
}

func (e *D3D12RenderCommandEncoder) BindVertexBuffer(index uint32, b renderer.Buffer, offset uint64) {
	if e.invalid("BindVertexBuffer") {
		return
	}
	buffer, ok := b.(*D3D12Buffer)
	if !ok || buffer == nil {
		core.LogError("render encoder: vertex buffer is missing; command skipped")
		return
	}
	stride := uint64(0)
	if e.pipeline != nil {
		stride = uint64(e.pipeline.desc.VertexInput.Stride)
	}
	e.list.SetVertexBuffer(index, buffer.resource, offset, stride)
}

func (e *D3D12RenderCommandEncoder) BindIndexBuffer(b renderer.Buffer, format metadata.IndexFormat, offset uint64) {
	if e.invalid("BindIndexBuffer") {
		return
	}
	buffer, ok := b.(*D3D12Buffer)
	if !ok || buffer == nil {
		core.LogError("render encoder: index buffer is missing; command skipped")
		return
	}
	e.list.SetIndexBuffer(buffer.resource, offset, format)
}

func (e *D3D12RenderCommandEncoder) BindBuffer(index uint32, b renderer.Buffer, offset, size uint64) {
	if e.invalid("BindBuffer") {
		return
	}
	buffer, _ := b.(*D3D12Buffer)
	if r := e.binder.BindConstantBuffer(index, buffer, offset, size); !r.IsOk() {
		core.LogError("render encoder: %s; command skipped", r.Error())
	}
}

func (e *D3D12RenderCommandEncoder) BindTexture(index uint32, t renderer.Texture) {
	if e.invalid("BindTexture") {
		return
	}
	texture, _ := t.(*D3D12Texture)
	if r := e.binder.BindTexture(index, texture); !r.IsOk() {
		core.LogError("render encoder: %s; command skipped", r.Error())
	}
}

func (e *D3D12RenderCommandEncoder) BindSamplerState(index uint32, s renderer.SamplerState) {
	if e.invalid("BindSamplerState") {
		return
	}
	sampler, _ := s.(*D3D12SamplerState)
	if r := e.binder.BindSampler(index, sampler); !r.IsOk() {
		core.LogError("render encoder: %s; command skipped", r.Error())
	}
}

func (e *D3D12RenderCommandEncoder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	if e.invalid("Draw") {
		return
	}
	if e.pipeline == nil {
		core.LogError("render encoder: Draw without a bound pipeline; command skipped")
		return
	}
	if r := e.binder.UpdateBindings(e.list); !r.IsOk() {
		core.LogError("render encoder: %s; draw skipped", r.Error())
		return
	}
	e.list.DrawInstanced(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (e *D3D12RenderCommandEncoder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	if e.invalid("DrawIndexed") {
		return
	}
	if e.pipeline == nil {
		core.LogError("render encoder: DrawIndexed without a bound pipeline; command skipped")
		return
	}
	if r := e.binder.UpdateBindings(e.list); !r.IsOk() {
		core.LogError("render encoder: %s; draw skipped", r.Error())
		return
	}
	e.list.DrawIndexedInstanced(indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}

func (e *D3D12RenderCommandEncoder) EndEncoding() {
	if e.ended {
		core.LogError("render encoder: EndEncoding called twice; command skipped")
		return
	}
	e.ended = true
	e.cb.encoding = false
}
