package d3d12

import (
	"github.com/igloo-gfx/igloo/engine/core"
	"github.com/igloo-gfx/igloo/engine/renderer"
)

// D3D12ComputeCommandEncoder implements renderer.ComputeCommandEncoder.
type D3D12ComputeCommandEncoder struct {
	cb       *D3D12CommandBuffer
	list     NativeCommandList
	binder   *ResourcesBinder
	ended    bool
	pipeline *D3D12ComputePipeline
}

func newComputeCommandEncoder(cb *D3D12CommandBuffer) *D3D12ComputeCommandEncoder {
	return &D3D12ComputeCommandEncoder{
		cb:     cb,
		list:   cb.list,
		binder: NewResourcesBinder(cb.context, true),
	}
}

func (e *D3D12ComputeCommandEncoder) invalid(op string) bool {
	if e.ended {
		core.LogError("compute encoder: %s after EndEncoding; command skipped", op)
		return true
	}
	return false
}

func (e *D3D12ComputeCommandEncoder) BindComputePipelineState(p renderer.ComputePipeline) {
	if e.invalid("BindComputePipelineState") {
		return
	}
	pipeline, ok := p.(*D3D12ComputePipeline)
	if !ok || pipeline == nil {
		core.LogError("compute encoder: pipeline does not belong to this backend; command skipped")
		return
	}
	e.pipeline = pipeline
	e.list.SetPipelineState(pipeline.pso)
}

func (e *D3D12ComputeCommandEncoder) BindBuffer(index uint32, b renderer.Buffer, offset, size uint64) {
	if e.invalid("BindBuffer") {
		return
	}
	buffer, _ := b.(*D3D12Buffer)
	if r := e.binder.BindConstantBuffer(index, buffer, offset, size); !r.IsOk() {
		core.LogError("compute encoder: %s; command skipped", r.Error())
	}
}

func (e *D3D12ComputeCommandEncoder) BindStorageBuffer(index uint32, b renderer.Buffer, offset, elementStride uint64) {
	if e.invalid("BindStorageBuffer") {
		return
	}
	buffer, _ := b.(*D3D12Buffer)
	if buffer != nil {
		buffer.TransitionState(e.list, ResourceStateUnorderedAccess)
	}
	if r := e.binder.BindUAV(index, buffer, offset, elementStride); !r.IsOk() {
		core.LogError("compute encoder: %s; command skipped", r.Error())
	}
}

func (e *D3D12ComputeCommandEncoder) BindTexture(index uint32, t renderer.Texture) {
	if e.invalid("BindTexture") {
		return
	}
	texture, _ := t.(*D3D12Texture)
	if r := e.binder.BindTexture(index, texture); !r.IsOk() {
		core.LogError("compute encoder: %s; command skipped", r.Error())
	}
}

func (e *D3D12ComputeCommandEncoder) Dispatch(groupsX, groupsY, groupsZ uint32) {
	if e.invalid("Dispatch") {
		return
	}
	if e.pipeline == nil {
		core.LogError("compute encoder: Dispatch without a bound pipeline; command skipped")
		return
	}
	if r := e.binder.UpdateBindings(e.list); !r.IsOk() {
		core.LogError("compute encoder: %s; dispatch skipped", r.Error())
		return
	}
	e.list.Dispatch(groupsX, groupsY, groupsZ)
}

func (e *D3D12ComputeCommandEncoder) EndEncoding() {
	if e.ended {
		core.LogError("compute encoder: EndEncoding called twice; command skipped")
		return
	}
	e.ended = true
	e.cb.encoding = false
}
