package d3d12

import (
	"github.com/igloo-gfx/igloo/engine/core"
)

type bindingCategory uint32

const (
	dirtyTextures bindingCategory = 1 << iota
	dirtySamplers
	dirtyConstantBuffers
	dirtyUAVs

	dirtyAll = dirtyTextures | dirtySamplers | dirtyConstantBuffers | dirtyUAVs
)

type constantBufferBinding struct {
	resource NativeResource
	offset   uint64
	size     uint64
}

type uavBinding struct {
	resource      NativeResource
	offset        uint64
	elementStride uint64
	bufferSize    uint64
}

type samplerBinding struct {
	sampler *D3D12SamplerState
}

// ResourcesBinder accumulates pending texture, sampler, constant-buffer and
// UAV bindings and flushes them into the shader-visible descriptor heaps
// immediately before a draw or dispatch. Each category keeps a count equal
// to the highest bound slot plus one; the bound slots must be dense from
// slot zero when the flush happens. Validation failures reject the whole
// category before any native call is made.
type ResourcesBinder struct {
	context   *D3D12Context
	isCompute bool

	textures    [D3D12_MAX_TEXTURE_BINDINGS]*D3D12Texture
	numTextures uint32

	samplers    [D3D12_MAX_SAMPLER_BINDINGS]samplerBinding
	numSamplers uint32

	constantBuffers    [D3D12_MAX_CBV_BINDINGS]constantBufferBinding
	numConstantBuffers uint32

	uavs    [D3D12_MAX_UAV_BINDINGS]uavBinding
	numUAVs uint32

	dirty bindingCategory
}

func NewResourcesBinder(context *D3D12Context, isCompute bool) *ResourcesBinder {
	return &ResourcesBinder{
		context:   context,
		isCompute: isCompute,
		dirty:     dirtyAll,
	}
}

// shrinkCount recomputes a category count after a nil bind by scanning off
// trailing empty slots.
func shrinkCount(count uint32, isEmpty func(slot uint32) bool) uint32 {
	for count > 0 && isEmpty(count-1) {
		count--
	}
	return count
}

func (rb *ResourcesBinder) BindTexture(slot uint32, texture *D3D12Texture) core.Result {
	if slot >= D3D12_MAX_TEXTURE_BINDINGS {
		return core.NewResult(core.ArgumentOutOfRange, "texture slot %d exceeds the maximum of %d", slot, D3D12_MAX_TEXTURE_BINDINGS)
	}

	rb.textures[slot] = texture
	if texture != nil {
		if slot+1 > rb.numTextures {
			rb.numTextures = slot + 1
		}
	} else {
		rb.numTextures = shrinkCount(rb.numTextures, func(s uint32) bool { return rb.textures[s] == nil })
	}
	rb.dirty |= dirtyTextures
	return core.ResultOk()
}

func (rb *ResourcesBinder) BindSampler(slot uint32, sampler *D3D12SamplerState) core.Result {
	if slot >= D3D12_MAX_SAMPLER_BINDINGS {
		return core.NewResult(core.ArgumentOutOfRange, "sampler slot %d exceeds the maximum of %d", slot, D3D12_MAX_SAMPLER_BINDINGS)
	}

	rb.samplers[slot] = samplerBinding{sampler: sampler}
	if sampler != nil {
		if slot+1 > rb.numSamplers {
			rb.numSamplers = slot + 1
		}
	} else {
		rb.numSamplers = shrinkCount(rb.numSamplers, func(s uint32) bool { return rb.samplers[s].sampler == nil })
	}
	rb.dirty |= dirtySamplers
	return core.ResultOk()
}

func (rb *ResourcesBinder) BindConstantBuffer(slot uint32, buffer *D3D12Buffer, offset, size uint64) core.Result {
	if slot >= D3D12_MAX_CBV_BINDINGS {
		return core.NewResult(core.ArgumentOutOfRange, "constant buffer slot %d exceeds the maximum of %d", slot, D3D12_MAX_CBV_BINDINGS)
	}

	if buffer == nil {
		rb.constantBuffers[slot] = constantBufferBinding{}
		rb.numConstantBuffers = shrinkCount(rb.numConstantBuffers, func(s uint32) bool { return rb.constantBuffers[s].resource == nil })
		rb.dirty |= dirtyConstantBuffers
		return core.ResultOk()
	}

	if size == 0 {
		size = buffer.size - offset
	}
	rb.constantBuffers[slot] = constantBufferBinding{
		resource: buffer.resource,
		offset:   offset,
		size:     size,
	}
	if slot+1 > rb.numConstantBuffers {
		rb.numConstantBuffers = slot + 1
	}
	rb.dirty |= dirtyConstantBuffers
	return core.ResultOk()
}

func (rb *ResourcesBinder) BindUAV(slot uint32, buffer *D3D12Buffer, offset, elementStride uint64) core.Result {
	if slot >= D3D12_MAX_UAV_BINDINGS {
		return core.NewResult(core.ArgumentOutOfRange, "UAV slot %d exceeds the maximum of %d", slot, D3D12_MAX_UAV_BINDINGS)
	}

	if buffer == nil {
		rb.uavs[slot] = uavBinding{}
		rb.numUAVs = shrinkCount(rb.numUAVs, func(s uint32) bool { return rb.uavs[s].resource == nil })
		rb.dirty |= dirtyUAVs
		return core.ResultOk()
	}

	if elementStride == 0 {
		return core.NewResult(core.ArgumentInvalid, "UAV element stride must be non-zero")
	}

	rb.uavs[slot] = uavBinding{
		resource:      buffer.resource,
		offset:        offset,
		elementStride: elementStride,
		bufferSize:    buffer.size,
	}
	if slot+1 > rb.numUAVs {
		rb.numUAVs = slot + 1
	}
	rb.dirty |= dirtyUAVs
	return core.ResultOk()
}

// Reset clears every pending binding and marks all categories dirty, so the
// next flush re-establishes the full binding state.
func (rb *ResourcesBinder) Reset() {
	rb.textures = [D3D12_MAX_TEXTURE_BINDINGS]*D3D12Texture{}
	rb.numTextures = 0
	rb.samplers = [D3D12_MAX_SAMPLER_BINDINGS]samplerBinding{}
	rb.numSamplers = 0
	rb.constantBuffers = [D3D12_MAX_CBV_BINDINGS]constantBufferBinding{}
	rb.numConstantBuffers = 0
	rb.uavs = [D3D12_MAX_UAV_BINDINGS]uavBinding{}
	rb.numUAVs = 0
	rb.dirty = dirtyAll
}

func (rb *ResourcesBinder) setRootTable(cmdList NativeCommandList, rootParameter uint32, base GPUDescriptorHandle) {
	if rb.isCompute {
		cmdList.SetComputeRootDescriptorTable(rootParameter, base)
	} else {
		cmdList.SetGraphicsRootDescriptorTable(rootParameter, base)
	}
}

// UpdateBindings flushes every dirty category into the descriptor heaps and
// sets the corresponding root descriptor tables. A category that fails
// validation is rejected whole: no view is created and no table is set for
// it. Each flushed category allocates one contiguous descriptor range and
// issues exactly one root-table call.
func (rb *ResourcesBinder) UpdateBindings(cmdList NativeCommandList) core.Result {
	if rb.dirty&dirtyTextures != 0 && rb.numTextures > 0 {
		for slot := uint32(0); slot < rb.numTextures; slot++ {
			if rb.textures[slot] == nil {
				return core.NewResult(core.InvalidOperation, "texture bindings must be dense from slot 0; slot %d is empty", slot)
			}
		}

		heap, base, err := rb.context.ViewHeap.AllocateRange(rb.numTextures)
		if err != nil {
			return core.NewResult(core.RuntimeError, "descriptor allocation failed: %v", err)
		}
		shaderState := ResourceStatePixelShaderResource
		if rb.isCompute {
			shaderState = ResourceStateNonPixelShaderResource
		}
		for slot := uint32(0); slot < rb.numTextures; slot++ {
			texture := rb.textures[slot]
			texture.TransitionState(cmdList, shaderState)
			rb.context.Native.CreateShaderResourceView(texture.resource, heap, base+slot)
		}
		rb.setRootTable(cmdList, RootParamTextures, heap.GPUHandle(base))
		rb.dirty &^= dirtyTextures
	}

	if rb.dirty&dirtySamplers != 0 && rb.numSamplers > 0 {
		for slot := uint32(0); slot < rb.numSamplers; slot++ {
			if rb.samplers[slot].sampler == nil {
				return core.NewResult(core.InvalidOperation, "sampler bindings must be dense from slot 0; slot %d is empty", slot)
			}
		}

		heap, base, err := rb.context.SamplerHeap.AllocateRange(rb.numSamplers)
		if err != nil {
			return core.NewResult(core.RuntimeError, "descriptor allocation failed: %v", err)
		}
		for slot := uint32(0); slot < rb.numSamplers; slot++ {
			rb.context.Native.CreateSampler(rb.samplers[slot].sampler.desc, heap, base+slot)
		}
		rb.setRootTable(cmdList, RootParamSamplers, heap.GPUHandle(base))
		rb.dirty &^= dirtySamplers
	}

	if rb.dirty&dirtyConstantBuffers != 0 && rb.numConstantBuffers > 0 {
		for slot := uint32(0); slot < rb.numConstantBuffers; slot++ {
			binding := rb.constantBuffers[slot]
			if binding.resource == nil {
				return core.NewResult(core.InvalidOperation, "constant buffer bindings must be dense from slot 0; slot %d is empty", slot)
			}
			if binding.offset%D3D12_CONSTANT_BUFFER_ALIGNMENT != 0 {
				return core.NewResult(core.ArgumentInvalid, "constant buffer offset %d at slot %d is not a multiple of %d", binding.offset, slot, D3D12_CONSTANT_BUFFER_ALIGNMENT)
			}
			if binding.size > D3D12_MAX_CONSTANT_BUFFER_SIZE {
				return core.NewResult(core.ArgumentOutOfRange, "constant buffer view of %d bytes at slot %d exceeds the maximum of %d", binding.size, slot, D3D12_MAX_CONSTANT_BUFFER_SIZE)
			}
		}

		heap, base, err := rb.context.ViewHeap.AllocateRange(rb.numConstantBuffers)
		if err != nil {
			return core.NewResult(core.RuntimeError, "descriptor allocation failed: %v", err)
		}
		for slot := uint32(0); slot < rb.numConstantBuffers; slot++ {
			binding := rb.constantBuffers[slot]
			rb.context.Native.CreateConstantBufferView(binding.resource, binding.offset, binding.size, heap, base+slot)
		}
		rb.setRootTable(cmdList, RootParamConstantBuffers, heap.GPUHandle(base))
		rb.dirty &^= dirtyConstantBuffers
	}

	if rb.dirty&dirtyUAVs != 0 && rb.numUAVs > 0 {
		for slot := uint32(0); slot < rb.numUAVs; slot++ {
			binding := rb.uavs[slot]
			if binding.resource == nil {
				return core.NewResult(core.InvalidOperation, "UAV bindings must be dense from slot 0; slot %d is empty", slot)
			}
			if binding.offset%binding.elementStride != 0 {
				return core.NewResult(core.ArgumentInvalid, "UAV offset %d at slot %d is not a multiple of the element stride %d", binding.offset, slot, binding.elementStride)
			}
			if binding.offset > binding.bufferSize || binding.bufferSize-binding.offset < binding.elementStride {
				return core.NewResult(core.ArgumentOutOfRange, "UAV range at offset %d of a %d-byte buffer does not fit one element of stride %d", binding.offset, binding.bufferSize, binding.elementStride)
			}
		}

		heap, base, err := rb.context.ViewHeap.AllocateRange(rb.numUAVs)
		if err != nil {
			return core.NewResult(core.RuntimeError, "descriptor allocation failed: %v", err)
		}
		for slot := uint32(0); slot < rb.numUAVs; slot++ {
			binding := rb.uavs[slot]
			numElements := (binding.bufferSize - binding.offset) / binding.elementStride
			rb.context.Native.CreateUnorderedAccessView(binding.resource, binding.offset/binding.elementStride, numElements, binding.elementStride, heap, base+slot)
		}
		rb.setRootTable(cmdList, RootParamUAVs, heap.GPUHandle(base))
		rb.dirty &^= dirtyUAVs
	}

	return core.ResultOk()
}
