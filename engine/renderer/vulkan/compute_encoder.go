package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/igloo-gfx/igloo/engine/core"
	"github.com/igloo-gfx/igloo/engine/renderer"
)

type storageBinding struct {
	buffer        *VulkanBuffer
	offset        vk.DeviceSize
	elementStride vk.DeviceSize
}

// VulkanComputeCommandEncoder implements renderer.ComputeCommandEncoder.
// Storage buffer bindings are validated at bind time: a zero element stride,
// a misaligned offset or a range too small for a single element is rejected
// before anything is recorded.
type VulkanComputeCommandEncoder struct {
	cb       *VulkanCommandBuffer
	cmdBuf   vk.CommandBuffer
	ended    bool
	pipeline *VulkanComputePipeline

	uniforms      [VULKAN_MAX_BUFFER_BINDINGS]uniformBinding
	uniformsDirty bool

	storage      [VULKAN_MAX_BUFFER_BINDINGS]storageBinding
	storageDirty bool

	textures      [VULKAN_MAX_TEXTURE_BINDINGS]*VulkanTexture
	texturesDirty bool
}

func newComputeCommandEncoder(cb *VulkanCommandBuffer) *VulkanComputeCommandEncoder {
	return &VulkanComputeCommandEncoder{
		cb:     cb,
		cmdBuf: cb.wrapper.CmdBuf,
	}
}

func (e *VulkanComputeCommandEncoder) invalid(op string) bool {
	if e.ended {
		core.LogError("compute encoder: %s after EndEncoding; command skipped", op)
		return true
	}
	return false
}

func (e *VulkanComputeCommandEncoder) BindComputePipelineState(p renderer.ComputePipeline) {
	if e.invalid("BindComputePipelineState") {
		return
	}
	pipeline, ok := p.(*VulkanComputePipeline)
	if !ok || pipeline == nil {
		core.LogError("compute encoder: pipeline does not belong to this backend; command skipped")
		return
	}
	e.pipeline = pipeline
	vk.CmdBindPipeline(e.cmdBuf, vk.PipelineBindPointCompute, pipeline.pipeline.Handle)
}

func (e *VulkanComputeCommandEncoder) BindBuffer(index uint32, b renderer.Buffer, offset, size uint64) {
	if e.invalid("BindBuffer") {
		return
	}
	if index >= VULKAN_MAX_BUFFER_BINDINGS {
		core.LogError("compute encoder: buffer slot %d out of range; command skipped", index)
		return
	}
	buffer, ok := b.(*VulkanBufferResource)
	if !ok || buffer == nil {
		e.uniforms[index] = uniformBinding{}
		e.uniformsDirty = true
		return
	}
	if size == 0 {
		size = uint64(buffer.buffer.TotalSize) - offset
	}
	e.uniforms[index] = uniformBinding{
		buffer: buffer.buffer,
		offset: vk.DeviceSize(offset),
		size:   vk.DeviceSize(size),
	}
	e.uniformsDirty = true
}

func (e *VulkanComputeCommandEncoder) BindStorageBuffer(index uint32, b renderer.Buffer, offset, elementStride uint64) {
	if e.invalid("BindStorageBuffer") {
		return
	}
	if index >= VULKAN_MAX_BUFFER_BINDINGS {
		core.LogError("compute encoder: storage slot %d out of range; command skipped", index)
		return
	}
	buffer, ok := b.(*VulkanBufferResource)
	if !ok || buffer == nil {
		e.storage[index] = storageBinding{}
		e.storageDirty = true
		return
	}
	if elementStride == 0 {
		core.LogError("compute encoder: storage buffer element stride must be non-zero; command skipped")
		return
	}
	if offset%elementStride != 0 {
		core.LogError("compute encoder: storage buffer offset %d is not a multiple of the element stride %d; command skipped", offset, elementStride)
		return
	}
	bufferSize := uint64(buffer.buffer.TotalSize)
	if offset > bufferSize || bufferSize-offset < elementStride {
		core.LogError("compute encoder: storage buffer range at offset %d does not fit one element of stride %d; command skipped", offset, elementStride)
		return
	}
	e.storage[index] = storageBinding{
		buffer:        buffer.buffer,
		offset:        vk.DeviceSize(offset),
		elementStride: vk.DeviceSize(elementStride),
	}
	e.storageDirty = true
}

func (e *VulkanComputeCommandEncoder) BindTexture(index uint32, t renderer.Texture) {
	if e.invalid("BindTexture") {
		return
	}
	if index >= VULKAN_MAX_TEXTURE_BINDINGS {
		core.LogError("compute encoder: texture slot %d out of range; command skipped", index)
		return
	}
	texture, _ := t.(*VulkanTexture)
	e.textures[index] = texture
	e.texturesDirty = true
}

func (e *VulkanComputeCommandEncoder) flushBindings() {
	vr := e.cb.renderer
	allocator := vr.descriptorAllocators[vr.context.CurrentFrame]

	if e.uniformsDirty {
		set, err := allocator.Allocate(vr.layouts.UniformBuffers)
		if err == nil {
			writes := make([]vk.WriteDescriptorSet, 0, VULKAN_MAX_BUFFER_BINDINGS)
			for slot, binding := range e.uniforms {
				if binding.buffer == nil {
					continue
				}
				writes = append(writes, vk.WriteDescriptorSet{
					SType:           vk.StructureTypeWriteDescriptorSet,
					DstSet:          set,
					DstBinding:      uint32(slot),
					DescriptorCount: 1,
					DescriptorType:  vk.DescriptorTypeUniformBuffer,
					PBufferInfo: []vk.DescriptorBufferInfo{{
						Buffer: binding.buffer.Handle,
						Offset: binding.offset,
						Range:  binding.size,
					}},
				})
			}
			if len(writes) > 0 {
				vk.UpdateDescriptorSets(vr.context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
			}
			vk.CmdBindDescriptorSets(e.cmdBuf, vk.PipelineBindPointCompute, vr.layouts.PipelineLayout,
				descriptorSetUniformBuffers, 1, []vk.DescriptorSet{set}, 0, nil)
		}
		e.uniformsDirty = false
	}

	if e.storageDirty {
		set, err := allocator.Allocate(vr.layouts.StorageBuffers)
		if err == nil {
			writes := make([]vk.WriteDescriptorSet, 0, VULKAN_MAX_BUFFER_BINDINGS)
			for slot, binding := range e.storage {
				if binding.buffer == nil {
					continue
				}
				writes = append(writes, vk.WriteDescriptorSet{
					SType:           vk.StructureTypeWriteDescriptorSet,
					DstSet:          set,
					DstBinding:      uint32(slot),
					DescriptorCount: 1,
					DescriptorType:  vk.DescriptorTypeStorageBuffer,
					PBufferInfo: []vk.DescriptorBufferInfo{{
						Buffer: binding.buffer.Handle,
						Offset: binding.offset,
						Range:  binding.buffer.TotalSize - binding.offset,
					}},
				})
			}
			if len(writes) > 0 {
				vk.UpdateDescriptorSets(vr.context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
			}
			vk.CmdBindDescriptorSets(e.cmdBuf, vk.PipelineBindPointCompute, vr.layouts.PipelineLayout,
				descriptorSetStorageBuffers, 1, []vk.DescriptorSet{set}, 0, nil)
		}
		e.storageDirty = false
	}

	if e.texturesDirty {
		set, err := allocator.Allocate(vr.layouts.Textures)
		if err == nil {
			writes := make([]vk.WriteDescriptorSet, 0, VULKAN_MAX_TEXTURE_BINDINGS)
			for slot, texture := range e.textures {
				if texture == nil {
					continue
				}
				writes = append(writes, vk.WriteDescriptorSet{
					SType:           vk.StructureTypeWriteDescriptorSet,
					DstSet:          set,
					DstBinding:      uint32(slot),
					DescriptorCount: 1,
					DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
					PImageInfo: []vk.DescriptorImageInfo{{
						Sampler:     vr.defaultSampler.Handle,
						ImageView:   texture.image.View,
						ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
					}},
				})
			}
			if len(writes) > 0 {
				vk.UpdateDescriptorSets(vr.context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
			}
			vk.CmdBindDescriptorSets(e.cmdBuf, vk.PipelineBindPointCompute, vr.layouts.PipelineLayout,
				descriptorSetTextures, 1, []vk.DescriptorSet{set}, 0, nil)
		}
		e.texturesDirty = false
	}
}

func (e *VulkanComputeCommandEncoder) Dispatch(groupsX, groupsY, groupsZ uint32) {
	if e.invalid("Dispatch") {
		return
	}
	if e.pipeline == nil {
		core.LogError("compute encoder: Dispatch without a bound pipeline; command skipped")
		return
	}
	e.flushBindings()
	vk.CmdDispatch(e.cmdBuf, groupsX, groupsY, groupsZ)
}

func (e *VulkanComputeCommandEncoder) EndEncoding() {
	if e.ended {
		core.LogError("compute encoder: EndEncoding called twice; command skipped")
		return
	}
	e.ended = true
	e.cb.encoding = false
}
