package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/igloo-gfx/igloo/engine/core"
	"github.com/igloo-gfx/igloo/engine/renderer"
	"github.com/igloo-gfx/igloo/engine/renderer/metadata"
)

type uniformBinding struct {
	buffer *VulkanBuffer
	offset vk.DeviceSize
	size   vk.DeviceSize
}

// VulkanRenderCommandEncoder implements renderer.RenderCommandEncoder. It is
// a state machine over one render pass: bind state accumulates and is
// flushed into descriptor sets when a draw is recorded. Invalid calls log
// and skip the command instead of corrupting the pass.
type VulkanRenderCommandEncoder struct {
	cb       *VulkanCommandBuffer
	cmdBuf   vk.CommandBuffer
	pass     *VulkanRenderPass
	width    uint32
	height   uint32
	ended    bool
	pipeline *VulkanRenderPipeline

	textures      [VULKAN_MAX_TEXTURE_BINDINGS]*VulkanTexture
	samplers      [VULKAN_MAX_TEXTURE_BINDINGS]*VulkanSamplerState
	texturesDirty bool

	uniforms      [VULKAN_MAX_BUFFER_BINDINGS]uniformBinding
	uniformsDirty bool
}

func newRenderCommandEncoder(cb *VulkanCommandBuffer, pass metadata.RenderPassDesc, fb renderer.Framebuffer) (renderer.RenderCommandEncoder, core.Result) {
	vr := cb.renderer
	context := vr.context

	var attachments []*VulkanImage
	var colorFormats []vk.Format
	depthFormat := vk.FormatUndefined
	finalColorLayout := vk.ImageLayoutColorAttachmentOptimal
	var width, height uint32

	if fb == nil {
		// default framebuffer: current swapchain image plus the swapchain
		// depth attachment
		swapImage := context.Swapchain.Images[context.ImageIndex]
		attachments = []*VulkanImage{swapImage}
		colorFormats = []vk.Format{swapImage.Format}
		if pass.DepthAttachment != nil {
			attachments = append(attachments, context.Swapchain.DepthAttachment)
			depthFormat = context.Swapchain.DepthAttachment.Format
		}
		width, height = swapImage.Width, swapImage.Height
	} else {
		vfb, ok := fb.(*VulkanFramebuffer)
		if !ok {
			return nil, core.NewResult(core.ArgumentInvalid, "framebuffer does not belong to this backend")
		}
		if len(pass.ColorAttachments) != len(vfb.colorImages) {
			return nil, core.NewResult(core.ArgumentInvalid, "render pass has %d color attachments but framebuffer has %d", len(pass.ColorAttachments), len(vfb.colorImages))
		}
		if pass.DepthAttachment != nil && vfb.depthImage == nil {
			return nil, core.NewResult(core.ArgumentInvalid, "render pass needs a depth attachment but the framebuffer has none")
		}
		attachments = vfb.attachments()
		for _, image := range vfb.colorImages {
			colorFormats = append(colorFormats, image.Format)
		}
		if vfb.depthImage != nil {
			depthFormat = vfb.depthImage.Format
		}
		width, height = vfb.width, vfb.height
	}

	if len(pass.ColorAttachments) != len(colorFormats) {
		return nil, core.NewResult(core.ArgumentInvalid, "render pass has %d color attachments but %d targets", len(pass.ColorAttachments), len(colorFormats))
	}

	// move every attachment into its attachment layout before the pass
	for i, image := range attachments {
		if i < len(colorFormats) {
			image.TransitionLayout(context.Functions, cb.wrapper.CmdBuf,
				vk.ImageLayoutColorAttachmentOptimal,
				vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
				vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
				image.FullRange(vk.ImageAspectFlags(vk.ImageAspectColorBit)))
		} else {
			image.TransitionLayout(context.Functions, cb.wrapper.CmdBuf,
				vk.ImageLayoutDepthStencilAttachmentOptimal,
				vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit),
				vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit)|vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit),
				image.FullRange(vk.ImageAspectFlags(vk.ImageAspectDepthBit)))
		}
	}

	renderPass, err := vr.renderPassFor(pass, colorFormats, depthFormat, finalColorLayout)
	if err != nil {
		return nil, core.NewResult(core.RuntimeError, "render pass creation failed: %v", err)
	}

	framebuffer, err := vr.framebuffers.Get(renderPass.Handle, attachments, 0)
	if err != nil {
		return nil, core.NewResult(core.RuntimeError, "framebuffer creation failed: %v", err)
	}

	renderPass.Begin(cb.wrapper.CmdBuf, framebuffer, width, height, BuildClearValues(pass))

	encoder := &VulkanRenderCommandEncoder{
		cb:     cb,
		cmdBuf: cb.wrapper.CmdBuf,
		pass:   renderPass,
		width:  width,
		height: height,
	}
	encoder.BindViewport(metadata.Viewport{
		Width:    float32(width),
		Height:   float32(height),
		MaxDepth: 1.0,
	})
	encoder.BindScissorRect(metadata.ScissorRect{Width: width, Height: height})

	cb.encoding = true
	return encoder, core.ResultOk()
}

func (e *VulkanRenderCommandEncoder) invalid(op string) bool {
	if e.ended {
		core.LogError("render encoder: %s after EndEncoding; command skipped", op)
		return true
	}
	return false
}

func (e *VulkanRenderCommandEncoder) BindRenderPipelineState(p renderer.RenderPipeline) {
	if e.invalid("BindRenderPipelineState") {
		return
	}
	pipeline, ok := p.(*VulkanRenderPipeline)
	if !ok || pipeline == nil {
		core.LogError("render encoder: pipeline does not belong to this backend; command skipped")
		return
	}
	e.pipeline = pipeline
	vk.CmdBindPipeline(e.cmdBuf, vk.PipelineBindPointGraphics, pipeline.pipeline.Handle)
}

func (e *VulkanRenderCommandEncoder) BindViewport(v metadata.Viewport) {
	if e.invalid("BindViewport") {
		return
	}
	viewport := vk.Viewport{
		X:        v.X,
		Y:        v.Y,
		Width:    v.Width,
		Height:   v.Height,
		MinDepth: v.MinDepth,
		MaxDepth: v.MaxDepth,
	}
	vk.CmdSetViewport(e.cmdBuf, 0, 1, []vk.Viewport{viewport})
}

func (e *VulkanRenderCommandEncoder) BindScissorRect(r metadata.ScissorRect) {
	if e.invalid("BindScissorRect") {
		return
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: r.X, Y: r.Y},
		Extent: vk.Extent2D{Width: r.Width, Height: r.Height},
	}
	vk.CmdSetScissor(e.cmdBuf, 0, 1, []vk.Rect2D{scissor})
}

func (e *VulkanRenderCommandEncoder) BindVertexBuffer(index uint32, b renderer.Buffer, offset uint64) {
	if e.invalid("BindVertexBuffer") {
		return
	}
	buffer, ok := b.(*VulkanBufferResource)
	if !ok || buffer == nil {
		core.LogError("render encoder: vertex buffer is missing; command skipped")
		return
	}
	vk.CmdBindVertexBuffers(e.cmdBuf, index, 1, []vk.Buffer{buffer.buffer.Handle}, []vk.DeviceSize{vk.DeviceSize(offset)})
}

func (e *VulkanRenderCommandEncoder) BindIndexBuffer(b renderer.Buffer, format metadata.IndexFormat, offset uint64) {
	if e.invalid("BindIndexBuffer") {
		return
	}
	buffer, ok := b.(*VulkanBufferResource)
	if !ok || buffer == nil {
		core.LogError("render encoder: index buffer is missing; command skipped")
		return
	}
	indexType := vk.IndexTypeUint16
	if format == metadata.IndexFormatUInt32 {
		indexType = vk.IndexTypeUint32
	}
	vk.CmdBindIndexBuffer(e.cmdBuf, buffer.buffer.Handle, vk.DeviceSize(offset), indexType)
}

func (e *VulkanRenderCommandEncoder) BindBuffer(index uint32, b renderer.Buffer, offset, size uint64) {
	if e.invalid("BindBuffer") {
		return
	}
	if index >= VULKAN_MAX_BUFFER_BINDINGS {
		core.LogError("render encoder: buffer slot %d out of range; command skipped", index)
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

func (e *VulkanRenderCommandEncoder) BindTexture(index uint32, t renderer.Texture) {
	if e.invalid("BindTexture") {
		return
	}
	if index >= VULKAN_MAX_TEXTURE_BINDINGS {
		core.LogError("render encoder: texture slot %d out of range; command skipped", index)
		return
	}
	texture, _ := t.(*VulkanTexture)
	e.textures[index] = texture
	e.texturesDirty = true
}

func (e *VulkanRenderCommandEncoder) BindSamplerState(index uint32, s renderer.SamplerState) {
	if e.invalid("BindSamplerState") {
		return
	}
	if index >= VULKAN_MAX_TEXTURE_BINDINGS {
		core.LogError("render encoder: sampler slot %d out of range; command skipped", index)
		return
	}
	sampler, _ := s.(*VulkanSamplerState)
	e.samplers[index] = sampler
	e.texturesDirty = true
}

// flushBindings materializes the dirty binding state into descriptor sets
// allocated from the current frame's pool.
func (e *VulkanRenderCommandEncoder) flushBindings() {
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
			vk.CmdBindDescriptorSets(e.cmdBuf, vk.PipelineBindPointGraphics, vr.layouts.PipelineLayout,
				descriptorSetUniformBuffers, 1, []vk.DescriptorSet{set}, 0, nil)
		}
		e.uniformsDirty = false
	}

	if e.texturesDirty {
		set, err := allocator.Allocate(vr.layouts.Textures)
		if err == nil {
			writes := make([]vk.WriteDescriptorSet, 0, VULKAN_MAX_TEXTURE_BINDINGS)
			for slot, texture := range e.textures {
				if texture == nil {
					continue
				}
				sampler := vr.defaultSampler
				if e.samplers[slot] != nil {
					sampler = e.samplers[slot]
				}
				writes = append(writes, vk.WriteDescriptorSet{
					SType:           vk.StructureTypeWriteDescriptorSet,
					DstSet:          set,
					DstBinding:      uint32(slot),
					DescriptorCount: 1,
					DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
					PImageInfo: []vk.DescriptorImageInfo{{
						Sampler:     sampler.Handle,
						ImageView:   texture.image.View,
						ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
					}},
				})
			}
			if len(writes) > 0 {
				vk.UpdateDescriptorSets(vr.context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
			}
			vk.CmdBindDescriptorSets(e.cmdBuf, vk.PipelineBindPointGraphics, vr.layouts.PipelineLayout,
				descriptorSetTextures, 1, []vk.DescriptorSet{set}, 0, nil)
		}
		e.texturesDirty = false
	}
}

func (e *VulkanRenderCommandEncoder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	if e.invalid("Draw") {
		return
	}
	if e.pipeline == nil {
		core.LogError("render encoder: Draw without a bound pipeline; command skipped")
		return
	}
	e.flushBindings()
	vk.CmdDraw(e.cmdBuf, vertexCount, instanceCount, firstVertex, firstInstance)
}

func (e *VulkanRenderCommandEncoder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	if e.invalid("DrawIndexed") {
		return
	}
	if e.pipeline == nil {
		core.LogError("render encoder: DrawIndexed without a bound pipeline; command skipped")
		return
	}
	e.flushBindings()
	vk.CmdDrawIndexed(e.cmdBuf, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}

func (e *VulkanRenderCommandEncoder) EndEncoding() {
	if e.ended {
		core.LogError("render encoder: EndEncoding called twice; command skipped")
		return
	}
	e.pass.End(e.cmdBuf)
	e.ended = true
	e.cb.encoding = false
}
