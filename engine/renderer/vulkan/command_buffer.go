package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/igloo-gfx/igloo/engine/core"
	"github.com/igloo-gfx/igloo/engine/renderer"
	"github.com/igloo-gfx/igloo/engine/renderer/metadata"
)

// VulkanBufferResource implements renderer.Buffer.
type VulkanBufferResource struct {
	renderer *VulkanRenderer
	buffer   *VulkanBuffer
}

func (b *VulkanBufferResource) Size() uint64 {
	return uint64(b.buffer.TotalSize)
}

func (b *VulkanBufferResource) Native() *VulkanBuffer {
	return b.buffer
}

func (b *VulkanBufferResource) Upload(data []byte, offset uint64) core.Result {
	if offset+uint64(len(data)) > uint64(b.buffer.TotalSize) {
		return core.NewResult(core.ArgumentOutOfRange, "upload of %d bytes at offset %d overflows buffer of size %d", len(data), offset, b.buffer.TotalSize)
	}
	if _, err := b.renderer.staging.UploadBuffer(b.buffer, vk.DeviceSize(offset), data); err != nil {
		return core.NewResult(core.RuntimeError, "buffer upload failed: %v", err)
	}
	return core.ResultOk()
}

// VulkanFramebuffer implements renderer.Framebuffer. It is a value object:
// the native framebuffer is resolved through the cache when a render pass
// starts, keyed by the attachment views.
type VulkanFramebuffer struct {
	desc   renderer.FramebufferDesc
	width  uint32
	height uint32

	colorImages []*VulkanImage
	depthImage  *VulkanImage
}

func newVulkanFramebuffer(desc renderer.FramebufferDesc) (*VulkanFramebuffer, core.Result) {
	fb := &VulkanFramebuffer{desc: desc}

	for i, attachment := range desc.ColorAttachments {
		texture, ok := attachment.Texture.(*VulkanTexture)
		if !ok || texture == nil {
			return nil, core.NewResult(core.ArgumentNull, "framebuffer color attachment %d is missing", i)
		}
		fb.colorImages = append(fb.colorImages, texture.Image())
	}
	if len(fb.colorImages) == 0 {
		return nil, core.NewResult(core.ArgumentInvalid, "framebuffer has no color attachments")
	}

	if depth, ok := desc.DepthAttachment.Texture.(*VulkanTexture); ok && depth != nil {
		fb.depthImage = depth.Image()
	}

	fb.width = fb.colorImages[0].Width
	fb.height = fb.colorImages[0].Height
	for i, image := range fb.colorImages {
		if image.Width != fb.width || image.Height != fb.height {
			return nil, core.NewResult(core.ArgumentInvalid, "color attachment %d is %dx%d, expected %dx%d", i, image.Width, image.Height, fb.width, fb.height)
		}
	}
	if fb.depthImage != nil && (fb.depthImage.Width != fb.width || fb.depthImage.Height != fb.height) {
		return nil, core.NewResult(core.ArgumentInvalid, "depth attachment is %dx%d, expected %dx%d", fb.depthImage.Width, fb.depthImage.Height, fb.width, fb.height)
	}

	return fb, core.ResultOk()
}

func (fb *VulkanFramebuffer) Width() uint32  { return fb.width }
func (fb *VulkanFramebuffer) Height() uint32 { return fb.height }

// attachments returns the ordered attachment list: colors in index order,
// then depth.
func (fb *VulkanFramebuffer) attachments() []*VulkanImage {
	images := make([]*VulkanImage, 0, len(fb.colorImages)+1)
	images = append(images, fb.colorImages...)
	if fb.depthImage != nil {
		images = append(images, fb.depthImage)
	}
	return images
}

// VulkanCommandQueue implements renderer.CommandQueue over the immediate
// command pool.
type VulkanCommandQueue struct {
	renderer  *VulkanRenderer
	queueType metadata.CommandQueueType
}

func (q *VulkanCommandQueue) CreateCommandBuffer() (renderer.CommandBuffer, core.Result) {
	wrapper := q.renderer.context.ImmediateCommands.Acquire()
	return &VulkanCommandBuffer{renderer: q.renderer, wrapper: wrapper}, core.ResultOk()
}

// Submit sends the command buffer to the GPU. With present=true the
// swapchain image acquired by the current frame is transitioned for
// presentation and handed to the presentation engine; ordering against the
// rendering submission comes from the pool's semaphore chaining.
func (q *VulkanCommandQueue) Submit(cb renderer.CommandBuffer, present bool) core.Result {
	vcb, ok := cb.(*VulkanCommandBuffer)
	if !ok || vcb == nil {
		return core.NewResult(core.ArgumentNull, "command buffer is missing")
	}
	if vcb.submitted {
		return core.NewResult(core.InvalidOperation, "command buffer was already submitted")
	}

	context := q.renderer.context

	if present {
		swapImage := context.Swapchain.Images[context.ImageIndex]
		swapImage.TransitionLayout(
			context.Functions,
			vcb.wrapper.CmdBuf,
			vk.ImageLayoutPresentSrc,
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
			swapImage.FullRange(vk.ImageAspectFlags(vk.ImageAspectColorBit)))
	}

	handle := context.ImmediateCommands.Submit(vcb.wrapper)
	vcb.submitted = true
	q.renderer.frameHandles[context.CurrentFrame] = handle

	if present {
		err := context.Swapchain.SwapchainPresent(
			context,
			context.Device.PresentQueue,
			context.ImmediateCommands.AcquireLastSubmitSemaphore(),
			context.ImageIndex)
		if err == core.ErrSwapchainOutOfDate {
			context.FramebufferSizeGeneration++
		} else if err != nil {
			return core.NewResult(core.RuntimeError, "present failed: %v", err)
		}
	}

	q.renderer.destructor.Process()
	return core.ResultOk()
}

// VulkanCommandBuffer implements renderer.CommandBuffer. It wraps one
// acquired slot of the immediate pool; encoders record into it.
type VulkanCommandBuffer struct {
	renderer  *VulkanRenderer
	wrapper   *CommandBufferWrapper
	encoding  bool
	submitted bool
}

func (cb *VulkanCommandBuffer) CreateRenderCommandEncoder(pass metadata.RenderPassDesc, fb renderer.Framebuffer) (renderer.RenderCommandEncoder, core.Result) {
	if cb.submitted {
		return nil, core.NewResult(core.InvalidOperation, "command buffer was already submitted")
	}
	if cb.encoding {
		return nil, core.NewResult(core.InvalidOperation, "another encoder is still active on this command buffer")
	}
	return newRenderCommandEncoder(cb, pass, fb)
}

func (cb *VulkanCommandBuffer) CreateComputeCommandEncoder() (renderer.ComputeCommandEncoder, core.Result) {
	if cb.submitted {
		return nil, core.NewResult(core.InvalidOperation, "command buffer was already submitted")
	}
	if cb.encoding {
		return nil, core.NewResult(core.InvalidOperation, "another encoder is still active on this command buffer")
	}
	cb.encoding = true
	return newComputeCommandEncoder(cb), core.ResultOk()
}
