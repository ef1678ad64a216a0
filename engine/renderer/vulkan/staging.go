package vulkan

import (
	"fmt"
	"image"

	vk "github.com/goki/vulkan"
	"golang.org/x/image/draw"

	"github.com/igloo-gfx/igloo/engine/core"
	"github.com/igloo-gfx/igloo/engine/math"
)

// VulkanStagingDevice uploads host data into device-local resources. Every
// upload allocates a transient host-visible staging buffer, records the copy
// on an immediate command buffer and defers the staging buffer destruction
// until the copy has completed on the GPU.
type VulkanStagingDevice struct {
	context    *VulkanContext
	destructor *DeferredDestructor
}

func NewVulkanStagingDevice(context *VulkanContext, destructor *DeferredDestructor) *VulkanStagingDevice {
	return &VulkanStagingDevice{
		context:    context,
		destructor: destructor,
	}
}

// UploadBuffer copies data into dst at dstOffset through a staging buffer.
func (sd *VulkanStagingDevice) UploadBuffer(dst *VulkanBuffer, dstOffset vk.DeviceSize, data []byte) (SubmitHandle, error) {
	if len(data) == 0 {
		return SubmitHandle{}, nil
	}
	if dstOffset+vk.DeviceSize(len(data)) > dst.TotalSize {
		return SubmitHandle{}, fmt.Errorf("upload of %d bytes at offset %d overflows buffer `%s`", len(data), dstOffset, dst.DebugName)
	}

	// host-visible destinations can be written directly
	if dst.Mapped != nil {
		return sd.context.ImmediateCommands.LastSubmitHandle(), dst.WriteAt(data, dstOffset)
	}

	staging, err := BufferCreate(
		sd.context,
		vk.DeviceSize(len(data)),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit),
		"staging")
	if err != nil {
		return SubmitHandle{}, err
	}
	if err := staging.WriteAt(data, 0); err != nil {
		staging.Destroy(sd.context)
		return SubmitHandle{}, err
	}

	wrapper := sd.context.ImmediateCommands.Acquire()
	staging.CopyTo(wrapper.CmdBuf, dst, 0, dstOffset, vk.DeviceSize(len(data)))
	handle := sd.context.ImmediateCommands.Submit(wrapper)

	sd.destructor.Defer(handle, func() { staging.Destroy(sd.context) })
	return handle, nil
}

// UploadImage copies tightly packed pixel data into a region of one mip
// level of the image, transitioning it to shader-read layout afterwards.
func (sd *VulkanStagingDevice) UploadImage(dst *VulkanImage, mipLevel, x, y, width, height uint32, data []byte) (SubmitHandle, error) {
	staging, err := BufferCreate(
		sd.context,
		vk.DeviceSize(len(data)),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit),
		"staging")
	if err != nil {
		return SubmitHandle{}, err
	}
	if err := staging.WriteAt(data, 0); err != nil {
		staging.Destroy(sd.context)
		return SubmitHandle{}, err
	}

	wrapper := sd.context.ImmediateCommands.Acquire()

	levelRange := vk.ImageSubresourceRange{
		AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
		BaseMipLevel:   mipLevel,
		LevelCount:     1,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}

	dst.TransitionLayout(sd.context.Functions, wrapper.CmdBuf,
		vk.ImageLayoutTransferDstOptimal,
		vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		levelRange)

	region := vk.BufferImageCopy{
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:   mipLevel,
			LayerCount: 1,
		},
		ImageOffset: vk.Offset3D{X: int32(x), Y: int32(y)},
		ImageExtent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
	}
	vk.CmdCopyBufferToImage(wrapper.CmdBuf, staging.Handle, dst.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})

	dst.TransitionLayout(sd.context.Functions, wrapper.CmdBuf,
		vk.ImageLayoutShaderReadOnlyOptimal,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		levelRange)

	handle := sd.context.ImmediateCommands.Submit(wrapper)
	sd.destructor.Defer(handle, func() { staging.Destroy(sd.context) })
	return handle, nil
}

// GenerateMipChain downscales base RGBA pixels level by level and returns
// one byte slice per mip level, including the base.
func GenerateMipChain(pixels []byte, width, height, numMips uint32) ([][]byte, error) {
	if uint32(len(pixels)) < width*height*4 {
		return nil, fmt.Errorf("expected %d bytes of RGBA data, got %d", width*height*4, len(pixels))
	}

	levels := make([][]byte, 0, numMips)
	levels = append(levels, pixels[:width*height*4])

	src := &image.RGBA{
		Pix:    levels[0],
		Stride: int(width) * 4,
		Rect:   image.Rect(0, 0, int(width), int(height)),
	}

	for mip := uint32(1); mip < numMips; mip++ {
		mipWidth := int(math.MipDimension(width, mip))
		mipHeight := int(math.MipDimension(height, mip))

		dst := image.NewRGBA(image.Rect(0, 0, mipWidth, mipHeight))
		draw.CatmullRom.Scale(dst, dst.Rect, src, src.Rect, draw.Src, nil)

		levels = append(levels, dst.Pix)
		src = dst
	}

	return levels, nil
}

// UploadImageWithMips uploads the base level and a CPU-generated mip chain.
func (sd *VulkanStagingDevice) UploadImageWithMips(dst *VulkanImage, pixels []byte) (SubmitHandle, error) {
	levels, err := GenerateMipChain(pixels, dst.Width, dst.Height, dst.NumMips)
	if err != nil {
		core.LogError(err.Error())
		return SubmitHandle{}, err
	}

	var handle SubmitHandle
	for mip, level := range levels {
		mipWidth := math.MipDimension(dst.Width, uint32(mip))
		mipHeight := math.MipDimension(dst.Height, uint32(mip))
		handle, err = sd.UploadImage(dst, uint32(mip), 0, 0, mipWidth, mipHeight, level)
		if err != nil {
			return handle, err
		}
	}
	return handle, nil
}
