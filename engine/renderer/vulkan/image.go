package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/igloo-gfx/igloo/engine/core"
)

// VulkanImage owns a native image resource and tracks its current layout.
// Every layout change goes through TransitionLayout, which deduces the
// access masks from the pipeline stages and records exactly one barrier.
type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView

	Width     uint32
	Height    uint32
	Depth     uint32
	Format    vk.Format
	NumMips   uint32
	NumLayers uint32

	// Layout is the single authoritative GPU-visible layout. It must match
	// reality at the point any subsequent command is recorded.
	Layout vk.ImageLayout

	// IsExternal marks images whose memory is owned elsewhere (swapchain
	// images). They are wrapped, not allocated, and never freed here.
	IsExternal bool

	DebugName string
}

// doNotRequireAccessMask lists the pseudo-stages that carry no memory
// accesses of their own.
const doNotRequireAccessMask = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit) |
	vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit) |
	vk.PipelineStageFlags(vk.PipelineStageAllGraphicsBit) |
	vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)

// srcAccessMaskForStages deduces the source access mask for a barrier purely
// from the source stage mask. The second return value reports whether every
// stage bit was recognized; an unrecognized bit means the mapping table needs
// extending and the caller must treat the transition as a programming error.
func srcAccessMaskForStages(stageMask vk.PipelineStageFlags) (vk.AccessFlags, bool) {
	var access vk.AccessFlags
	remaining := stageMask &^ doNotRequireAccessMask

	if stageMask&vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit) != 0 {
		access |= vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit)
		remaining &^= vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit)
	}
	if stageMask&vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit) != 0 {
		access |= vk.AccessFlags(vk.AccessColorAttachmentWriteBit)
		remaining &^= vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	}
	if stageMask&vk.PipelineStageFlags(vk.PipelineStageTransferBit) != 0 {
		access |= vk.AccessFlags(vk.AccessTransferWriteBit)
		remaining &^= vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	}
	if stageMask&vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit) != 0 {
		access |= vk.AccessFlags(vk.AccessShaderReadBit) | vk.AccessFlags(vk.AccessShaderWriteBit)
		remaining &^= vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit)
	}
	if stageMask&vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit) != 0 {
		access |= vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit) | vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit)
		remaining &^= vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit)
	}
	if stageMask&vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit) != 0 {
		access |= vk.AccessFlags(vk.AccessShaderReadBit)
		remaining &^= vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	}

	return access, remaining == 0
}

// dstAccessMaskForStages is the destination-side counterpart of
// srcAccessMaskForStages.
func dstAccessMaskForStages(stageMask vk.PipelineStageFlags) (vk.AccessFlags, bool) {
	var access vk.AccessFlags
	remaining := stageMask &^ doNotRequireAccessMask

	if stageMask&vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit) != 0 {
		access |= vk.AccessFlags(vk.AccessShaderReadBit) | vk.AccessFlags(vk.AccessShaderWriteBit)
		remaining &^= vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit)
	}
	if stageMask&vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit) != 0 {
		access |= vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit)
		remaining &^= vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit)
	}
	if stageMask&vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit) != 0 {
		access |= vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit) | vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit)
		remaining &^= vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit)
	}
	if stageMask&vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit) != 0 {
		access |= vk.AccessFlags(vk.AccessShaderReadBit)
		remaining &^= vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	}
	if stageMask&vk.PipelineStageFlags(vk.PipelineStageVertexShaderBit) != 0 {
		access |= vk.AccessFlags(vk.AccessShaderReadBit)
		remaining &^= vk.PipelineStageFlags(vk.PipelineStageVertexShaderBit)
	}
	if stageMask&vk.PipelineStageFlags(vk.PipelineStageVertexInputBit) != 0 {
		access |= vk.AccessFlags(vk.AccessIndexReadBit) | vk.AccessFlags(vk.AccessVertexAttributeReadBit)
		remaining &^= vk.PipelineStageFlags(vk.PipelineStageVertexInputBit)
	}
	if stageMask&vk.PipelineStageFlags(vk.PipelineStageDrawIndirectBit) != 0 {
		access |= vk.AccessFlags(vk.AccessIndirectCommandReadBit)
		remaining &^= vk.PipelineStageFlags(vk.PipelineStageDrawIndirectBit)
	}
	if stageMask&vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit) != 0 {
		access |= vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit)
		remaining &^= vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	}
	if stageMask&vk.PipelineStageFlags(vk.PipelineStageTransferBit) != 0 {
		access |= vk.AccessFlags(vk.AccessTransferReadBit) | vk.AccessFlags(vk.AccessTransferWriteBit)
		remaining &^= vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	}

	return access, remaining == 0
}

// TransitionLayout records exactly one image memory barrier moving the image
// from its current layout to newLayout, covering subresourceRange. Access
// masks are deduced from the stage masks; if the image is still in the
// undefined layout there is nothing to synchronize against, so the source
// stage collapses to top-of-pipe. The tracked layout is updated only after
// the barrier has been recorded.
func (vi *VulkanImage) TransitionLayout(ft *FunctionTable, cmdBuf vk.CommandBuffer, newLayout vk.ImageLayout, srcStageMask, dstStageMask vk.PipelineStageFlags, subresourceRange vk.ImageSubresourceRange) {
	if vi.Layout == vk.ImageLayoutUndefined {
		// We do not need to wait for any previous operations in this case.
		srcStageMask = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
	}

	srcAccessMask, ok := srcAccessMaskForStages(srcStageMask)
	if !ok {
		core.LogError("automatic access mask deduction is not implemented for srcStageMask = %x", srcStageMask)
		return
	}
	dstAccessMask, ok := dstAccessMaskForStages(dstStageMask)
	if !ok {
		core.LogError("automatic access mask deduction is not implemented for dstStageMask = %x", dstStageMask)
		return
	}

	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       srcAccessMask,
		DstAccessMask:       dstAccessMask,
		OldLayout:           vi.Layout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               vi.Handle,
		SubresourceRange:    subresourceRange,
	}

	ft.CmdPipelineBarrier(cmdBuf, srcStageMask, dstStageMask, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})

	vi.Layout = newLayout
}

// FullRange returns a subresource range spanning every mip and layer of the
// image for the given aspect.
func (vi *VulkanImage) FullRange(aspectMask vk.ImageAspectFlags) vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask:     aspectMask,
		BaseMipLevel:   0,
		LevelCount:     vi.NumMips,
		BaseArrayLayer: 0,
		LayerCount:     vi.NumLayers,
	}
}

// ImageCreate allocates an image, binds device memory and optionally creates
// a 2D view for it.
func ImageCreate(context *VulkanContext, imageType vk.ImageType, width, height, depth uint32, format vk.Format,
	tiling vk.ImageTiling, usage vk.ImageUsageFlags, memoryFlags vk.MemoryPropertyFlags, numMips uint32,
	createView bool, viewAspect vk.ImageAspectFlags, debugName string) (*VulkanImage, error) {

	image := &VulkanImage{
		Width:     width,
		Height:    height,
		Depth:     depth,
		Format:    format,
		NumMips:   numMips,
		NumLayers: 1,
		Layout:    vk.ImageLayoutUndefined,
		DebugName: core.DebugName("image", debugName),
	}

	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: imageType,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  depth,
		},
		MipLevels:     numMips,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        tiling,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         usage,
		Samples:       vk.SampleCount1Bit,
		SharingMode:   vk.SharingModeExclusive,
	}

	var pImage vk.Image
	if res := vk.CreateImage(context.Device.LogicalDevice, &imageCreateInfo, context.Allocator, &pImage); res != vk.Success {
		err := fmt.Errorf("failed to create image `%s`: %s", image.DebugName, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	image.Handle = pImage

	var memoryRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(context.Device.LogicalDevice, image.Handle, &memoryRequirements)
	memoryRequirements.Deref()

	memoryType := context.FindMemoryIndex(memoryRequirements.MemoryTypeBits, uint32(memoryFlags))
	if memoryType == -1 {
		err := fmt.Errorf("required memory type not found; image `%s` not valid", image.DebugName)
		core.LogError(err.Error())
		return nil, err
	}

	memoryAllocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: uint32(memoryType),
	}
	var pMemory vk.DeviceMemory
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &memoryAllocateInfo, context.Allocator, &pMemory); res != vk.Success {
		err := fmt.Errorf("failed to allocate memory for image `%s`: %s", image.DebugName, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	image.Memory = pMemory

	if res := vk.BindImageMemory(context.Device.LogicalDevice, image.Handle, image.Memory, 0); res != vk.Success {
		err := fmt.Errorf("failed to bind memory for image `%s`: %s", image.DebugName, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	if createView {
		if err := image.ViewCreate(context, viewAspect); err != nil {
			return nil, err
		}
	}

	return image, nil
}

// WrapExternalImage wraps an image whose memory is owned elsewhere, such as
// a swapchain image.
func WrapExternalImage(handle vk.Image, view vk.ImageView, width, height uint32, format vk.Format) *VulkanImage {
	return &VulkanImage{
		Handle:     handle,
		View:       view,
		Width:      width,
		Height:     height,
		Depth:      1,
		Format:     format,
		NumMips:    1,
		NumLayers:  1,
		Layout:     vk.ImageLayoutUndefined,
		IsExternal: true,
		DebugName:  core.DebugName("swapchain-image", ""),
	}
}

func (vi *VulkanImage) ViewCreate(context *VulkanContext, aspectMask vk.ImageAspectFlags) error {
	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:            vk.StructureTypeImageViewCreateInfo,
		Image:            vi.Handle,
		ViewType:         vk.ImageViewType2d,
		Format:           vi.Format,
		SubresourceRange: vi.FullRange(aspectMask),
	}

	var pView vk.ImageView
	if res := vk.CreateImageView(context.Device.LogicalDevice, &viewCreateInfo, context.Allocator, &pView); res != vk.Success {
		err := fmt.Errorf("failed to create image view for `%s`: %s", vi.DebugName, VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	vi.View = pView
	return nil
}

// ImageDestroy releases the view, memory and image. External images only
// drop their view; the owning swapchain frees the image itself.
func (vi *VulkanImage) ImageDestroy(context *VulkanContext) {
	if vi.View != nil {
		vk.DestroyImageView(context.Device.LogicalDevice, vi.View, context.Allocator)
		vi.View = nil
	}
	if vi.IsExternal {
		vi.Handle = nil
		return
	}
	if vi.Memory != nil {
		vk.FreeMemory(context.Device.LogicalDevice, vi.Memory, context.Allocator)
		vi.Memory = nil
	}
	if vi.Handle != nil {
		vk.DestroyImage(context.Device.LogicalDevice, vi.Handle, context.Allocator)
		vi.Handle = nil
	}
}
