package vulkan

import (
	"fmt"
	stdmath "math"

	vk "github.com/goki/vulkan"

	"github.com/igloo-gfx/igloo/engine/core"
	"github.com/igloo-gfx/igloo/engine/math"
)

type VulkanSwapchain struct {
	ImageFormat       vk.SurfaceFormat
	MaxFramesInFlight uint8
	Handle            vk.Swapchain
	ImageCount        uint32

	// one wrapped image per swapchain image, with layout tracking
	Images []*VulkanImage

	DepthAttachment *VulkanImage

	// semaphores signaled by the presentation engine when an image becomes
	// available, one per frame in flight
	ImageAvailableSemaphores []vk.Semaphore
}

type VulkanSwapchainSupportInfo struct {
	Capabilities     vk.SurfaceCapabilities
	FormatCount      uint32
	Formats          []vk.SurfaceFormat
	PresentModeCount uint32
	PresentModes     []vk.PresentMode
}

func SwapchainCreate(context *VulkanContext, width, height uint32, maxFramesInFlight uint8, vsync bool) (*VulkanSwapchain, error) {
	return createSwapchain(context, width, height, maxFramesInFlight, vsync)
}

func (vs *VulkanSwapchain) SwapchainRecreate(context *VulkanContext, width, height uint32, vsync bool) (*VulkanSwapchain, error) {
	vs.destroySwapchain(context)
	return createSwapchain(context, width, height, vs.MaxFramesInFlight, vsync)
}

func (vs *VulkanSwapchain) SwapchainDestroy(context *VulkanContext) {
	vs.destroySwapchain(context)
}

// SwapchainAcquireNextImageIndex acquires the next presentable image. It
// returns core.ErrSwapchainOutOfDate when the swapchain must be recreated
// before rendering can continue.
func (vs *VulkanSwapchain) SwapchainAcquireNextImageIndex(context *VulkanContext, timeoutNS uint64, imageAvailableSemaphore vk.Semaphore, fence vk.Fence) (uint32, error) {
	var imageIndex uint32
	result := vk.AcquireNextImage(context.Device.LogicalDevice, vs.Handle, timeoutNS, imageAvailableSemaphore, fence, &imageIndex)

	if result == vk.ErrorOutOfDate {
		return 0, core.ErrSwapchainOutOfDate
	}
	if result != vk.Success && result != vk.Suboptimal {
		err := fmt.Errorf("failed to acquire swapchain image: %s", VulkanResultString(result))
		core.LogError(err.Error())
		return 0, err
	}

	return imageIndex, nil
}

// SwapchainPresent returns the image to the presentation engine. The caller
// passes the semaphore signaled by the last rendering submission.
func (vs *VulkanSwapchain) SwapchainPresent(context *VulkanContext, presentQueue vk.Queue, renderCompleteSemaphore vk.Semaphore, presentImageIndex uint32) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderCompleteSemaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{presentImageIndex},
	}

	result := vk.QueuePresent(presentQueue, &presentInfo)

	// the image has been handed over; its layout is whatever the present
	// engine leaves behind
	vs.Images[presentImageIndex].Layout = vk.ImageLayoutUndefined

	context.CurrentFrame = (context.CurrentFrame + 1) % uint32(vs.MaxFramesInFlight)

	if result == vk.ErrorOutOfDate || result == vk.Suboptimal {
		return core.ErrSwapchainOutOfDate
	}
	if result != vk.Success {
		err := fmt.Errorf("failed to present swapchain image: %s", VulkanResultString(result))
		core.LogError(err.Error())
		return err
	}
	return nil
}

func createSwapchain(context *VulkanContext, width, height uint32, maxFramesInFlight uint8, vsync bool) (*VulkanSwapchain, error) {
	swapchain := &VulkanSwapchain{
		MaxFramesInFlight: maxFramesInFlight,
	}

	swapchainExtent := vk.Extent2D{
		Width:  width,
		Height: height,
	}

	// Choose a swap surface format.
	found := false
	for i := 0; i < int(context.Device.SwapchainSupport.FormatCount); i++ {
		format := context.Device.SwapchainSupport.Formats[i]
		format.Deref()
		if format.Format == vk.FormatB8g8r8a8Unorm &&
			format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			swapchain.ImageFormat = format
			found = true
			break
		}
	}
	if !found {
		swapchain.ImageFormat = context.Device.SwapchainSupport.Formats[0]
		swapchain.ImageFormat.Deref()
	}

	presentMode := vk.PresentModeFifo
	if !vsync {
		for i := 0; i < int(context.Device.SwapchainSupport.PresentModeCount); i++ {
			if context.Device.SwapchainSupport.PresentModes[i] == vk.PresentModeMailbox {
				presentMode = vk.PresentModeMailbox
				break
			}
		}
	}

	capabilities := context.Device.SwapchainSupport.Capabilities
	if capabilities.CurrentExtent.Width != stdmath.MaxUint32 {
		swapchainExtent = capabilities.CurrentExtent
	}

	// Clamp to the range allowed by the GPU.
	swapchainExtent.Width = math.Clamp(swapchainExtent.Width, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width)
	swapchainExtent.Height = math.Clamp(swapchainExtent.Height, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height)

	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && imageCount > capabilities.MaxImageCount {
		imageCount = capabilities.MaxImageCount
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      swapchain.ImageFormat.Format,
		ImageColorSpace:  swapchain.ImageFormat.ColorSpace,
		ImageExtent:      swapchainExtent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit) | vk.ImageUsageFlags(vk.ImageUsageTransferDstBit),
		PreTransform:     capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
	}

	if context.Device.GraphicsQueueIndex != context.Device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			uint32(context.Device.GraphicsQueueIndex),
			uint32(context.Device.PresentQueueIndex),
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var swapchainHandle vk.Swapchain
	if res := vk.CreateSwapchain(context.Device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &swapchainHandle); res != vk.Success {
		err := fmt.Errorf("failed to create swapchain: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	swapchain.Handle = swapchainHandle

	context.CurrentFrame = 0

	swapchain.ImageCount = 0
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, nil); res != vk.Success {
		err := fmt.Errorf("failed to get swapchain images: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	images := make([]vk.Image, swapchain.ImageCount)
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, images); res != vk.Success {
		err := fmt.Errorf("failed to get swapchain images: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	swapchain.Images = make([]*VulkanImage, swapchain.ImageCount)
	for i := 0; i < int(swapchain.ImageCount); i++ {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    images[i],
			ViewType: vk.ImageViewType2d,
			Format:   swapchain.ImageFormat.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}

		var view vk.ImageView
		if res := vk.CreateImageView(context.Device.LogicalDevice, &viewInfo, context.Allocator, &view); res != vk.Success {
			err := fmt.Errorf("failed to create swapchain image view: %s", VulkanResultString(res))
			core.LogError(err.Error())
			return nil, err
		}

		swapchain.Images[i] = WrapExternalImage(images[i], view, swapchainExtent.Width, swapchainExtent.Height, swapchain.ImageFormat.Format)
	}

	// Depth resources
	if !DeviceDetectDepthFormat(context.Device) {
		context.Device.DepthFormat = vk.FormatUndefined
		err := fmt.Errorf("failed to find a supported depth format")
		core.LogError(err.Error())
		return nil, err
	}

	depthAttachment, err := ImageCreate(
		context,
		vk.ImageType2d,
		swapchainExtent.Width,
		swapchainExtent.Height,
		1,
		context.Device.DepthFormat,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		1,
		true,
		vk.ImageAspectFlags(vk.ImageAspectDepthBit),
		"swapchain-depth")
	if err != nil {
		return nil, err
	}
	swapchain.DepthAttachment = depthAttachment

	swapchain.ImageAvailableSemaphores = make([]vk.Semaphore, maxFramesInFlight)
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	for i := range swapchain.ImageAvailableSemaphores {
		if res := context.Functions.CreateSemaphore(context.Device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &swapchain.ImageAvailableSemaphores[i]); res != vk.Success {
			err := fmt.Errorf("failed to create swapchain semaphore: %s", VulkanResultString(res))
			core.LogError(err.Error())
			return nil, err
		}
	}

	core.LogInfo("Swapchain created successfully.")

	return swapchain, nil
}

func (vs *VulkanSwapchain) destroySwapchain(context *VulkanContext) {
	vk.DeviceWaitIdle(context.Device.LogicalDevice)

	for _, semaphore := range vs.ImageAvailableSemaphores {
		context.Functions.DestroySemaphore(context.Device.LogicalDevice, semaphore, context.Allocator)
	}
	vs.ImageAvailableSemaphores = nil

	if vs.DepthAttachment != nil {
		vs.DepthAttachment.ImageDestroy(context)
		vs.DepthAttachment = nil
	}

	// Only destroy the views; the images are owned by the swapchain and go
	// away with it.
	for _, image := range vs.Images {
		image.ImageDestroy(context)
	}
	vs.Images = nil

	vk.DestroySwapchain(context.Device.LogicalDevice, vs.Handle, context.Allocator)
	vs.Handle = nil
}
