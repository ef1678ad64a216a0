package vulkan

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/igloo-gfx/igloo/engine/config"
	"github.com/igloo-gfx/igloo/engine/core"
	"github.com/igloo-gfx/igloo/engine/platform"
	"github.com/igloo-gfx/igloo/engine/renderer"
	"github.com/igloo-gfx/igloo/engine/renderer/metadata"
)

// VulkanRenderer implements renderer.Device on Vulkan. It owns the context,
// the swapchain, the immediate command pool and all caches; every resource
// handed out by the factory methods stays tied to it.
type VulkanRenderer struct {
	platform *platform.Platform
	config   *config.RendererConfig
	context  *VulkanContext

	layouts              *VulkanDescriptorLayouts
	descriptorAllocators []*VulkanDescriptorAllocator
	destructor           *DeferredDestructor
	staging              *VulkanStagingDevice
	framebuffers         *FramebufferCache
	renderPasses         map[string]*VulkanRenderPass
	defaultSampler       *VulkanSamplerState

	// last submission of each frame in flight, used to recycle per-frame
	// descriptor pools safely
	frameHandles []SubmitHandle

	cachedFramebufferWidth  uint32
	cachedFramebufferHeight uint32

	FrameNumber uint64
	debug       bool
}

func New(p *platform.Platform, cfg *config.RendererConfig) *VulkanRenderer {
	return &VulkanRenderer{
		platform: p,
		config:   cfg,
		context: &VulkanContext{
			Functions: DefaultFunctionTable(),
		},
		renderPasses: make(map[string]*VulkanRenderPass),
		debug:        cfg.Validation,
	}
}

func (vr *VulkanRenderer) Initialize() error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		err := fmt.Errorf("vulkan loader entry point not found")
		core.LogError(err.Error())
		return err
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vulkan: %s", err)
		return err
	}

	vr.context.FramebufferWidth = vr.config.Width
	vr.context.FramebufferHeight = vr.config.Height

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 2, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(vr.config.AppName),
		PEngineName:        VulkanSafeString("Igloo"),
	}

	requiredExtensions := []string{vk.KhrSurfaceExtensionName}
	requiredExtensions = append(requiredExtensions, vr.platform.GetRequiredExtensionNames()...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
	}

	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(requiredExtensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(requiredExtensions),
	}
	if runtime.GOOS == "darwin" {
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	var validationLayers []string
	if vr.debug {
		validationLayers = []string{"VK_LAYER_KHRONOS_validation"}
		if err := verifyValidationLayers(validationLayers); err != nil {
			return err
		}
		createInfo.EnabledLayerCount = uint32(len(validationLayers))
		createInfo.PpEnabledLayerNames = VulkanSafeStrings(validationLayers)
	}

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, vr.context.Allocator, &instance); res != vk.Success {
		err := fmt.Errorf("failed to create vulkan instance: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	vr.context.Instance = instance

	if err := vk.InitInstance(instance); err != nil {
		core.LogError("failed to load instance entry points: %s", err)
		return err
	}

	surfacePtr, err := vr.platform.CreateVulkanSurface(instance)
	if err != nil {
		core.LogError("vulkan surface creation failed: %s", err)
		return err
	}
	vr.context.Surface = vk.SurfaceFromPointer(surfacePtr)

	vr.context.Device = &VulkanDevice{}
	if err := DeviceCreate(vr.context); err != nil {
		return err
	}

	vr.context.ImmediateCommands, err = NewVulkanImmediateCommands(
		vr.context.Functions,
		vr.context.Device.LogicalDevice,
		uint32(vr.context.Device.GraphicsQueueIndex),
		"graphics")
	if err != nil {
		return err
	}

	vr.destructor = NewDeferredDestructor(vr.context.ImmediateCommands)
	vr.staging = NewVulkanStagingDevice(vr.context, vr.destructor)
	vr.framebuffers = NewFramebufferCache(vr.context.Functions, vr.context.Device.LogicalDevice)

	vr.layouts, err = DescriptorLayoutsCreate(vr.context)
	if err != nil {
		return err
	}

	vr.context.Swapchain, err = SwapchainCreate(
		vr.context,
		vr.context.FramebufferWidth,
		vr.context.FramebufferHeight,
		vr.config.MaxFramesInFlight,
		vr.config.VSync)
	if err != nil {
		return err
	}

	vr.frameHandles = make([]SubmitHandle, vr.config.MaxFramesInFlight)
	vr.descriptorAllocators = make([]*VulkanDescriptorAllocator, vr.config.MaxFramesInFlight)
	for i := range vr.descriptorAllocators {
		vr.descriptorAllocators[i], err = NewVulkanDescriptorAllocator(vr.context, 256)
		if err != nil {
			return err
		}
	}

	vr.defaultSampler, err = samplerStateCreate(vr.context, metadata.SamplerStateDesc{
		MinFilter: metadata.SamplerFilterLinear,
		MagFilter: metadata.SamplerFilterLinear,
		MipFilter: metadata.SamplerFilterLinear,
		DebugName: "default",
	})
	if err != nil {
		return err
	}

	core.LogInfo("Vulkan renderer initialized.")
	return nil
}

func verifyValidationLayers(required []string) error {
	var availableCount uint32
	if res := vk.EnumerateInstanceLayerProperties(&availableCount, nil); res != vk.Success {
		return fmt.Errorf("failed to enumerate instance layers: %s", VulkanResultString(res))
	}
	available := make([]vk.LayerProperties, availableCount)
	if res := vk.EnumerateInstanceLayerProperties(&availableCount, available); res != vk.Success {
		return fmt.Errorf("failed to enumerate instance layers: %s", VulkanResultString(res))
	}

	for _, name := range required {
		found := false
		for i := range available {
			available[i].Deref()
			if name == vk.ToString(available[i].LayerName[:]) {
				found = true
				break
			}
		}
		if !found {
			err := fmt.Errorf("required validation layer is missing: %s", name)
			core.LogError(err.Error())
			return err
		}
	}
	return nil
}

// Resized records a new framebuffer size; the swapchain is recreated on the
// next BeginFrame.
func (vr *VulkanRenderer) Resized(width, height uint32) {
	vr.cachedFramebufferWidth = width
	vr.cachedFramebufferHeight = height
	vr.context.FramebufferSizeGeneration++
}

// BeginFrame acquires the next swapchain image and recycles per-frame
// resources. It returns core.ErrSwapchainOutOfDate when the caller should
// skip rendering this frame.
func (vr *VulkanRenderer) BeginFrame() error {
	context := vr.context

	if context.FramebufferSizeGeneration != context.FramebufferSizeLastGeneration {
		if err := vr.recreateSwapchain(); err != nil {
			return err
		}
	}

	// recycle everything tied to the frame slot we are about to reuse
	context.ImmediateCommands.Wait(vr.frameHandles[context.CurrentFrame], maxTimeout)
	vr.descriptorAllocators[context.CurrentFrame].Reset()
	vr.destructor.Process()

	imageIndex, err := context.Swapchain.SwapchainAcquireNextImageIndex(
		context,
		maxTimeout,
		context.Swapchain.ImageAvailableSemaphores[context.CurrentFrame],
		nil)
	if err != nil {
		if err == core.ErrSwapchainOutOfDate {
			context.FramebufferSizeGeneration++
		}
		return err
	}
	context.ImageIndex = imageIndex

	// the first submission of this frame waits for the acquired image
	context.ImmediateCommands.WaitSemaphore(context.Swapchain.ImageAvailableSemaphores[context.CurrentFrame])

	vr.FrameNumber++
	return nil
}

func (vr *VulkanRenderer) recreateSwapchain() error {
	context := vr.context

	if context.RecreatingSwapchain {
		return nil
	}
	context.RecreatingSwapchain = true
	defer func() { context.RecreatingSwapchain = false }()

	vk.DeviceWaitIdle(context.Device.LogicalDevice)

	if vr.cachedFramebufferWidth != 0 {
		context.FramebufferWidth = vr.cachedFramebufferWidth
		context.FramebufferHeight = vr.cachedFramebufferHeight
		vr.cachedFramebufferWidth = 0
		vr.cachedFramebufferHeight = 0
	}

	if err := DeviceQuerySwapchainSupport(context.Device.PhysicalDevice, context.Surface, &context.Device.SwapchainSupport); err != nil {
		return err
	}

	swapchain, err := context.Swapchain.SwapchainRecreate(context, context.FramebufferWidth, context.FramebufferHeight, vr.config.VSync)
	if err != nil {
		return err
	}
	context.Swapchain = swapchain

	// the old attachment views are gone; cached framebuffers with them too
	vr.framebuffers.Clear()

	context.FramebufferSizeLastGeneration = context.FramebufferSizeGeneration
	core.LogInfo("Swapchain recreated (%dx%d).", context.FramebufferWidth, context.FramebufferHeight)
	return nil
}

// CurrentSwapchainImage returns the image acquired by the last BeginFrame.
func (vr *VulkanRenderer) CurrentSwapchainImage() *VulkanImage {
	return vr.context.Swapchain.Images[vr.context.ImageIndex]
}

func (vr *VulkanRenderer) Context() *VulkanContext {
	return vr.context
}

func (vr *VulkanRenderer) BackendType() renderer.BackendType {
	return renderer.BackendTypeVulkan
}

func (vr *VulkanRenderer) WaitIdle() error {
	if res := vk.DeviceWaitIdle(vr.context.Device.LogicalDevice); res != vk.Success {
		return fmt.Errorf("device wait idle failed: %s", VulkanResultString(res))
	}
	vr.destructor.Flush()
	return nil
}

func (vr *VulkanRenderer) Shutdown() error {
	context := vr.context

	vk.DeviceWaitIdle(context.Device.LogicalDevice)
	vr.destructor.Flush()

	if vr.defaultSampler != nil {
		vk.DestroySampler(context.Device.LogicalDevice, vr.defaultSampler.Handle, context.Allocator)
		vr.defaultSampler = nil
	}
	for _, allocator := range vr.descriptorAllocators {
		allocator.Destroy()
	}
	vr.descriptorAllocators = nil

	for _, rp := range vr.renderPasses {
		rp.Destroy(context)
	}
	vr.renderPasses = make(map[string]*VulkanRenderPass)

	vr.framebuffers.Clear()
	vr.layouts.Destroy(context)
	context.Swapchain.SwapchainDestroy(context)
	context.ImmediateCommands.Destroy()

	if context.Surface != nil {
		vk.DestroySurface(context.Instance, context.Surface, context.Allocator)
		context.Surface = nil
	}

	DeviceDestroy(context)

	if context.Instance != nil {
		vk.DestroyInstance(context.Instance, context.Allocator)
		context.Instance = nil
	}

	core.LogInfo("Vulkan renderer shut down.")
	return nil
}

// --- renderer.Device factory methods ---

func (vr *VulkanRenderer) CreateBuffer(desc metadata.BufferDesc) (renderer.Buffer, core.Result) {
	if desc.Size == 0 {
		return nil, core.NewResult(core.ArgumentInvalid, "buffer size must be non-zero")
	}

	memoryFlags := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	if desc.Storage == metadata.BufferStorageHostVisible {
		memoryFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) | vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)
	}

	buffer, err := BufferCreate(vr.context, vk.DeviceSize(desc.Size), bufferUsageFlags(desc.Usage), memoryFlags, desc.DebugName)
	if err != nil {
		return nil, core.NewResult(core.RuntimeError, "buffer creation failed: %v", err)
	}

	resource := &VulkanBufferResource{renderer: vr, buffer: buffer}
	if len(desc.Data) > 0 {
		if result := resource.Upload(desc.Data, 0); !result.IsOk() {
			buffer.Destroy(vr.context)
			return nil, result
		}
	}
	return resource, core.ResultOk()
}

func (vr *VulkanRenderer) CreateTexture(desc metadata.TextureDesc) (renderer.Texture, core.Result) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, core.NewResult(core.ArgumentInvalid, "texture dimensions must be non-zero")
	}
	format := textureFormat(desc.Format)
	if format == vk.FormatUndefined {
		return nil, core.NewResult(core.ArgumentInvalid, "unsupported texture format %d", desc.Format)
	}

	if desc.Depth == 0 {
		desc.Depth = 1
	}
	if desc.NumLayers == 0 {
		desc.NumLayers = 1
	}
	if desc.NumMips == 0 {
		desc.NumMips = 1
		if desc.GenerateMipmaps {
			desc.NumMips = fullMipCount(desc.Width, desc.Height)
		}
	}

	imageType := vk.ImageType2d
	if desc.Type == metadata.TextureType3D {
		imageType = vk.ImageType3d
	}

	aspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)
	if desc.Format.IsDepthOrStencil() {
		aspect = vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}

	image, err := ImageCreate(
		vr.context,
		imageType,
		desc.Width,
		desc.Height,
		desc.Depth,
		format,
		vk.ImageTilingOptimal,
		textureUsageFlags(desc.Usage, desc.Format.IsDepthOrStencil()),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		desc.NumMips,
		true,
		aspect,
		desc.DebugName)
	if err != nil {
		return nil, core.NewResult(core.RuntimeError, "texture creation failed: %v", err)
	}

	return &VulkanTexture{desc: desc, image: image, staging: vr.staging}, core.ResultOk()
}

func fullMipCount(width, height uint32) uint32 {
	levels := uint32(1)
	for width > 1 || height > 1 {
		width >>= 1
		height >>= 1
		levels++
	}
	return levels
}

func (vr *VulkanRenderer) CreateSamplerState(desc metadata.SamplerStateDesc) (renderer.SamplerState, core.Result) {
	sampler, err := samplerStateCreate(vr.context, desc)
	if err != nil {
		return nil, core.NewResult(core.RuntimeError, "sampler creation failed: %v", err)
	}
	return sampler, core.ResultOk()
}

// VulkanRenderPipeline keeps the pipeline together with a compatible render
// pass used at creation time.
type VulkanRenderPipeline struct {
	pipeline *VulkanPipeline
	desc     metadata.RenderPipelineDesc
}

type VulkanComputePipeline struct {
	pipeline *VulkanPipeline
	desc     metadata.ComputePipelineDesc
}

func (vr *VulkanRenderer) CreateRenderPipeline(desc metadata.RenderPipelineDesc) (renderer.RenderPipeline, core.Result) {
	if len(desc.VertexShader.Code) == 0 || len(desc.FragmentShader.Code) == 0 {
		return nil, core.NewResult(core.ArgumentInvalid, "render pipeline `%s` is missing shader code", desc.DebugName)
	}
	if len(desc.ColorFormats) == 0 {
		return nil, core.NewResult(core.ArgumentInvalid, "render pipeline `%s` has no color formats", desc.DebugName)
	}

	colorFormats := make([]vk.Format, len(desc.ColorFormats))
	passDesc := metadata.RenderPassDesc{
		ColorAttachments: make([]metadata.ColorAttachmentDesc, len(desc.ColorFormats)),
	}
	for i, format := range desc.ColorFormats {
		colorFormats[i] = textureFormat(format)
	}
	depthFormat := vk.FormatUndefined
	if desc.DepthFormat != metadata.TextureFormatInvalid {
		depthFormat = textureFormat(desc.DepthFormat)
		passDesc.DepthAttachment = &metadata.DepthAttachmentDesc{}
	}

	renderPass, err := vr.renderPassFor(passDesc, colorFormats, depthFormat, vk.ImageLayoutColorAttachmentOptimal)
	if err != nil {
		return nil, core.NewResult(core.RuntimeError, "render pass creation failed: %v", err)
	}

	pipeline, err := GraphicsPipelineCreate(vr.context, desc, renderPass.Handle, vr.layouts.PipelineLayout, renderPass.HasDepth)
	if err != nil {
		return nil, core.NewResult(core.RuntimeError, "pipeline creation failed: %v", err)
	}

	return &VulkanRenderPipeline{pipeline: pipeline, desc: desc}, core.ResultOk()
}

func (vr *VulkanRenderer) CreateComputePipeline(desc metadata.ComputePipelineDesc) (renderer.ComputePipeline, core.Result) {
	if len(desc.ComputeShader.Code) == 0 {
		return nil, core.NewResult(core.ArgumentInvalid, "compute pipeline `%s` is missing shader code", desc.DebugName)
	}
	pipeline, err := ComputePipelineCreate(vr.context, desc, vr.layouts.PipelineLayout)
	if err != nil {
		return nil, core.NewResult(core.RuntimeError, "pipeline creation failed: %v", err)
	}
	return &VulkanComputePipeline{pipeline: pipeline, desc: desc}, core.ResultOk()
}

func (vr *VulkanRenderer) CreateCommandQueue(desc metadata.CommandQueueDesc) (renderer.CommandQueue, core.Result) {
	// all queue types funnel through the immediate command pool on the
	// graphics family, which supports graphics, compute and transfer
	return &VulkanCommandQueue{renderer: vr, queueType: desc.Type}, core.ResultOk()
}

func (vr *VulkanRenderer) CreateFramebuffer(desc renderer.FramebufferDesc) (renderer.Framebuffer, core.Result) {
	return newVulkanFramebuffer(desc)
}

// renderPassFor returns a cached render pass for the pass description and
// attachment formats, creating it on a miss.
func (vr *VulkanRenderer) renderPassFor(desc metadata.RenderPassDesc, colorFormats []vk.Format, depthFormat vk.Format, finalColorLayout vk.ImageLayout) (*VulkanRenderPass, error) {
	var key strings.Builder
	for i, attachment := range desc.ColorAttachments {
		fmt.Fprintf(&key, "c%d:%d:%d:%d;", i, colorFormats[i], attachment.LoadAction, attachment.StoreAction)
	}
	if desc.DepthAttachment != nil {
		fmt.Fprintf(&key, "d:%d:%d:%d;", depthFormat, desc.DepthAttachment.LoadAction, desc.DepthAttachment.StoreAction)
	}
	fmt.Fprintf(&key, "l:%d", finalColorLayout)

	if rp, ok := vr.renderPasses[key.String()]; ok {
		return rp, nil
	}

	rp, err := RenderPassCreate(vr.context, desc, colorFormats, depthFormat, finalColorLayout)
	if err != nil {
		return nil, err
	}
	vr.renderPasses[key.String()] = rp
	return rp, nil
}
