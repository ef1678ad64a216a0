package vulkan

import (
	vk "github.com/goki/vulkan"
)

// FunctionTable routes the synchronization-critical Vulkan entry points used
// by the immediate-commands pool, the image layout state machine and the
// framebuffer cache. Production code uses DefaultFunctionTable, whose entries
// are the real Vulkan functions; tests install recording fakes to exercise
// the bookkeeping without a GPU.
type FunctionTable struct {
	CreateFence   func(device vk.Device, pCreateInfo *vk.FenceCreateInfo, pAllocator *vk.AllocationCallbacks, pFence *vk.Fence) vk.Result
	DestroyFence  func(device vk.Device, fence vk.Fence, pAllocator *vk.AllocationCallbacks)
	ResetFences   func(device vk.Device, fenceCount uint32, pFences []vk.Fence) vk.Result
	WaitForFences func(device vk.Device, fenceCount uint32, pFences []vk.Fence, waitAll vk.Bool32, timeout uint64) vk.Result

	CreateSemaphore  func(device vk.Device, pCreateInfo *vk.SemaphoreCreateInfo, pAllocator *vk.AllocationCallbacks, pSemaphore *vk.Semaphore) vk.Result
	DestroySemaphore func(device vk.Device, semaphore vk.Semaphore, pAllocator *vk.AllocationCallbacks)

	CreateCommandPool      func(device vk.Device, pCreateInfo *vk.CommandPoolCreateInfo, pAllocator *vk.AllocationCallbacks, pCommandPool *vk.CommandPool) vk.Result
	DestroyCommandPool     func(device vk.Device, commandPool vk.CommandPool, pAllocator *vk.AllocationCallbacks)
	AllocateCommandBuffers func(device vk.Device, pAllocateInfo *vk.CommandBufferAllocateInfo, pCommandBuffers []vk.CommandBuffer) vk.Result
	BeginCommandBuffer     func(commandBuffer vk.CommandBuffer, pBeginInfo *vk.CommandBufferBeginInfo) vk.Result
	EndCommandBuffer       func(commandBuffer vk.CommandBuffer) vk.Result
	ResetCommandBuffer     func(commandBuffer vk.CommandBuffer, flags vk.CommandBufferResetFlags) vk.Result

	GetDeviceQueue func(device vk.Device, queueFamilyIndex uint32, queueIndex uint32, pQueue *vk.Queue)
	QueueSubmit    func(queue vk.Queue, submitCount uint32, pSubmits []vk.SubmitInfo, fence vk.Fence) vk.Result

	CmdPipelineBarrier func(commandBuffer vk.CommandBuffer, srcStageMask vk.PipelineStageFlags, dstStageMask vk.PipelineStageFlags, dependencyFlags vk.DependencyFlags, memoryBarrierCount uint32, pMemoryBarriers []vk.MemoryBarrier, bufferMemoryBarrierCount uint32, pBufferMemoryBarriers []vk.BufferMemoryBarrier, imageMemoryBarrierCount uint32, pImageMemoryBarriers []vk.ImageMemoryBarrier)

	CreateFramebuffer  func(device vk.Device, pCreateInfo *vk.FramebufferCreateInfo, pAllocator *vk.AllocationCallbacks, pFramebuffer *vk.Framebuffer) vk.Result
	DestroyFramebuffer func(device vk.Device, framebuffer vk.Framebuffer, pAllocator *vk.AllocationCallbacks)
}

// DefaultFunctionTable wires every entry to the corresponding Vulkan function.
func DefaultFunctionTable() *FunctionTable {
	return &FunctionTable{
		CreateFence:   vk.CreateFence,
		DestroyFence:  vk.DestroyFence,
		ResetFences:   vk.ResetFences,
		WaitForFences: vk.WaitForFences,

		CreateSemaphore:  vk.CreateSemaphore,
		DestroySemaphore: vk.DestroySemaphore,

		CreateCommandPool:      vk.CreateCommandPool,
		DestroyCommandPool:     vk.DestroyCommandPool,
		AllocateCommandBuffers: vk.AllocateCommandBuffers,
		BeginCommandBuffer:     vk.BeginCommandBuffer,
		EndCommandBuffer:       vk.EndCommandBuffer,
		ResetCommandBuffer:     vk.ResetCommandBuffer,

		GetDeviceQueue: vk.GetDeviceQueue,
		QueueSubmit:    vk.QueueSubmit,

		CmdPipelineBarrier: vk.CmdPipelineBarrier,

		CreateFramebuffer:  vk.CreateFramebuffer,
		DestroyFramebuffer: vk.DestroyFramebuffer,
	}
}
