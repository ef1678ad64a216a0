package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/igloo-gfx/igloo/engine/core"
)

// SubmitHandle identifies a single submission of one command buffer from the
// immediate pool. It packs the buffer slot index and a monotonically
// increasing submit id so that stale handles referring to a recycled slot can
// be detected. The zero value means "never submitted".
type SubmitHandle struct {
	BufferIndex uint32
	SubmitID    uint32
}

func (h SubmitHandle) Empty() bool {
	return h.SubmitID == 0
}

// Handle64 packs the handle into a single uint64 for storage in deferred
// destruction queues and similar places.
func (h SubmitHandle) Handle64() uint64 {
	return uint64(h.SubmitID)<<32 | uint64(h.BufferIndex)
}

func SubmitHandleFromUint64(v uint64) SubmitHandle {
	return SubmitHandle{
		BufferIndex: uint32(v & 0xffffffff),
		SubmitID:    uint32(v >> 32),
	}
}

// CommandBufferWrapper couples a pre-allocated command buffer with the fence
// and semaphore tracking its most recent submission.
type CommandBufferWrapper struct {
	// CmdBufAllocated keeps the allocation alive for the pool's lifetime;
	// CmdBuf is non-nil only while the slot is acquired or in flight.
	CmdBufAllocated vk.CommandBuffer
	CmdBuf          vk.CommandBuffer
	Handle          SubmitHandle
	Fence           vk.Fence
	Semaphore       vk.Semaphore
	IsEncoding      bool
}

// VulkanImmediateCommands manages a fixed ring of command buffers for
// immediate submission. Acquire hands out a free wrapper, Submit sends it to
// the queue, and completed buffers are recycled lazily whenever the pool
// looks for a free slot.
type VulkanImmediateCommands struct {
	ft     *FunctionTable
	device vk.Device
	queue  vk.Queue
	pool   vk.CommandPool

	buffers      [VULKAN_MAX_COMMAND_BUFFERS]CommandBufferWrapper
	numAvailable uint32

	// submitCounter is the next submit id to hand out. It never takes the
	// value 0, which is reserved for the empty handle.
	submitCounter uint32

	lastSubmitSemaphore vk.Semaphore
	lastSubmitHandle    SubmitHandle

	// waitSemaphore, when set, is consumed by the next Submit as an extra
	// wait dependency (typically the swapchain acquire semaphore).
	waitSemaphore vk.Semaphore

	debugName string
}

// NewVulkanImmediateCommands creates the command pool, allocates every
// command buffer up front and creates the per-slot fences and semaphores.
func NewVulkanImmediateCommands(ft *FunctionTable, device vk.Device, queueFamilyIndex uint32, debugName string) (*VulkanImmediateCommands, error) {
	ic := &VulkanImmediateCommands{
		ft:            ft,
		device:        device,
		numAvailable:  VULKAN_MAX_COMMAND_BUFFERS,
		submitCounter: 1,
		debugName:     core.DebugName("immediate-commands", debugName),
	}

	ft.GetDeviceQueue(device, queueFamilyIndex, 0, &ic.queue)

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: queueFamilyIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit) | vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit),
	}
	var pool vk.CommandPool
	if res := ic.ft.CreateCommandPool(device, &poolCreateInfo, nil, &pool); res != vk.Success {
		err := fmt.Errorf("failed to create command pool for `%s`: %s", ic.debugName, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	ic.pool = pool

	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        ic.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	for i := range ic.buffers {
		wrapper := &ic.buffers[i]

		buffers := make([]vk.CommandBuffer, 1)
		if res := ic.ft.AllocateCommandBuffers(device, &allocateInfo, buffers); res != vk.Success {
			err := fmt.Errorf("failed to allocate command buffer %d for `%s`: %s", i, ic.debugName, VulkanResultString(res))
			core.LogError(err.Error())
			return nil, err
		}
		wrapper.CmdBufAllocated = buffers[0]
		wrapper.Handle.BufferIndex = uint32(i)

		fenceCreateInfo := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
		if res := ic.ft.CreateFence(device, &fenceCreateInfo, nil, &wrapper.Fence); res != vk.Success {
			err := fmt.Errorf("failed to create fence %d for `%s`: %s", i, ic.debugName, VulkanResultString(res))
			core.LogError(err.Error())
			return nil, err
		}

		semaphoreCreateInfo := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
		if res := ic.ft.CreateSemaphore(device, &semaphoreCreateInfo, nil, &wrapper.Semaphore); res != vk.Success {
			err := fmt.Errorf("failed to create semaphore %d for `%s`: %s", i, ic.debugName, VulkanResultString(res))
			core.LogError(err.Error())
			return nil, err
		}
	}

	return ic, nil
}

// Destroy waits for every in-flight buffer and releases the pool resources.
func (ic *VulkanImmediateCommands) Destroy() {
	ic.WaitAll()
	for i := range ic.buffers {
		wrapper := &ic.buffers[i]
		ic.ft.DestroyFence(ic.device, wrapper.Fence, nil)
		ic.ft.DestroySemaphore(ic.device, wrapper.Semaphore, nil)
	}
	ic.ft.DestroyCommandPool(ic.device, ic.pool, nil)
}

const maxTimeout = ^uint64(0)

// purge recycles every completed buffer: a slot is reclaimed when it is not
// being encoded and its fence has signaled.
func (ic *VulkanImmediateCommands) purge() {
	for i := range ic.buffers {
		// start from the one past the most recently submitted slot, which is
		// the most likely to have completed
		wrapper := &ic.buffers[(uint32(i)+ic.lastSubmitHandle.BufferIndex+1)%VULKAN_MAX_COMMAND_BUFFERS]

		if wrapper.CmdBuf == nil || wrapper.IsEncoding {
			continue
		}

		result := ic.ft.WaitForFences(ic.device, 1, []vk.Fence{wrapper.Fence}, vk.True, 0)
		if result == vk.Success {
			ic.ft.ResetCommandBuffer(wrapper.CmdBuf, 0)
			ic.ft.ResetFences(ic.device, 1, []vk.Fence{wrapper.Fence})
			wrapper.CmdBuf = nil
			ic.numAvailable++
		} else if result != vk.Timeout {
			core.LogError("failed to poll fence for `%s`: %s", ic.debugName, VulkanResultString(result))
		}
	}
}

// Acquire returns a free command buffer wrapper in the recording state. If
// every slot is in flight it blocks, recycling as submissions complete.
func (ic *VulkanImmediateCommands) Acquire() *CommandBufferWrapper {
	if ic.numAvailable == 0 {
		core.LogInfo("immediate commands `%s`: waiting for a command buffer", ic.debugName)
	}
	for ic.numAvailable == 0 {
		ic.purge()
	}

	var current *CommandBufferWrapper
	for i := range ic.buffers {
		if ic.buffers[i].CmdBuf == nil {
			current = &ic.buffers[i]
			break
		}
	}
	if current == nil {
		core.LogFatal("immediate commands `%s`: no free command buffer despite %d available", ic.debugName, ic.numAvailable)
		return nil
	}

	current.Handle.SubmitID = ic.submitCounter
	ic.numAvailable--

	current.CmdBuf = current.CmdBufAllocated
	current.IsEncoding = true

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if res := ic.ft.BeginCommandBuffer(current.CmdBuf, &beginInfo); res != vk.Success {
		core.LogError("failed to begin command buffer for `%s`: %s", ic.debugName, VulkanResultString(res))
	}

	return current
}

// Submit ends the buffer, submits it to the queue and retires the wrapper.
// The submission waits on the stored acquire semaphore (if any) and on the
// semaphore of the previous submission, so submissions run in order.
func (ic *VulkanImmediateCommands) Submit(wrapper *CommandBufferWrapper) SubmitHandle {
	if res := ic.ft.EndCommandBuffer(wrapper.CmdBuf); res != vk.Success {
		core.LogError("failed to end command buffer for `%s`: %s", ic.debugName, VulkanResultString(res))
	}

	waitSemaphores := make([]vk.Semaphore, 0, 2)
	if ic.waitSemaphore != nil {
		waitSemaphores = append(waitSemaphores, ic.waitSemaphore)
	}
	if ic.lastSubmitSemaphore != nil {
		waitSemaphores = append(waitSemaphores, ic.lastSubmitSemaphore)
	}
	waitStageMasks := make([]vk.PipelineStageFlags, len(waitSemaphores))
	for i := range waitStageMasks {
		waitStageMasks[i] = vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(waitSemaphores)),
		PWaitSemaphores:      waitSemaphores,
		PWaitDstStageMask:    waitStageMasks,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{wrapper.CmdBuf},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{wrapper.Semaphore},
	}
	if res := ic.ft.QueueSubmit(ic.queue, 1, []vk.SubmitInfo{submitInfo}, wrapper.Fence); res != vk.Success {
		core.LogError("failed to submit command buffer for `%s`: %s", ic.debugName, VulkanResultString(res))
	}

	ic.lastSubmitSemaphore = wrapper.Semaphore
	ic.lastSubmitHandle = wrapper.Handle
	ic.waitSemaphore = nil

	wrapper.IsEncoding = false
	ic.submitCounter++
	// submit id 0 is reserved for the empty handle
	if ic.submitCounter == 0 {
		ic.submitCounter = 1
	}

	return ic.lastSubmitHandle
}

// WaitSemaphore stores a semaphore the next submission must wait on, such as
// the swapchain image acquire semaphore.
func (ic *VulkanImmediateCommands) WaitSemaphore(semaphore vk.Semaphore) {
	if ic.waitSemaphore != nil {
		core.LogWarn("immediate commands `%s`: overwriting a pending wait semaphore", ic.debugName)
	}
	ic.waitSemaphore = semaphore
}

// AcquireLastSubmitSemaphore returns the semaphore signaled by the most
// recent submission and clears it, so presentation can wait on it exactly
// once.
func (ic *VulkanImmediateCommands) AcquireLastSubmitSemaphore() vk.Semaphore {
	semaphore := ic.lastSubmitSemaphore
	ic.lastSubmitSemaphore = nil
	return semaphore
}

func (ic *VulkanImmediateCommands) LastSubmitHandle() SubmitHandle {
	return ic.lastSubmitHandle
}

// IsRecycled reports whether the slot named by the handle has since been
// reused for a newer submission. A recycled submission has necessarily
// completed.
func (ic *VulkanImmediateCommands) IsRecycled(handle SubmitHandle) bool {
	if handle.Empty() {
		return true
	}
	return ic.buffers[handle.BufferIndex].Handle.SubmitID != handle.SubmitID
}

// IsReady reports whether the submission identified by the handle has
// completed on the GPU. It never blocks.
func (ic *VulkanImmediateCommands) IsReady(handle SubmitHandle) bool {
	if handle.Empty() {
		return true
	}

	wrapper := &ic.buffers[handle.BufferIndex]
	if wrapper.Handle.SubmitID != handle.SubmitID {
		// already recycled
		return true
	}
	if wrapper.CmdBuf == nil {
		// already retired by purge
		return true
	}

	return ic.ft.WaitForFences(ic.device, 1, []vk.Fence{wrapper.Fence}, vk.True, 0) == vk.Success
}

// Wait blocks on the submission identified by the handle for up to
// timeoutNs nanoseconds, then recycles finished buffers. It returns
// core.ErrFenceTimeout when the fence did not signal in time; a zero timeout
// turns the call into a poll. Waiting on a buffer that is still being
// encoded is a programming error and is refused.
func (ic *VulkanImmediateCommands) Wait(handle SubmitHandle, timeoutNs uint64) error {
	if ic.IsReady(handle) {
		return nil
	}
	if ic.buffers[handle.BufferIndex].IsEncoding {
		core.LogError("immediate commands `%s`: cannot wait for a command buffer that is still being encoded", ic.debugName)
		return fmt.Errorf("immediate commands `%s`: command buffer is still being encoded", ic.debugName)
	}

	res := ic.ft.WaitForFences(ic.device, 1, []vk.Fence{ic.buffers[handle.BufferIndex].Fence}, vk.True, timeoutNs)
	switch res {
	case vk.Success:
	case vk.Timeout:
		return core.ErrFenceTimeout
	default:
		core.LogError("failed to wait for fence for `%s`: %s", ic.debugName, VulkanResultString(res))
		return fmt.Errorf("failed to wait for fence for `%s`: %s", ic.debugName, VulkanResultString(res))
	}

	ic.purge()
	return nil
}

// WaitAll blocks until every in-flight submission completes, then recycles
// all finished buffers.
func (ic *VulkanImmediateCommands) WaitAll() {
	fences := make([]vk.Fence, 0, VULKAN_MAX_COMMAND_BUFFERS)
	for i := range ic.buffers {
		wrapper := &ic.buffers[i]
		if wrapper.CmdBuf != nil && !wrapper.IsEncoding {
			fences = append(fences, wrapper.Fence)
		}
	}

	if len(fences) > 0 {
		if res := ic.ft.WaitForFences(ic.device, uint32(len(fences)), fences, vk.True, maxTimeout); res != vk.Success {
			core.LogError("failed to wait for fences for `%s`: %s", ic.debugName, VulkanResultString(res))
		}
	}

	ic.purge()
}
