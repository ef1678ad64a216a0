package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

// fakeGPU backs a FunctionTable with pure bookkeeping, so the pool, the
// layout state machine and the framebuffer cache can run without a GPU.
// Handles are minted from real allocations, which keeps them unique and
// comparable.
type fakeGPU struct {
	refs []*int64

	fences map[vk.Fence]*fakeFence

	submissions []fakeSubmission

	barriers []fakeBarrier

	commandBufferResets  int
	framebuffersCreated  int
	framebuffersDestroyed int
}

type fakeFence struct {
	signaled bool
	// signalAfterPolls, when positive, signals the fence after that many
	// zero-timeout polls, emulating GPU progress while the pool spins.
	signalAfterPolls int
}

type fakeSubmission struct {
	cmdBuf          vk.CommandBuffer
	waitSemaphores  []vk.Semaphore
	signalSemaphore vk.Semaphore
	fence           vk.Fence
}

type fakeBarrier struct {
	srcStageMask vk.PipelineStageFlags
	dstStageMask vk.PipelineStageFlags
	images       []vk.ImageMemoryBarrier
}

func newFakeGPU() *fakeGPU {
	return &fakeGPU{fences: make(map[vk.Fence]*fakeFence)}
}

func (g *fakeGPU) newHandle() unsafe.Pointer {
	ref := new(int64)
	g.refs = append(g.refs, ref)
	return unsafe.Pointer(ref)
}

func (g *fakeGPU) newSemaphore() vk.Semaphore {
	return vk.Semaphore(g.newHandle())
}

func (g *fakeGPU) newImageView() vk.ImageView {
	return vk.ImageView(g.newHandle())
}

// signalFence marks the fence of the given submission as signaled.
func (g *fakeGPU) signalFence(fence vk.Fence) {
	if f, ok := g.fences[fence]; ok {
		f.signaled = true
	}
}

// functionTable builds a FunctionTable whose entries record into the fake.
func (g *fakeGPU) functionTable() *FunctionTable {
	return &FunctionTable{
		CreateFence: func(device vk.Device, pCreateInfo *vk.FenceCreateInfo, pAllocator *vk.AllocationCallbacks, pFence *vk.Fence) vk.Result {
			fence := vk.Fence(g.newHandle())
			g.fences[fence] = &fakeFence{}
			*pFence = fence
			return vk.Success
		},
		DestroyFence: func(device vk.Device, fence vk.Fence, pAllocator *vk.AllocationCallbacks) {
			delete(g.fences, fence)
		},
		ResetFences: func(device vk.Device, fenceCount uint32, pFences []vk.Fence) vk.Result {
			for _, fence := range pFences[:fenceCount] {
				if f, ok := g.fences[fence]; ok {
					f.signaled = false
					f.signalAfterPolls = 0
				}
			}
			return vk.Success
		},
		WaitForFences: func(device vk.Device, fenceCount uint32, pFences []vk.Fence, waitAll vk.Bool32, timeout uint64) vk.Result {
			for _, fence := range pFences[:fenceCount] {
				f, ok := g.fences[fence]
				if !ok {
					return vk.ErrorDeviceLost
				}
				if !f.signaled && f.signalAfterPolls > 0 {
					f.signalAfterPolls--
					if f.signalAfterPolls == 0 {
						f.signaled = true
					}
				}
				if !f.signaled {
					if timeout == 0 {
						return vk.Timeout
					}
					// a blocking wait stands in for GPU completion
					f.signaled = true
				}
			}
			return vk.Success
		},

		CreateSemaphore: func(device vk.Device, pCreateInfo *vk.SemaphoreCreateInfo, pAllocator *vk.AllocationCallbacks, pSemaphore *vk.Semaphore) vk.Result {
			*pSemaphore = g.newSemaphore()
			return vk.Success
		},
		DestroySemaphore: func(device vk.Device, semaphore vk.Semaphore, pAllocator *vk.AllocationCallbacks) {},

		CreateCommandPool: func(device vk.Device, pCreateInfo *vk.CommandPoolCreateInfo, pAllocator *vk.AllocationCallbacks, pCommandPool *vk.CommandPool) vk.Result {
			*pCommandPool = vk.CommandPool(g.newHandle())
			return vk.Success
		},
		DestroyCommandPool: func(device vk.Device, commandPool vk.CommandPool, pAllocator *vk.AllocationCallbacks) {},
		AllocateCommandBuffers: func(device vk.Device, pAllocateInfo *vk.CommandBufferAllocateInfo, pCommandBuffers []vk.CommandBuffer) vk.Result {
			for i := range pCommandBuffers {
				pCommandBuffers[i] = vk.CommandBuffer(g.newHandle())
			}
			return vk.Success
		},
		BeginCommandBuffer: func(commandBuffer vk.CommandBuffer, pBeginInfo *vk.CommandBufferBeginInfo) vk.Result {
			return vk.Success
		},
		EndCommandBuffer: func(commandBuffer vk.CommandBuffer) vk.Result {
			return vk.Success
		},
		ResetCommandBuffer: func(commandBuffer vk.CommandBuffer, flags vk.CommandBufferResetFlags) vk.Result {
			g.commandBufferResets++
			return vk.Success
		},

		GetDeviceQueue: func(device vk.Device, queueFamilyIndex uint32, queueIndex uint32, pQueue *vk.Queue) {
			*pQueue = vk.Queue(g.newHandle())
		},
		QueueSubmit: func(queue vk.Queue, submitCount uint32, pSubmits []vk.SubmitInfo, fence vk.Fence) vk.Result {
			for _, submit := range pSubmits[:submitCount] {
				s := fakeSubmission{fence: fence}
				if submit.CommandBufferCount > 0 {
					s.cmdBuf = submit.PCommandBuffers[0]
				}
				s.waitSemaphores = append(s.waitSemaphores, submit.PWaitSemaphores[:submit.WaitSemaphoreCount]...)
				if submit.SignalSemaphoreCount > 0 {
					s.signalSemaphore = submit.PSignalSemaphores[0]
				}
				g.submissions = append(g.submissions, s)
			}
			return vk.Success
		},

		CmdPipelineBarrier: func(commandBuffer vk.CommandBuffer, srcStageMask vk.PipelineStageFlags, dstStageMask vk.PipelineStageFlags, dependencyFlags vk.DependencyFlags, memoryBarrierCount uint32, pMemoryBarriers []vk.MemoryBarrier, bufferMemoryBarrierCount uint32, pBufferMemoryBarriers []vk.BufferMemoryBarrier, imageMemoryBarrierCount uint32, pImageMemoryBarriers []vk.ImageMemoryBarrier) {
			g.barriers = append(g.barriers, fakeBarrier{
				srcStageMask: srcStageMask,
				dstStageMask: dstStageMask,
				images:       append([]vk.ImageMemoryBarrier(nil), pImageMemoryBarriers[:imageMemoryBarrierCount]...),
			})
		},

		CreateFramebuffer: func(device vk.Device, pCreateInfo *vk.FramebufferCreateInfo, pAllocator *vk.AllocationCallbacks, pFramebuffer *vk.Framebuffer) vk.Result {
			g.framebuffersCreated++
			*pFramebuffer = vk.Framebuffer(g.newHandle())
			return vk.Success
		},
		DestroyFramebuffer: func(device vk.Device, framebuffer vk.Framebuffer, pAllocator *vk.AllocationCallbacks) {
			g.framebuffersDestroyed++
		},
	}
}
