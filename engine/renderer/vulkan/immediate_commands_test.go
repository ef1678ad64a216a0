package vulkan

import (
	"testing"

	"github.com/igloo-gfx/igloo/engine/core"
)

func newTestPool(t *testing.T) (*VulkanImmediateCommands, *fakeGPU) {
	t.Helper()
	gpu := newFakeGPU()
	ic, err := NewVulkanImmediateCommands(gpu.functionTable(), nil, 0, "test")
	if err != nil {
		t.Fatalf("NewVulkanImmediateCommands: %v", err)
	}
	return ic, gpu
}

func TestSubmitHandlePacking(t *testing.T) {
	tests := []struct {
		name   string
		handle SubmitHandle
	}{
		{"zero", SubmitHandle{}},
		{"first submission", SubmitHandle{BufferIndex: 0, SubmitID: 1}},
		{"high slot", SubmitHandle{BufferIndex: 31, SubmitID: 7}},
		{"max ids", SubmitHandle{BufferIndex: ^uint32(0), SubmitID: ^uint32(0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SubmitHandleFromUint64(tt.handle.Handle64()); got != tt.handle {
				t.Errorf("round trip = %+v, want %+v", got, tt.handle)
			}
		})
	}

	if !(SubmitHandle{}).Empty() {
		t.Error("zero handle is not empty")
	}
	if (SubmitHandle{SubmitID: 1}).Empty() {
		t.Error("submitted handle reports empty")
	}
}

func TestAcquireHandsOutUniqueSlots(t *testing.T) {
	ic, _ := newTestPool(t)

	seen := make(map[uint32]bool)
	for i := uint32(0); i < VULKAN_MAX_COMMAND_BUFFERS; i++ {
		wrapper := ic.Acquire()
		if wrapper == nil {
			t.Fatalf("Acquire %d returned nil", i)
		}
		if wrapper.CmdBuf == nil {
			t.Fatalf("acquired wrapper %d has no command buffer", i)
		}
		if !wrapper.IsEncoding {
			t.Fatalf("acquired wrapper %d is not in the encoding state", i)
		}
		if seen[wrapper.Handle.BufferIndex] {
			t.Fatalf("slot %d handed out twice", wrapper.Handle.BufferIndex)
		}
		seen[wrapper.Handle.BufferIndex] = true
	}
	if ic.numAvailable != 0 {
		t.Errorf("numAvailable = %d after draining the pool, want 0", ic.numAvailable)
	}
}

func TestAcquireBlocksUntilASubmissionCompletes(t *testing.T) {
	ic, gpu := newTestPool(t)

	handles := make([]SubmitHandle, 0, VULKAN_MAX_COMMAND_BUFFERS)
	for i := uint32(0); i < VULKAN_MAX_COMMAND_BUFFERS; i++ {
		handles = append(handles, ic.Submit(ic.Acquire()))
	}

	// let the fence of the fifth submission signal after a few polls, as if
	// the GPU finished it while the pool was spinning
	target := handles[4]
	gpu.fences[ic.buffers[target.BufferIndex].Fence].signalAfterPolls = 3

	wrapper := ic.Acquire()
	if wrapper.Handle.BufferIndex != target.BufferIndex {
		t.Errorf("recycled slot %d, want %d", wrapper.Handle.BufferIndex, target.BufferIndex)
	}
	if wrapper.Handle.SubmitID == target.SubmitID {
		t.Error("recycled wrapper kept the old submit id")
	}
	if !ic.IsRecycled(target) {
		t.Error("original handle does not report recycled")
	}
}

func TestSubmitChainsOnPreviousSubmission(t *testing.T) {
	ic, gpu := newTestPool(t)

	first := ic.Acquire()
	ic.Submit(first)

	if len(gpu.submissions) != 1 {
		t.Fatalf("recorded %d submissions, want 1", len(gpu.submissions))
	}
	if len(gpu.submissions[0].waitSemaphores) != 0 {
		t.Errorf("first submission waits on %d semaphores, want 0", len(gpu.submissions[0].waitSemaphores))
	}
	if gpu.submissions[0].signalSemaphore != first.Semaphore {
		t.Error("first submission does not signal its wrapper semaphore")
	}

	acquireSemaphore := gpu.newSemaphore()
	ic.WaitSemaphore(acquireSemaphore)

	second := ic.Acquire()
	ic.Submit(second)

	if len(gpu.submissions) != 2 {
		t.Fatalf("recorded %d submissions, want 2", len(gpu.submissions))
	}
	waits := gpu.submissions[1].waitSemaphores
	if len(waits) != 2 {
		t.Fatalf("second submission waits on %d semaphores, want 2", len(waits))
	}
	if waits[0] != acquireSemaphore {
		t.Error("second submission does not wait on the stored acquire semaphore")
	}
	if waits[1] != first.Semaphore {
		t.Error("second submission does not wait on the previous submission's semaphore")
	}

	// the stored wait semaphore is consumed by exactly one submission
	third := ic.Acquire()
	ic.Submit(third)
	if len(gpu.submissions[2].waitSemaphores) != 1 {
		t.Errorf("third submission waits on %d semaphores, want 1", len(gpu.submissions[2].waitSemaphores))
	}
}

func TestAcquireLastSubmitSemaphoreClearsIt(t *testing.T) {
	ic, _ := newTestPool(t)

	wrapper := ic.Acquire()
	ic.Submit(wrapper)

	if got := ic.AcquireLastSubmitSemaphore(); got != wrapper.Semaphore {
		t.Error("returned semaphore is not the last submission's")
	}
	if got := ic.AcquireLastSubmitSemaphore(); got != nil {
		t.Error("second acquire did not return nil")
	}

	// the next submission then has nothing to wait on
	next := ic.Acquire()
	ic.Submit(next)
	if handle := ic.LastSubmitHandle(); handle != next.Handle {
		t.Errorf("LastSubmitHandle = %+v, want %+v", handle, next.Handle)
	}
}

func TestWaitOnRecycledHandleDoesNotBlock(t *testing.T) {
	ic, gpu := newTestPool(t)

	wrapper := ic.Acquire()
	handle := ic.Submit(wrapper)

	if ic.IsReady(handle) {
		t.Fatal("in-flight submission reports ready")
	}

	gpu.signalFence(wrapper.Fence)
	if !ic.IsReady(handle) {
		t.Fatal("signaled submission does not report ready")
	}

	// waiting on a completed, recycled or empty handle returns immediately
	if err := ic.Wait(handle, 0); err != nil {
		t.Errorf("Wait on completed handle: %v", err)
	}
	ic.WaitAll()
	if err := ic.Wait(handle, 0); err != nil {
		t.Errorf("Wait on recycled handle: %v", err)
	}
	if !ic.IsReady(handle) {
		t.Error("completed submission does not report ready")
	}
	if !ic.IsReady(SubmitHandle{}) {
		t.Error("empty handle does not report ready")
	}
}

func TestWaitTimeoutOnInFlightSubmission(t *testing.T) {
	ic, gpu := newTestPool(t)

	wrapper := ic.Acquire()
	handle := ic.Submit(wrapper)

	// a zero timeout polls: the fence has not signaled, so the wait times out
	// without disturbing the submission
	if err := ic.Wait(handle, 0); err != core.ErrFenceTimeout {
		t.Fatalf("Wait(0) on in-flight submission = %v, want ErrFenceTimeout", err)
	}
	if ic.IsReady(handle) {
		t.Fatal("timed-out wait marked the submission ready")
	}

	// a full-length wait for the same handle still completes normally
	if err := ic.Wait(handle, ^uint64(0)); err != nil {
		t.Fatalf("blocking Wait after timeout: %v", err)
	}
	if !ic.IsReady(handle) {
		t.Error("completed submission does not report ready")
	}

	// destroyed fences surface the failure instead of a timeout
	next := ic.Acquire()
	nextHandle := ic.Submit(next)
	delete(gpu.fences, next.Fence)
	if err := ic.Wait(nextHandle, ^uint64(0)); err == nil || err == core.ErrFenceTimeout {
		t.Fatalf("Wait on lost fence = %v, want a non-timeout error", err)
	}
}

func TestSubmitCounterSkipsZero(t *testing.T) {
	ic, _ := newTestPool(t)

	ic.submitCounter = ^uint32(0)
	wrapper := ic.Acquire()
	handle := ic.Submit(wrapper)
	if handle.SubmitID != ^uint32(0) {
		t.Fatalf("SubmitID = %d, want %d", handle.SubmitID, ^uint32(0))
	}
	if ic.submitCounter != 1 {
		t.Errorf("submitCounter wrapped to %d, want 1 (0 is reserved)", ic.submitCounter)
	}
}

func TestWaitAllRecyclesEverything(t *testing.T) {
	ic, _ := newTestPool(t)

	for i := 0; i < 5; i++ {
		ic.Submit(ic.Acquire())
	}
	ic.WaitAll()

	if ic.numAvailable != VULKAN_MAX_COMMAND_BUFFERS {
		t.Errorf("numAvailable = %d after WaitAll, want %d", ic.numAvailable, VULKAN_MAX_COMMAND_BUFFERS)
	}
	for i := range ic.buffers {
		if ic.buffers[i].CmdBuf != nil {
			t.Errorf("slot %d still holds a command buffer after WaitAll", i)
		}
	}
}
