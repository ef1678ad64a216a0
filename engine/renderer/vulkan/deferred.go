package vulkan

import (
	"github.com/igloo-gfx/igloo/engine/containers"
	"github.com/igloo-gfx/igloo/engine/core"
)

type deferredTask struct {
	handle  SubmitHandle
	destroy func()
}

// DeferredDestructor delays resource destruction until the GPU has finished
// the submission that may still reference the resource. Tasks are processed
// in submission order; since submit ids grow monotonically, processing stops
// at the first task whose submission has not completed yet.
type DeferredDestructor struct {
	ic    *VulkanImmediateCommands
	tasks *containers.RingQueue[deferredTask]
}

func NewDeferredDestructor(ic *VulkanImmediateCommands) *DeferredDestructor {
	return &DeferredDestructor{
		ic:    ic,
		tasks: containers.NewRingQueue[deferredTask](VULKAN_MAX_DEFERRED_DESTRUCTIONS),
	}
}

// Defer schedules destroy to run once the submission identified by handle
// has completed. An empty handle runs immediately. When the queue is full
// the oldest pending submissions are waited on to make room.
func (d *DeferredDestructor) Defer(handle SubmitHandle, destroy func()) {
	if handle.Empty() || d.ic.IsReady(handle) {
		destroy()
		return
	}

	if d.tasks.IsFull() {
		core.LogWarn("deferred destruction queue is full; waiting for the oldest submission")
		if task, err := d.tasks.Dequeue(); err == nil {
			d.ic.Wait(task.handle, maxTimeout)
			task.destroy()
		}
	}

	if err := d.tasks.Enqueue(deferredTask{handle: handle, destroy: destroy}); err != nil {
		// cannot happen; room was just made
		d.ic.Wait(handle, maxTimeout)
		destroy()
	}
}

// Process runs every task whose submission has completed. Call once per
// frame.
func (d *DeferredDestructor) Process() {
	for {
		task, err := d.tasks.Peek()
		if err != nil {
			return
		}
		if !d.ic.IsReady(task.handle) {
			return
		}
		d.tasks.Dequeue()
		task.destroy()
	}
}

// Flush waits for every pending submission and runs all tasks.
func (d *DeferredDestructor) Flush() {
	for {
		task, err := d.tasks.Dequeue()
		if err != nil {
			return
		}
		d.ic.Wait(task.handle, maxTimeout)
		task.destroy()
	}
}

func (d *DeferredDestructor) Pending() int {
	return d.tasks.Len()
}
