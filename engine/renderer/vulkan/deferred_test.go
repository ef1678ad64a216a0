package vulkan

import (
	"testing"
)

func TestDeferRunsImmediatelyForCompletedHandles(t *testing.T) {
	ic, gpu := newTestPool(t)
	d := NewDeferredDestructor(ic)

	ran := 0
	d.Defer(SubmitHandle{}, func() { ran++ })
	if ran != 1 {
		t.Error("empty handle did not run immediately")
	}

	wrapper := ic.Acquire()
	handle := ic.Submit(wrapper)
	gpu.signalFence(wrapper.Fence)

	d.Defer(handle, func() { ran++ })
	if ran != 2 {
		t.Error("completed submission did not run immediately")
	}
	if d.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", d.Pending())
	}
}

func TestDeferWaitsForInFlightSubmissions(t *testing.T) {
	ic, gpu := newTestPool(t)
	d := NewDeferredDestructor(ic)

	wrapper := ic.Acquire()
	handle := ic.Submit(wrapper)

	ran := false
	d.Defer(handle, func() { ran = true })
	if ran {
		t.Fatal("task ran while the submission was in flight")
	}
	if d.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1", d.Pending())
	}

	d.Process()
	if ran {
		t.Fatal("task ran before the fence signaled")
	}

	gpu.signalFence(wrapper.Fence)
	d.Process()
	if !ran {
		t.Error("task did not run after the fence signaled")
	}
	if d.Pending() != 0 {
		t.Errorf("Pending = %d after Process, want 0", d.Pending())
	}
}

func TestProcessStopsAtFirstIncompleteSubmission(t *testing.T) {
	ic, gpu := newTestPool(t)
	d := NewDeferredDestructor(ic)

	first := ic.Acquire()
	firstHandle := ic.Submit(first)
	second := ic.Acquire()
	secondHandle := ic.Submit(second)

	var order []int
	d.Defer(firstHandle, func() { order = append(order, 1) })
	d.Defer(secondHandle, func() { order = append(order, 2) })

	// only the first submission completes
	gpu.signalFence(first.Fence)
	d.Process()
	if len(order) != 1 || order[0] != 1 {
		t.Fatalf("ran tasks %v, want [1]", order)
	}

	gpu.signalFence(second.Fence)
	d.Process()
	if len(order) != 2 || order[1] != 2 {
		t.Errorf("ran tasks %v, want [1 2]", order)
	}
}

func TestFlushRunsEverything(t *testing.T) {
	ic, _ := newTestPool(t)
	d := NewDeferredDestructor(ic)

	ran := 0
	for i := 0; i < 3; i++ {
		d.Defer(ic.Submit(ic.Acquire()), func() { ran++ })
	}

	// Flush blocks on each fence in turn; the fake treats a blocking wait
	// as GPU completion
	d.Flush()
	if ran != 3 {
		t.Errorf("ran %d tasks after Flush, want 3", ran)
	}
	if d.Pending() != 0 {
		t.Errorf("Pending = %d after Flush, want 0", d.Pending())
	}
}
