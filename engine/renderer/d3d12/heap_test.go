package d3d12

import (
	"testing"
)

func TestHeapRangesAreContiguous(t *testing.T) {
	device := &HeadlessDevice{}
	manager, err := NewDescriptorHeapManager(device, DescriptorHeapCbvSrvUav, 64)
	if err != nil {
		t.Fatalf("NewDescriptorHeapManager: %v", err)
	}

	heapA, baseA, err := manager.AllocateRange(4)
	if err != nil {
		t.Fatalf("AllocateRange: %v", err)
	}
	heapB, baseB, err := manager.AllocateRange(8)
	if err != nil {
		t.Fatalf("AllocateRange: %v", err)
	}
	if heapA != heapB {
		t.Fatalf("allocations within capacity moved to a different heap")
	}
	if baseB != baseA+4 {
		t.Errorf("second range starts at %d, want %d", baseB, baseA+4)
	}
	if manager.Allocated() != 12 {
		t.Errorf("Allocated() = %d, want 12", manager.Allocated())
	}
}

func TestHeapEmptyRangeRejected(t *testing.T) {
	device := &HeadlessDevice{}
	manager, err := NewDescriptorHeapManager(device, DescriptorHeapSampler, 16)
	if err != nil {
		t.Fatalf("NewDescriptorHeapManager: %v", err)
	}
	if _, _, err := manager.AllocateRange(0); err == nil {
		t.Fatal("AllocateRange(0) succeeded, want error")
	}
}

func TestHeapGrowsOnExhaustion(t *testing.T) {
	device := &HeadlessDevice{}
	manager, err := NewDescriptorHeapManager(device, DescriptorHeapCbvSrvUav, 8)
	if err != nil {
		t.Fatalf("NewDescriptorHeapManager: %v", err)
	}

	small, _, err := manager.AllocateRange(8)
	if err != nil {
		t.Fatalf("AllocateRange: %v", err)
	}
	grown, base, err := manager.AllocateRange(8)
	if err != nil {
		t.Fatalf("AllocateRange after exhaustion: %v", err)
	}
	if grown == small {
		t.Fatal("allocation after exhaustion stayed in the full heap")
	}
	if base != 0 {
		t.Errorf("first range of the grown heap starts at %d, want 0", base)
	}
	if grown.Capacity() != 16 {
		t.Errorf("grown capacity = %d, want 16", grown.Capacity())
	}
	if device.HeapsCreated != 2 {
		t.Errorf("heaps created = %d, want 2", device.HeapsCreated)
	}
}

func TestHeapGrowthCoversOversizedRange(t *testing.T) {
	device := &HeadlessDevice{}
	manager, err := NewDescriptorHeapManager(device, DescriptorHeapCbvSrvUav, 8)
	if err != nil {
		t.Fatalf("NewDescriptorHeapManager: %v", err)
	}

	heap, _, err := manager.AllocateRange(100)
	if err != nil {
		t.Fatalf("AllocateRange(100): %v", err)
	}
	if heap.Capacity() < 100 {
		t.Errorf("grown capacity = %d, want at least 100", heap.Capacity())
	}
}

func TestHeapResetFrameRecycles(t *testing.T) {
	device := &HeadlessDevice{}
	manager, err := NewDescriptorHeapManager(device, DescriptorHeapCbvSrvUav, 16)
	if err != nil {
		t.Fatalf("NewDescriptorHeapManager: %v", err)
	}

	if _, _, err := manager.AllocateRange(10); err != nil {
		t.Fatalf("AllocateRange: %v", err)
	}
	manager.ResetFrame()
	if manager.Allocated() != 0 {
		t.Errorf("Allocated() after reset = %d, want 0", manager.Allocated())
	}
	_, base, err := manager.AllocateRange(10)
	if err != nil {
		t.Fatalf("AllocateRange after reset: %v", err)
	}
	if base != 0 {
		t.Errorf("range after reset starts at %d, want 0", base)
	}
}
