package d3d12

import (
	"fmt"

	"github.com/igloo-gfx/igloo/engine/core"
)

// DescriptorHeapManager linearly allocates contiguous descriptor ranges from
// one shader-visible heap. Allocations live for at most one frame; the
// manager is reset once the frame's submissions have completed. When the
// heap runs out mid-frame a larger one is created and the old heap is kept
// until the next reset, since descriptors already handed out this frame
// still live in it.
type DescriptorHeapManager struct {
	device NativeDevice
	kind   DescriptorHeapKind

	heap     NativeDescriptorHeap
	capacity uint32
	next     uint32

	// heaps superseded mid-frame, released on ResetFrame
	retired []NativeDescriptorHeap
}

func NewDescriptorHeapManager(device NativeDevice, kind DescriptorHeapKind, capacity uint32) (*DescriptorHeapManager, error) {
	heap, err := device.CreateDescriptorHeap(kind, capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create descriptor heap: %w", err)
	}
	return &DescriptorHeapManager{
		device:   device,
		kind:     kind,
		heap:     heap,
		capacity: capacity,
	}, nil
}

// AllocateRange reserves count consecutive descriptors and returns the heap
// they live in plus the index of the first one. On exhaustion the heap grows.
func (m *DescriptorHeapManager) AllocateRange(count uint32) (NativeDescriptorHeap, uint32, error) {
	if count == 0 {
		return nil, 0, fmt.Errorf("cannot allocate an empty descriptor range")
	}

	if m.next+count > m.capacity {
		newCapacity := m.capacity * 2
		for newCapacity < count {
			newCapacity *= 2
		}
		core.LogWarn("descriptor heap exhausted; growing from %d to %d descriptors", m.capacity, newCapacity)

		heap, err := m.device.CreateDescriptorHeap(m.kind, newCapacity)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to grow descriptor heap: %w", err)
		}
		m.retired = append(m.retired, m.heap)
		m.heap = heap
		m.capacity = newCapacity
		m.next = 0
	}

	base := m.next
	m.next += count
	return m.heap, base, nil
}

// ResetFrame recycles the whole heap. The caller must ensure the GPU has
// finished the frame that used it.
func (m *DescriptorHeapManager) ResetFrame() {
	m.next = 0
	m.retired = nil
}

// Allocated returns the number of descriptors handed out this frame.
func (m *DescriptorHeapManager) Allocated() uint32 {
	return m.next
}
