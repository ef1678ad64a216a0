package d3d12

// D3D12Context groups the native device, the queue and the per-frame
// descriptor heap managers every component of the backend records through.
type D3D12Context struct {
	Native NativeDevice
	Queue  NativeCommandQueue

	// shader-visible heaps, one manager per heap type
	ViewHeap    *DescriptorHeapManager
	SamplerHeap *DescriptorHeapManager

	// fence value of the most recent submission
	LastSubmittedValue uint64
}

func NewD3D12Context(native NativeDevice, queue NativeCommandQueue) (*D3D12Context, error) {
	viewHeap, err := NewDescriptorHeapManager(native, DescriptorHeapCbvSrvUav, D3D12_INITIAL_HEAP_CAPACITY)
	if err != nil {
		return nil, err
	}
	samplerHeap, err := NewDescriptorHeapManager(native, DescriptorHeapSampler, D3D12_INITIAL_HEAP_CAPACITY)
	if err != nil {
		return nil, err
	}
	return &D3D12Context{
		Native:      native,
		Queue:       queue,
		ViewHeap:    viewHeap,
		SamplerHeap: samplerHeap,
	}, nil
}

// IsComplete reports whether the submission with the given fence value has
// finished on the GPU.
func (c *D3D12Context) IsComplete(fenceValue uint64) bool {
	return c.Queue.CompletedValue() >= fenceValue
}
