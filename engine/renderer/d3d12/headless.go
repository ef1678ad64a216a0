package d3d12

import (
	"fmt"
	"strings"

	"github.com/igloo-gfx/igloo/engine/renderer/metadata"
)

// HeadlessDevice is a software implementation of the native interface set.
// It allocates plain memory for buffer resources and records every view and
// command it is asked to create, which makes the backend runnable without a
// GPU for offscreen use and for tests.
type HeadlessDevice struct {
	HeapsCreated    int
	BuffersCreated  int
	TexturesCreated int

	ShaderResourceViews   int
	Samplers              int
	ConstantBufferViews   int
	UnorderedAccessViews  int
	PipelineStatesCreated int
}

type headlessResource struct {
	size uint64
	data []byte
}

func (r *headlessResource) Size() uint64 { return r.size }

type headlessHeap struct {
	capacity uint32
	serial   int
}

func (h *headlessHeap) Capacity() uint32 { return h.capacity }

func (h *headlessHeap) GPUHandle(index uint32) GPUDescriptorHandle {
	return GPUDescriptorHandle(uint64(h.serial)<<32 | uint64(index))
}

func (d *HeadlessDevice) CreateDescriptorHeap(kind DescriptorHeapKind, capacity uint32) (NativeDescriptorHeap, error) {
	d.HeapsCreated++
	return &headlessHeap{capacity: capacity, serial: d.HeapsCreated}, nil
}

func (d *HeadlessDevice) CreateBufferResource(size uint64, hostVisible bool, initialState ResourceState) (NativeResource, error) {
	d.BuffersCreated++
	return &headlessResource{size: size, data: make([]byte, size)}, nil
}

func (d *HeadlessDevice) CreateTextureResource(desc metadata.TextureDesc, initialState ResourceState) (NativeResource, error) {
	d.TexturesCreated++
	size := uint64(desc.Width) * uint64(desc.Height) * uint64(desc.Depth) * 4
	return &headlessResource{size: size}, nil
}

type headlessPipelineState struct{}

func (d *HeadlessDevice) CreateRenderPipelineState(desc metadata.RenderPipelineDesc) (NativePipelineState, error) {
	d.PipelineStatesCreated++
	return &headlessPipelineState{}, nil
}

func (d *HeadlessDevice) CreateComputePipelineState(desc metadata.ComputePipelineDesc) (NativePipelineState, error) {
	d.PipelineStatesCreated++
	return &headlessPipelineState{}, nil
}

func (d *HeadlessDevice) CreateShaderResourceView(resource NativeResource, heap NativeDescriptorHeap, index uint32) {
	d.ShaderResourceViews++
}

func (d *HeadlessDevice) CreateSampler(desc metadata.SamplerStateDesc, heap NativeDescriptorHeap, index uint32) {
	d.Samplers++
}

func (d *HeadlessDevice) CreateConstantBufferView(resource NativeResource, offset, size uint64, heap NativeDescriptorHeap, index uint32) {
	d.ConstantBufferViews++
}

func (d *HeadlessDevice) CreateUnorderedAccessView(resource NativeResource, firstElement, numElements, elementStride uint64, heap NativeDescriptorHeap, index uint32) {
	d.UnorderedAccessViews++
}

func (d *HeadlessDevice) WriteBuffer(resource NativeResource, offset uint64, data []byte) error {
	r, ok := resource.(*headlessResource)
	if !ok {
		return fmt.Errorf("resource does not belong to this device")
	}
	if offset+uint64(len(data)) > r.size {
		return fmt.Errorf("write of %d bytes at offset %d overflows resource of size %d", len(data), offset, r.size)
	}
	copy(r.data[offset:], data)
	return nil
}

// HeadlessCommandList records the names of the commands issued to it.
type HeadlessCommandList struct {
	Commands []string
	Closed   bool
}

func (l *HeadlessCommandList) record(format string, args ...interface{}) {
	l.Commands = append(l.Commands, fmt.Sprintf(format, args...))
}

// Count returns how many recorded commands carry the given name prefix.
func (l *HeadlessCommandList) Count(prefix string) int {
	n := 0
	for _, cmd := range l.Commands {
		if strings.HasPrefix(cmd, prefix) {
			n++
		}
	}
	return n
}

func (l *HeadlessCommandList) SetPipelineState(pso NativePipelineState) {
	l.record("SetPipelineState")
}

func (l *HeadlessCommandList) SetGraphicsRootDescriptorTable(rootParameter uint32, base GPUDescriptorHandle) {
	l.record("SetGraphicsRootDescriptorTable param=%d", rootParameter)
}

func (l *HeadlessCommandList) SetComputeRootDescriptorTable(rootParameter uint32, base GPUDescriptorHandle) {
	l.record("SetComputeRootDescriptorTable param=%d", rootParameter)
}

func (l *HeadlessCommandList) ResourceBarrier(resource NativeResource, before, after ResourceState) {
	l.record("ResourceBarrier before=%#x after=%#x", uint32(before), uint32(after))
}

func (l *HeadlessCommandList) SetViewport(x, y, width, height, minDepth, maxDepth float32) {
	l.record("SetViewport")
}

func (l *HeadlessCommandList) SetScissorRect(x, y int32, width, height uint32) {
	l.record("SetScissorRect")
}

func (l *HeadlessCommandList) SetVertexBuffer(slot uint32, resource NativeResource, offset, stride uint64) {
	l.record("SetVertexBuffer slot=%d", slot)
}

func (l *HeadlessCommandList) SetIndexBuffer(resource NativeResource, offset uint64, format metadata.IndexFormat) {
	l.record("SetIndexBuffer")
}

func (l *HeadlessCommandList) SetRenderTargets(colors []NativeResource, depth NativeResource) {
	l.record("SetRenderTargets colors=%d depth=%t", len(colors), depth != nil)
}

func (l *HeadlessCommandList) ClearRenderTarget(resource NativeResource, color [4]float32) {
	l.record("ClearRenderTarget")
}

func (l *HeadlessCommandList) ClearDepth(resource NativeResource, depth float32) {
	l.record("ClearDepth")
}

func (l *HeadlessCommandList) DrawInstanced(vertexCount, instanceCount, startVertex, startInstance uint32) {
	l.record("DrawInstanced vertices=%d", vertexCount)
}

func (l *HeadlessCommandList) DrawIndexedInstanced(indexCount, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32) {
	l.record("DrawIndexedInstanced indices=%d", indexCount)
}

func (l *HeadlessCommandList) Dispatch(groupsX, groupsY, groupsZ uint32) {
	l.record("Dispatch %dx%dx%d", groupsX, groupsY, groupsZ)
}

func (l *HeadlessCommandList) CopyBufferRegion(dst NativeResource, dstOffset uint64, src NativeResource, srcOffset, size uint64) {
	l.record("CopyBufferRegion size=%d", size)
	d, dok := dst.(*headlessResource)
	s, sok := src.(*headlessResource)
	if dok && sok && dstOffset+size <= d.size && srcOffset+size <= s.size {
		copy(d.data[dstOffset:dstOffset+size], s.data[srcOffset:srcOffset+size])
	}
}

func (l *HeadlessCommandList) CopyBufferToTexture(dst NativeResource, mipLevel, x, y, width, height uint32, src NativeResource) {
	l.record("CopyBufferToTexture mip=%d", mipLevel)
}

func (l *HeadlessCommandList) Close() error {
	if l.Closed {
		return fmt.Errorf("command list already closed")
	}
	l.Closed = true
	return nil
}

// HeadlessCommandQueue completes every submission immediately; the fence
// value advances by one per executed list.
type HeadlessCommandQueue struct {
	Executed  []*HeadlessCommandList
	nextValue uint64
}

func (q *HeadlessCommandQueue) CreateCommandList() (NativeCommandList, error) {
	return &HeadlessCommandList{}, nil
}

func (q *HeadlessCommandQueue) ExecuteCommandList(list NativeCommandList) uint64 {
	q.nextValue++
	if l, ok := list.(*HeadlessCommandList); ok {
		q.Executed = append(q.Executed, l)
	}
	return q.nextValue
}

func (q *HeadlessCommandQueue) CompletedValue() uint64 {
	return q.nextValue
}

func (q *HeadlessCommandQueue) WaitForValue(value uint64) {}

func (q *HeadlessCommandQueue) WaitIdle() {}
