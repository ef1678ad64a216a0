// Package d3d12 implements the renderer interfaces on Direct3D 12. The
// backend records through a narrow native interface set; the Windows COM
// glue implementing it lives in a platform adapter, and a headless
// implementation backs the tests.
package d3d12

import (
	"github.com/igloo-gfx/igloo/engine/renderer/metadata"
)

// ResourceState mirrors D3D12_RESOURCE_STATES for the subset the backend
// tracks.
type ResourceState uint32

const (
	ResourceStateCommon                  ResourceState = 0
	ResourceStateVertexAndConstantBuffer ResourceState = 0x1
	ResourceStateIndexBuffer             ResourceState = 0x2
	ResourceStateRenderTarget            ResourceState = 0x4
	ResourceStateUnorderedAccess         ResourceState = 0x8
	ResourceStateDepthWrite              ResourceState = 0x10
	ResourceStateDepthRead               ResourceState = 0x20
	ResourceStateNonPixelShaderResource  ResourceState = 0x40
	ResourceStatePixelShaderResource     ResourceState = 0x80
	ResourceStateCopyDest                ResourceState = 0x400
	ResourceStateCopySource              ResourceState = 0x800
	ResourceStatePresent                 ResourceState = ResourceStateCommon
)

// DescriptorHeapKind mirrors D3D12_DESCRIPTOR_HEAP_TYPE.
type DescriptorHeapKind int

const (
	DescriptorHeapCbvSrvUav DescriptorHeapKind = iota
	DescriptorHeapSampler
	DescriptorHeapRtv
	DescriptorHeapDsv
)

// GPUDescriptorHandle is an opaque GPU-visible descriptor address.
type GPUDescriptorHandle uint64

// Root signature layout shared by every pipeline: one descriptor table per
// binding category, at a fixed root parameter index.
const (
	RootParamConstantBuffers = 0
	RootParamTextures        = 1
	RootParamUAVs            = 2
	RootParamSamplers        = 3
)

// NativeResource is a committed GPU resource (buffer or texture).
type NativeResource interface {
	Size() uint64
}

// NativeDescriptorHeap is a shader-visible descriptor heap. Views are
// created into it at explicit indices; GPUHandle converts an index into the
// address a root descriptor table is set to.
type NativeDescriptorHeap interface {
	Capacity() uint32
	GPUHandle(index uint32) GPUDescriptorHandle
}

// NativeDevice creates resources, heaps and views.
type NativeDevice interface {
	CreateDescriptorHeap(kind DescriptorHeapKind, capacity uint32) (NativeDescriptorHeap, error)
	CreateBufferResource(size uint64, hostVisible bool, initialState ResourceState) (NativeResource, error)
	CreateTextureResource(desc metadata.TextureDesc, initialState ResourceState) (NativeResource, error)
	CreateRenderPipelineState(desc metadata.RenderPipelineDesc) (NativePipelineState, error)
	CreateComputePipelineState(desc metadata.ComputePipelineDesc) (NativePipelineState, error)

	CreateShaderResourceView(resource NativeResource, heap NativeDescriptorHeap, index uint32)
	CreateSampler(desc metadata.SamplerStateDesc, heap NativeDescriptorHeap, index uint32)
	CreateConstantBufferView(resource NativeResource, offset, size uint64, heap NativeDescriptorHeap, index uint32)
	CreateUnorderedAccessView(resource NativeResource, firstElement, numElements, elementStride uint64, heap NativeDescriptorHeap, index uint32)

	// WriteBuffer copies host data into an upload-heap resource.
	WriteBuffer(resource NativeResource, offset uint64, data []byte) error
}

// NativePipelineState is an opaque pipeline state object.
type NativePipelineState interface{}

// NativeCommandList records GPU commands for one submission.
type NativeCommandList interface {
	SetPipelineState(pso NativePipelineState)
	SetGraphicsRootDescriptorTable(rootParameter uint32, base GPUDescriptorHandle)
	SetComputeRootDescriptorTable(rootParameter uint32, base GPUDescriptorHandle)
	ResourceBarrier(resource NativeResource, before, after ResourceState)

	SetViewport(x, y, width, height, minDepth, maxDepth float32)
	SetScissorRect(x, y int32, width, height uint32)
	SetVertexBuffer(slot uint32, resource NativeResource, offset, stride uint64)
	SetIndexBuffer(resource NativeResource, offset uint64, format metadata.IndexFormat)
	SetRenderTargets(colors []NativeResource, depth NativeResource)
	ClearRenderTarget(resource NativeResource, color [4]float32)
	ClearDepth(resource NativeResource, depth float32)

	DrawInstanced(vertexCount, instanceCount, startVertex, startInstance uint32)
	DrawIndexedInstanced(indexCount, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32)
	Dispatch(groupsX, groupsY, groupsZ uint32)

	CopyBufferRegion(dst NativeResource, dstOffset uint64, src NativeResource, srcOffset, size uint64)
	CopyBufferToTexture(dst NativeResource, mipLevel, x, y, width, height uint32, src NativeResource)

	Close() error
}

// NativeCommandQueue creates and executes command lists and exposes fence
// progress for completion tracking.
type NativeCommandQueue interface {
	CreateCommandList() (NativeCommandList, error)
	// ExecuteCommandList submits the closed list and returns the fence value
	// that will be signaled when it completes.
	ExecuteCommandList(list NativeCommandList) uint64
	// CompletedValue returns the highest fence value the GPU has reached.
	CompletedValue() uint64
	// WaitForValue blocks until the fence reaches the given value.
	WaitForValue(value uint64)
	WaitIdle()
}
