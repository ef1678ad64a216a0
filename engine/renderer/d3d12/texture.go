package d3d12

import (
	"github.com/igloo-gfx/igloo/engine/core"
	"github.com/igloo-gfx/igloo/engine/renderer/metadata"
)

// D3D12Texture implements renderer.Texture. It tracks the resource state of
// the whole texture; every state change goes through TransitionState, which
// records exactly one barrier.
type D3D12Texture struct {
	desc     metadata.TextureDesc
	resource NativeResource
	state    ResourceState

	context *D3D12Context
}

func (t *D3D12Texture) Desc() *metadata.TextureDesc {
	return &t.desc
}

func (t *D3D12Texture) Resource() NativeResource {
	return t.resource
}

func (t *D3D12Texture) State() ResourceState {
	return t.state
}

// TransitionState moves the texture into newState. Transitioning into the
// current state is a no-op; no barrier is recorded. The tracked state is
// updated only after the barrier has been recorded.
func (t *D3D12Texture) TransitionState(cmdList NativeCommandList, newState ResourceState) {
	if t.state == newState {
		return
	}
	cmdList.ResourceBarrier(t.resource, t.state, newState)
	t.state = newState
}

// Upload copies pixel data into the sub-region described by r. The range is
// validated against the texture dimensions before any native call is made.
func (t *D3D12Texture) Upload(data []byte, r metadata.TextureRangeDesc) core.Result {
	if result := t.desc.ValidateRange(r); !result.IsOk() {
		return result
	}

	staging, err := t.context.Native.CreateBufferResource(uint64(len(data)), true, ResourceStateCommon)
	if err != nil {
		return core.NewResult(core.RuntimeError, "staging buffer creation failed: %v", err)
	}
	if err := t.context.Native.WriteBuffer(staging, 0, data); err != nil {
		return core.NewResult(core.RuntimeError, "staging write failed: %v", err)
	}

	cmdList, err := t.context.Queue.CreateCommandList()
	if err != nil {
		return core.NewResult(core.RuntimeError, "command list creation failed: %v", err)
	}

	t.TransitionState(cmdList, ResourceStateCopyDest)
	cmdList.CopyBufferToTexture(t.resource, r.MipLevel, r.X, r.Y, r.Width, r.Height, staging)
	t.TransitionState(cmdList, ResourceStatePixelShaderResource)

	if err := cmdList.Close(); err != nil {
		return core.NewResult(core.RuntimeError, "command list close failed: %v", err)
	}
	fenceValue := t.context.Queue.ExecuteCommandList(cmdList)
	t.context.LastSubmittedValue = fenceValue
	// synchronous upload: the staging resource is released by the caller's
	// allocator once the copy completes
	t.context.Queue.WaitForValue(fenceValue)

	return core.ResultOk()
}

// D3D12Buffer implements renderer.Buffer.
type D3D12Buffer struct {
	resource    NativeResource
	size        uint64
	hostVisible bool
	state       ResourceState

	context *D3D12Context
}

func (b *D3D12Buffer) Size() uint64 {
	return b.size
}

func (b *D3D12Buffer) Resource() NativeResource {
	return b.resource
}

// TransitionState records a resource barrier when the buffer is not already
// in the requested state. Upload-heap buffers stay in their generic state.
func (b *D3D12Buffer) TransitionState(cmdList NativeCommandList, newState ResourceState) {
	if b.hostVisible || b.state == newState {
		return
	}
	cmdList.ResourceBarrier(b.resource, b.state, newState)
	b.state = newState
}

func (b *D3D12Buffer) Upload(data []byte, offset uint64) core.Result {
	if offset+uint64(len(data)) > b.size {
		return core.NewResult(core.ArgumentOutOfRange, "upload of %d bytes at offset %d overflows buffer of size %d", len(data), offset, b.size)
	}

	if b.hostVisible {
		if err := b.context.Native.WriteBuffer(b.resource, offset, data); err != nil {
			return core.NewResult(core.RuntimeError, "buffer write failed: %v", err)
		}
		return core.ResultOk()
	}

	staging, err := b.context.Native.CreateBufferResource(uint64(len(data)), true, ResourceStateCommon)
	if err != nil {
		return core.NewResult(core.RuntimeError, "staging buffer creation failed: %v", err)
	}
	if err := b.context.Native.WriteBuffer(staging, 0, data); err != nil {
		return core.NewResult(core.RuntimeError, "staging write failed: %v", err)
	}

	cmdList, err := b.context.Queue.CreateCommandList()
	if err != nil {
		return core.NewResult(core.RuntimeError, "command list creation failed: %v", err)
	}
	cmdList.CopyBufferRegion(b.resource, offset, staging, 0, uint64(len(data)))
	if err := cmdList.Close(); err != nil {
		return core.NewResult(core.RuntimeError, "command list close failed: %v", err)
	}
	fenceValue := b.context.Queue.ExecuteCommandList(cmdList)
	b.context.LastSubmittedValue = fenceValue
	b.context.Queue.WaitForValue(fenceValue)

	return core.ResultOk()
}
