package d3d12

import (
	"bytes"
	"testing"

	"github.com/igloo-gfx/igloo/engine/core"
	"github.com/igloo-gfx/igloo/engine/renderer"
	"github.com/igloo-gfx/igloo/engine/renderer/metadata"
)

func newTestDevice(t *testing.T) (*D3D12Device, *HeadlessDevice, *HeadlessCommandQueue) {
	t.Helper()
	native := &HeadlessDevice{}
	queue := &HeadlessCommandQueue{}
	device, err := NewD3D12Device(native, queue)
	if err != nil {
		t.Fatalf("NewD3D12Device: %v", err)
	}
	return device, native, queue
}

func TestDeviceCreateBufferValidation(t *testing.T) {
	device, _, _ := newTestDevice(t)

	if _, r := device.CreateBuffer(metadata.BufferDesc{Size: 0}); r.Code != core.ArgumentInvalid {
		t.Errorf("zero-size buffer: code = %v, want ArgumentInvalid", r.Code)
	}
	if _, r := device.CreateBuffer(metadata.BufferDesc{Size: 4, Data: make([]byte, 8)}); r.Code != core.ArgumentOutOfRange {
		t.Errorf("oversized initial data: code = %v, want ArgumentOutOfRange", r.Code)
	}
}

func TestDeviceBufferUploadRoundTrip(t *testing.T) {
	device, _, _ := newTestDevice(t)

	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	buffer, r := device.CreateBuffer(metadata.BufferDesc{
		Size:    64,
		Usage:   metadata.BufferUsageStorage,
		Storage: metadata.BufferStorageDeviceLocal,
		Data:    payload,
	})
	if !r.IsOk() {
		t.Fatalf("CreateBuffer: %v", r.Error())
	}

	db := buffer.(*D3D12Buffer)
	got := db.resource.(*headlessResource).data[:len(payload)]
	if !bytes.Equal(got, payload) {
		t.Errorf("device-local contents = %v, want %v", got, payload)
	}

	if r := buffer.Upload(make([]byte, 16), 60); r.Code != core.ArgumentOutOfRange {
		t.Errorf("overflowing upload: code = %v, want ArgumentOutOfRange", r.Code)
	}
}

func TestDeviceTextureUploadValidatesRangeFirst(t *testing.T) {
	device, native, queue := newTestDevice(t)

	texture, r := device.CreateTexture(metadata.TextureDesc{
		Type:   metadata.TextureType2D,
		Format: metadata.TextureFormatRGBA8UNorm,
		Width:  16,
		Height: 16,
	})
	if !r.IsOk() {
		t.Fatalf("CreateTexture: %v", r.Error())
	}

	buffersBefore := native.BuffersCreated
	r = texture.Upload(make([]byte, 16*16*4), metadata.NewRange2D(8, 8, 16, 16))
	if r.Code != core.ArgumentOutOfRange {
		t.Fatalf("out-of-bounds upload: code = %v, want ArgumentOutOfRange", r.Code)
	}
	if native.BuffersCreated != buffersBefore {
		t.Error("a staging buffer was created before range validation rejected the upload")
	}
	if len(queue.Executed) != 0 {
		t.Error("a command list was executed for a rejected upload")
	}

	r = texture.Upload(make([]byte, 8*8*4), metadata.NewRange2D(4, 4, 8, 8))
	if !r.IsOk() {
		t.Fatalf("in-bounds upload: %v", r.Error())
	}
	if len(queue.Executed) != 1 {
		t.Fatalf("executed %d command lists, want 1", len(queue.Executed))
	}
	if queue.Executed[0].Count("CopyBufferToTexture") != 1 {
		t.Errorf("copy commands: %v", queue.Executed[0].Commands)
	}
}

func TestFramebufferValidation(t *testing.T) {
	device, _, _ := newTestDevice(t)

	makeTexture := func(w, h uint32) renderer.Texture {
		texture, r := device.CreateTexture(metadata.TextureDesc{
			Type:   metadata.TextureType2D,
			Format: metadata.TextureFormatRGBA8UNorm,
			Width:  w,
			Height: h,
			Usage:  metadata.TextureUsageAttachment,
		})
		if !r.IsOk() {
			t.Fatalf("CreateTexture: %v", r.Error())
		}
		return texture
	}

	if _, r := device.CreateFramebuffer(renderer.FramebufferDesc{}); r.Code != core.ArgumentInvalid {
		t.Errorf("empty framebuffer: code = %v, want ArgumentInvalid", r.Code)
	}

	if _, r := device.CreateFramebuffer(renderer.FramebufferDesc{
		ColorAttachments: []renderer.FramebufferAttachment{{Texture: nil}},
	}); r.Code != core.ArgumentNull {
		t.Errorf("nil attachment: code = %v, want ArgumentNull", r.Code)
	}

	if _, r := device.CreateFramebuffer(renderer.FramebufferDesc{
		ColorAttachments: []renderer.FramebufferAttachment{
			{Texture: makeTexture(32, 32)},
			{Texture: makeTexture(16, 16)},
		},
	}); r.Code != core.ArgumentInvalid {
		t.Errorf("mismatched dimensions: code = %v, want ArgumentInvalid", r.Code)
	}

	fb, r := device.CreateFramebuffer(renderer.FramebufferDesc{
		ColorAttachments: []renderer.FramebufferAttachment{{Texture: makeTexture(32, 32)}},
		DepthAttachment:  renderer.FramebufferAttachment{Texture: makeTexture(32, 32)},
	})
	if !r.IsOk() {
		t.Fatalf("CreateFramebuffer: %v", r.Error())
	}
	if fb.Width() != 32 || fb.Height() != 32 {
		t.Errorf("framebuffer is %dx%d, want 32x32", fb.Width(), fb.Height())
	}
}

func TestCommandBufferLifecycle(t *testing.T) {
	device, _, queue := newTestDevice(t)

	cq, r := device.CreateCommandQueue(metadata.CommandQueueDesc{Type: metadata.CommandQueueTypeGraphics})
	if !r.IsOk() {
		t.Fatalf("CreateCommandQueue: %v", r.Error())
	}
	cb, r := cq.CreateCommandBuffer()
	if !r.IsOk() {
		t.Fatalf("CreateCommandBuffer: %v", r.Error())
	}

	encoder, r := cb.CreateComputeCommandEncoder()
	if !r.IsOk() {
		t.Fatalf("CreateComputeCommandEncoder: %v", r.Error())
	}

	// a second encoder while the first is live is refused
	if _, r := cb.CreateComputeCommandEncoder(); r.Code != core.InvalidOperation {
		t.Errorf("nested encoder: code = %v, want InvalidOperation", r.Code)
	}
	// submitting with a live encoder is refused
	if r := cq.Submit(cb, false); r.Code != core.InvalidOperation {
		t.Errorf("submit while encoding: code = %v, want InvalidOperation", r.Code)
	}

	encoder.EndEncoding()
	if r := cq.Submit(cb, false); !r.IsOk() {
		t.Fatalf("Submit: %v", r.Error())
	}
	if len(queue.Executed) != 1 {
		t.Fatalf("executed %d command lists, want 1", len(queue.Executed))
	}
	if !queue.Executed[0].Closed {
		t.Error("submitted command list was not closed")
	}

	if r := cq.Submit(cb, false); r.Code != core.InvalidOperation {
		t.Errorf("double submit: code = %v, want InvalidOperation", r.Code)
	}
	if _, r := cb.CreateComputeCommandEncoder(); r.Code != core.InvalidOperation {
		t.Errorf("encoder after submit: code = %v, want InvalidOperation", r.Code)
	}
}

func TestComputeEncoderSkipsDispatchWithoutPipeline(t *testing.T) {
	device, _, _ := newTestDevice(t)

	cq, _ := device.CreateCommandQueue(metadata.CommandQueueDesc{Type: metadata.CommandQueueTypeCompute})
	cb, _ := cq.CreateCommandBuffer()
	encoder, r := cb.CreateComputeCommandEncoder()
	if !r.IsOk() {
		t.Fatalf("CreateComputeCommandEncoder: %v", r.Error())
	}

	encoder.Dispatch(8, 8, 1)
	list := cb.(*D3D12CommandBuffer).list.(*HeadlessCommandList)
	if list.Count("Dispatch") != 0 {
		t.Errorf("dispatch without a pipeline was recorded: %v", list.Commands)
	}

	pipeline, r := device.CreateComputePipeline(metadata.ComputePipelineDesc{})
	if !r.IsOk() {
		t.Fatalf("CreateComputePipeline: %v", r.Error())
	}
	encoder.BindComputePipelineState(pipeline)
	encoder.Dispatch(8, 8, 1)
	if list.Count("Dispatch") != 1 {
		t.Errorf("dispatch with a pipeline was not recorded: %v", list.Commands)
	}

	encoder.EndEncoding()
	encoder.Dispatch(1, 1, 1)
	if list.Count("Dispatch") != 1 {
		t.Errorf("dispatch after EndEncoding was recorded")
	}
}

func TestSubmitRecyclesDescriptorHeaps(t *testing.T) {
	device, native, _ := newTestDevice(t)

	color, _ := device.CreateTexture(metadata.TextureDesc{
		Type: metadata.TextureType2D, Format: metadata.TextureFormatRGBA8UNorm,
		Width: 64, Height: 64, Usage: metadata.TextureUsageAttachment,
	})
	fb, _ := device.CreateFramebuffer(renderer.FramebufferDesc{
		ColorAttachments: []renderer.FramebufferAttachment{{Texture: color}},
	})
	sampled, _ := device.CreateTexture(metadata.TextureDesc{
		Type: metadata.TextureType2D, Format: metadata.TextureFormatRGBA8UNorm,
		Width: 16, Height: 16, Usage: metadata.TextureUsageSampled,
	})
	pipeline, _ := device.CreateRenderPipeline(metadata.RenderPipelineDesc{
		ColorFormats: []metadata.TextureFormat{metadata.TextureFormatRGBA8UNorm},
	})
	cq, _ := device.CreateCommandQueue(metadata.CommandQueueDesc{Type: metadata.CommandQueueTypeGraphics})

	pass := metadata.RenderPassDesc{
		ColorAttachments: []metadata.ColorAttachmentDesc{{
			LoadAction:  metadata.LoadActionClear,
			StoreAction: metadata.StoreActionStore,
		}},
	}

	heapsAfterSetup := native.HeapsCreated

	// far more single-draw frames than the initial heap holds descriptors;
	// every frame's work completes before the next one is recorded, so the
	// per-frame ranges must be recycled instead of growing the heap
	frames := int(D3D12_INITIAL_HEAP_CAPACITY) * 3
	for i := 0; i < frames; i++ {
		cb, r := cq.CreateCommandBuffer()
		if !r.IsOk() {
			t.Fatalf("frame %d: CreateCommandBuffer: %s", i, r.Error())
		}
		encoder, r := cb.CreateRenderCommandEncoder(pass, fb)
		if !r.IsOk() {
			t.Fatalf("frame %d: CreateRenderCommandEncoder: %s", i, r.Error())
		}
		encoder.BindRenderPipelineState(pipeline)
		encoder.BindTexture(0, sampled)
		encoder.Draw(3, 1, 0, 0)
		encoder.EndEncoding()
		if r := cq.Submit(cb, false); !r.IsOk() {
			t.Fatalf("frame %d: Submit: %s", i, r.Error())
		}
	}

	if native.HeapsCreated != heapsAfterSetup {
		t.Errorf("heaps grew from %d to %d across idle-GPU frames", heapsAfterSetup, native.HeapsCreated)
	}
	if got := device.context.ViewHeap.Allocated(); got != 0 {
		t.Errorf("view heap still holds %d descriptors after the frame completed", got)
	}
	if got := device.context.SamplerHeap.Allocated(); got != 0 {
		t.Errorf("sampler heap still holds %d descriptors after the frame completed", got)
	}
}

func TestRenderEncoderPassSetup(t *testing.T) {
	device, _, _ := newTestDevice(t)

	color, _ := device.CreateTexture(metadata.TextureDesc{
		Type: metadata.TextureType2D, Format: metadata.TextureFormatRGBA8UNorm,
		Width: 64, Height: 64, Usage: metadata.TextureUsageAttachment,
	})
	fb, r := device.CreateFramebuffer(renderer.FramebufferDesc{
		ColorAttachments: []renderer.FramebufferAttachment{{Texture: color}},
	})
	if !r.IsOk() {
		t.Fatalf("CreateFramebuffer: %v", r.Error())
	}

	cq, _ := device.CreateCommandQueue(metadata.CommandQueueDesc{Type: metadata.CommandQueueTypeGraphics})
	cb, _ := cq.CreateCommandBuffer()

	pass := metadata.RenderPassDesc{
		ColorAttachments: []metadata.ColorAttachmentDesc{{
			LoadAction:  metadata.LoadActionClear,
			StoreAction: metadata.StoreActionStore,
			ClearColor:  metadata.Color{R: 1},
		}},
	}

	// attachment count mismatch is refused
	badPass := metadata.RenderPassDesc{}
	if _, r := cb.CreateRenderCommandEncoder(badPass, fb); r.Code != core.ArgumentInvalid {
		t.Errorf("mismatched pass: code = %v, want ArgumentInvalid", r.Code)
	}

	encoder, r := cb.CreateRenderCommandEncoder(pass, fb)
	if !r.IsOk() {
		t.Fatalf("CreateRenderCommandEncoder: %v", r.Error())
	}

	list := cb.(*D3D12CommandBuffer).list.(*HeadlessCommandList)
	if list.Count("SetRenderTargets") != 1 {
		t.Errorf("render targets were not set: %v", list.Commands)
	}
	if list.Count("ClearRenderTarget") != 1 {
		t.Errorf("clear was not recorded for a LoadActionClear attachment")
	}
	if list.Count("SetViewport") != 1 || list.Count("SetScissorRect") != 1 {
		t.Errorf("default viewport/scissor missing: %v", list.Commands)
	}

	encoder.Draw(3, 1, 0, 0)
	if list.Count("DrawInstanced") != 0 {
		t.Errorf("draw without a pipeline was recorded")
	}

	pipeline, _ := device.CreateRenderPipeline(metadata.RenderPipelineDesc{
		ColorFormats: []metadata.TextureFormat{metadata.TextureFormatRGBA8UNorm},
	})
	encoder.BindRenderPipelineState(pipeline)
	encoder.Draw(3, 1, 0, 0)
	if list.Count("DrawInstanced") != 1 {
		t.Errorf("draw with a pipeline was not recorded: %v", list.Commands)
	}

	encoder.EndEncoding()
}
