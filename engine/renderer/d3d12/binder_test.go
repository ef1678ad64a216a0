package d3d12

import (
	"testing"

	"github.com/igloo-gfx/igloo/engine/core"
)

func newTestContext(t *testing.T) (*D3D12Context, *HeadlessDevice, *HeadlessCommandQueue) {
	t.Helper()
	device := &HeadlessDevice{}
	queue := &HeadlessCommandQueue{}
	context, err := NewD3D12Context(device, queue)
	if err != nil {
		t.Fatalf("NewD3D12Context: %v", err)
	}
	return context, device, queue
}

func newTestBuffer(t *testing.T, context *D3D12Context, size uint64) *D3D12Buffer {
	t.Helper()
	resource, err := context.Native.CreateBufferResource(size, false, ResourceStateCommon)
	if err != nil {
		t.Fatalf("CreateBufferResource: %v", err)
	}
	return &D3D12Buffer{resource: resource, size: size, state: ResourceStateCommon, context: context}
}

func newTestTexture(t *testing.T, context *D3D12Context) *D3D12Texture {
	t.Helper()
	resource := &headlessResource{size: 64 * 64 * 4}
	return &D3D12Texture{resource: resource, state: ResourceStateCommon, context: context}
}

func TestBinderSparseBindingsRejected(t *testing.T) {
	context, device, _ := newTestContext(t)
	binder := NewResourcesBinder(context, false)
	list := &HeadlessCommandList{}

	// slots 0 and 2 bound, slot 1 empty
	binder.BindTexture(0, newTestTexture(t, context))
	binder.BindTexture(2, newTestTexture(t, context))

	r := binder.UpdateBindings(list)
	if r.Code != core.InvalidOperation {
		t.Fatalf("UpdateBindings = %v, want InvalidOperation", r.Code)
	}
	if device.ShaderResourceViews != 0 {
		t.Errorf("created %d shader resource views before rejecting", device.ShaderResourceViews)
	}
	if list.Count("SetGraphicsRootDescriptorTable") != 0 {
		t.Errorf("a root table was set despite rejection: %v", list.Commands)
	}
}

func TestBinderConstantBufferValidation(t *testing.T) {
	tests := []struct {
		name     string
		offset   uint64
		size     uint64
		wantCode core.ResultCode
	}{
		{"aligned offset", 256, 256, core.Ok},
		{"zero offset", 0, 65536, core.Ok},
		{"misaligned offset", 100, 256, core.ArgumentInvalid},
		{"oversized view", 0, 65537, core.ArgumentOutOfRange},
		{"misaligned and large", 128, 70000, core.ArgumentInvalid}, // alignment checked first
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			context, device, _ := newTestContext(t)
			binder := NewResourcesBinder(context, false)
			list := &HeadlessCommandList{}

			buffer := newTestBuffer(t, context, 1<<20)
			if r := binder.BindConstantBuffer(0, buffer, tt.offset, tt.size); !r.IsOk() {
				t.Fatalf("BindConstantBuffer: %v", r.Error())
			}

			r := binder.UpdateBindings(list)
			if r.Code != tt.wantCode {
				t.Fatalf("UpdateBindings code = %v, want %v (%s)", r.Code, tt.wantCode, r.Message)
			}
			if tt.wantCode != core.Ok {
				if device.ConstantBufferViews != 0 {
					t.Errorf("created %d constant buffer views before rejecting", device.ConstantBufferViews)
				}
				if list.Count("SetGraphicsRootDescriptorTable") != 0 {
					t.Errorf("a root table was set despite rejection")
				}
			} else {
				if device.ConstantBufferViews != 1 {
					t.Errorf("created %d constant buffer views, want 1", device.ConstantBufferViews)
				}
			}
		})
	}
}

func TestBinderUAVValidation(t *testing.T) {
	tests := []struct {
		name       string
		bufferSize uint64
		offset     uint64
		stride     uint64
		bindCode   core.ResultCode
		flushCode  core.ResultCode
	}{
		{"valid", 1024, 0, 16, core.Ok, core.Ok},
		{"offset at element boundary", 1024, 64, 16, core.Ok, core.Ok},
		{"zero stride", 1024, 0, 0, core.ArgumentInvalid, core.Ok},
		{"misaligned offset", 1024, 10, 16, core.Ok, core.ArgumentInvalid},
		{"no room for one element", 1024, 1020, 16, core.Ok, core.ArgumentOutOfRange}, // 4 bytes left
		{"offset past end", 1024, 2048, 16, core.Ok, core.ArgumentOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			context, device, _ := newTestContext(t)
			binder := NewResourcesBinder(context, true)
			list := &HeadlessCommandList{}

			buffer := newTestBuffer(t, context, tt.bufferSize)
			r := binder.BindUAV(0, buffer, tt.offset, tt.stride)
			if r.Code != tt.bindCode {
				t.Fatalf("BindUAV code = %v, want %v", r.Code, tt.bindCode)
			}
			if tt.bindCode != core.Ok {
				return
			}

			r = binder.UpdateBindings(list)
			if r.Code != tt.flushCode {
				t.Fatalf("UpdateBindings code = %v, want %v (%s)", r.Code, tt.flushCode, r.Message)
			}
			if tt.flushCode != core.Ok && device.UnorderedAccessViews != 0 {
				t.Errorf("created %d UAVs before rejecting", device.UnorderedAccessViews)
			}
		})
	}
}

func TestBinderUnbindShrinksCount(t *testing.T) {
	context, _, _ := newTestContext(t)
	binder := NewResourcesBinder(context, false)

	binder.BindTexture(0, newTestTexture(t, context))
	binder.BindTexture(1, newTestTexture(t, context))
	binder.BindTexture(2, newTestTexture(t, context))
	if binder.numTextures != 3 {
		t.Fatalf("numTextures = %d, want 3", binder.numTextures)
	}

	// unbinding the highest slot shrinks past any trailing empties
	binder.BindTexture(1, nil)
	if binder.numTextures != 3 {
		t.Fatalf("numTextures = %d after unbinding a middle slot, want 3", binder.numTextures)
	}
	binder.BindTexture(2, nil)
	if binder.numTextures != 1 {
		t.Fatalf("numTextures = %d after unbinding the tail, want 1", binder.numTextures)
	}
	binder.BindTexture(0, nil)
	if binder.numTextures != 0 {
		t.Fatalf("numTextures = %d after unbinding everything, want 0", binder.numTextures)
	}
}

func TestBinderFlushIssuesOneTablePerCategory(t *testing.T) {
	context, device, _ := newTestContext(t)
	binder := NewResourcesBinder(context, false)
	list := &HeadlessCommandList{}

	binder.BindTexture(0, newTestTexture(t, context))
	binder.BindTexture(1, newTestTexture(t, context))
	buffer := newTestBuffer(t, context, 4096)
	binder.BindConstantBuffer(0, buffer, 0, 256)

	if r := binder.UpdateBindings(list); !r.IsOk() {
		t.Fatalf("UpdateBindings: %v", r.Error())
	}
	if got := list.Count("SetGraphicsRootDescriptorTable"); got != 2 {
		t.Errorf("root tables set = %d, want 2 (textures + constant buffers)", got)
	}
	if device.ShaderResourceViews != 2 {
		t.Errorf("shader resource views = %d, want 2", device.ShaderResourceViews)
	}
	if device.ConstantBufferViews != 1 {
		t.Errorf("constant buffer views = %d, want 1", device.ConstantBufferViews)
	}

	// a clean flush is a no-op
	before := len(list.Commands)
	if r := binder.UpdateBindings(list); !r.IsOk() {
		t.Fatalf("second UpdateBindings: %v", r.Error())
	}
	// texture transitions may not repeat either
	if len(list.Commands) != before {
		t.Errorf("clean flush recorded commands: %v", list.Commands[before:])
	}
}

func TestBinderComputeUsesComputeTables(t *testing.T) {
	context, _, _ := newTestContext(t)
	binder := NewResourcesBinder(context, true)
	list := &HeadlessCommandList{}

	buffer := newTestBuffer(t, context, 1024)
	if r := binder.BindUAV(0, buffer, 0, 16); !r.IsOk() {
		t.Fatalf("BindUAV: %v", r.Error())
	}
	if r := binder.UpdateBindings(list); !r.IsOk() {
		t.Fatalf("UpdateBindings: %v", r.Error())
	}
	if list.Count("SetComputeRootDescriptorTable") != 1 {
		t.Errorf("compute root tables = %d, want 1", list.Count("SetComputeRootDescriptorTable"))
	}
	if list.Count("SetGraphicsRootDescriptorTable") != 0 {
		t.Errorf("graphics root table set on a compute binder")
	}
}
