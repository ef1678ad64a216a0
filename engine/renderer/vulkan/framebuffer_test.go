package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
)

func testImage(gpu *fakeGPU, width, height uint32) *VulkanImage {
	return &VulkanImage{
		View:      gpu.newImageView(),
		Width:     width,
		Height:    height,
		Depth:     1,
		NumMips:   1,
		NumLayers: 1,
	}
}

func TestFramebufferCacheReusesSameAttachments(t *testing.T) {
	gpu := newFakeGPU()
	cache := NewFramebufferCache(gpu.functionTable(), nil)

	color := testImage(gpu, 64, 64)
	depth := testImage(gpu, 64, 64)

	first, err := cache.Get(nil, []*VulkanImage{color, depth}, 0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	second, err := cache.Get(nil, []*VulkanImage{color, depth}, 0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if first != second {
		t.Error("same attachment list produced a different framebuffer")
	}
	if gpu.framebuffersCreated != 1 {
		t.Errorf("created %d framebuffers, want 1", gpu.framebuffersCreated)
	}
	if cache.Len() != 1 {
		t.Errorf("cache holds %d entries, want 1", cache.Len())
	}
}

func TestFramebufferCacheDistinguishesAttachmentOrder(t *testing.T) {
	gpu := newFakeGPU()
	cache := NewFramebufferCache(gpu.functionTable(), nil)

	a := testImage(gpu, 32, 32)
	b := testImage(gpu, 32, 32)

	// the XOR hash collides for {a,b} and {b,a}; equality must still tell
	// them apart
	first, err := cache.Get(nil, []*VulkanImage{a, b}, 0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	swapped, err := cache.Get(nil, []*VulkanImage{b, a}, 0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if first == swapped {
		t.Error("reversed attachment order returned the same framebuffer")
	}
	if gpu.framebuffersCreated != 2 {
		t.Errorf("created %d framebuffers, want 2", gpu.framebuffersCreated)
	}
}

func TestFramebufferCacheRejectsMismatchedDimensions(t *testing.T) {
	gpu := newFakeGPU()
	cache := NewFramebufferCache(gpu.functionTable(), nil)

	if _, err := cache.Get(nil, nil, 0); err == nil {
		t.Error("empty attachment list succeeded, want error")
	}

	color := testImage(gpu, 64, 64)
	depth := testImage(gpu, 32, 32)
	if _, err := cache.Get(nil, []*VulkanImage{color, depth}, 0); err == nil {
		t.Error("mismatched attachment dimensions succeeded, want error")
	}
	if gpu.framebuffersCreated != 0 {
		t.Errorf("created %d framebuffers for rejected requests, want 0", gpu.framebuffersCreated)
	}
}

func TestFramebufferCacheClearDestroysEverything(t *testing.T) {
	gpu := newFakeGPU()
	cache := NewFramebufferCache(gpu.functionTable(), nil)

	for i := 0; i < 3; i++ {
		if _, err := cache.Get(nil, []*VulkanImage{testImage(gpu, 16, 16)}, 0); err != nil {
			t.Fatalf("Get: %v", err)
		}
	}
	if cache.Len() != 3 {
		t.Fatalf("cache holds %d entries, want 3", cache.Len())
	}

	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("cache holds %d entries after Clear, want 0", cache.Len())
	}
	if gpu.framebuffersDestroyed != 3 {
		t.Errorf("destroyed %d framebuffers, want 3", gpu.framebuffersDestroyed)
	}

	// the cache is usable after a clear
	if _, err := cache.Get(nil, []*VulkanImage{testImage(gpu, 16, 16)}, 0); err != nil {
		t.Fatalf("Get after Clear: %v", err)
	}
	if cache.Len() != 1 {
		t.Errorf("cache holds %d entries, want 1", cache.Len())
	}
}

func TestFramebufferCacheUsesMipDimensions(t *testing.T) {
	gpu := newFakeGPU()
	ft := gpu.functionTable()

	var gotWidth, gotHeight uint32
	inner := ft.CreateFramebuffer
	ft.CreateFramebuffer = func(device vk.Device, pCreateInfo *vk.FramebufferCreateInfo, pAllocator *vk.AllocationCallbacks, pFramebuffer *vk.Framebuffer) vk.Result {
		gotWidth = pCreateInfo.Width
		gotHeight = pCreateInfo.Height
		return inner(device, pCreateInfo, pAllocator, pFramebuffer)
	}

	cache := NewFramebufferCache(ft, nil)
	if _, err := cache.Get(nil, []*VulkanImage{testImage(gpu, 256, 128)}, 3); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if gotWidth != 32 || gotHeight != 16 {
		t.Errorf("framebuffer is %dx%d at mip 3, want 32x16", gotWidth, gotHeight)
	}
}
