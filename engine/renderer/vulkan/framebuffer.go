package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/igloo-gfx/igloo/engine/core"
	"github.com/igloo-gfx/igloo/engine/math"
)

// FramebufferAttachments is the value key of the framebuffer cache: the
// ordered list of attachment views a framebuffer is created from. The order
// is fixed: color attachments in index order, each immediately followed by
// its resolve view when present, then the depth view, then the depth resolve
// view.
type FramebufferAttachments struct {
	Views []vk.ImageView
}

// Equal reports pairwise view equality in order.
func (fa FramebufferAttachments) Equal(other FramebufferAttachments) bool {
	if len(fa.Views) != len(other.Views) {
		return false
	}
	for i := range fa.Views {
		if fa.Views[i] != other.Views[i] {
			return false
		}
	}
	return true
}

// Hash combines the per-view hashes with XOR, so the hash is independent of
// incidental pointer ordering within a view handle but sensitive to the set
// of views.
func (fa FramebufferAttachments) Hash() uint64 {
	var h uint64
	for _, view := range fa.Views {
		h ^= uint64(uintptr(unsafe.Pointer(view)))
	}
	return h
}

type framebufferEntry struct {
	attachments FramebufferAttachments
	framebuffer vk.Framebuffer
}

// FramebufferCache reuses framebuffers across frames. Framebuffers are keyed
// by their attachment views, not by pass description, so two passes rendering
// into the same views share one framebuffer.
type FramebufferCache struct {
	ft     *FunctionTable
	device vk.Device

	// hash buckets; collisions fall back to pairwise equality
	entries map[uint64][]framebufferEntry
}

func NewFramebufferCache(ft *FunctionTable, device vk.Device) *FramebufferCache {
	return &FramebufferCache{
		ft:      ft,
		device:  device,
		entries: make(map[uint64][]framebufferEntry),
	}
}

// Get returns the cached framebuffer for the attachment list, creating it on
// a miss. All attachments must share the same base dimensions; the
// framebuffer dimensions are those of the first attachment at mipLevel.
func (c *FramebufferCache) Get(renderPass vk.RenderPass, attachments []*VulkanImage, mipLevel uint32) (vk.Framebuffer, error) {
	if len(attachments) == 0 {
		return nil, fmt.Errorf("cannot create a framebuffer with no attachments")
	}

	width := attachments[0].Width
	height := attachments[0].Height
	for _, attachment := range attachments {
		if attachment.Width != width || attachment.Height != height {
			return nil, fmt.Errorf("framebuffer attachment `%s` is %dx%d, expected %dx%d",
				attachment.DebugName, attachment.Width, attachment.Height, width, height)
		}
	}

	key := FramebufferAttachments{Views: make([]vk.ImageView, len(attachments))}
	for i, attachment := range attachments {
		key.Views[i] = attachment.View
	}

	hash := key.Hash()
	for _, entry := range c.entries[hash] {
		if entry.attachments.Equal(key) {
			return entry.framebuffer, nil
		}
	}

	fbWidth := math.MipDimension(width, mipLevel)
	fbHeight := math.MipDimension(height, mipLevel)

	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderPass,
		AttachmentCount: uint32(len(key.Views)),
		PAttachments:    key.Views,
		Width:           fbWidth,
		Height:          fbHeight,
		Layers:          1,
	}

	var framebuffer vk.Framebuffer
	if res := c.ft.CreateFramebuffer(c.device, &createInfo, nil, &framebuffer); res != vk.Success {
		err := fmt.Errorf("failed to create framebuffer: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	c.entries[hash] = append(c.entries[hash], framebufferEntry{attachments: key, framebuffer: framebuffer})
	return framebuffer, nil
}

// Len returns the number of cached framebuffers.
func (c *FramebufferCache) Len() int {
	n := 0
	for _, bucket := range c.entries {
		n += len(bucket)
	}
	return n
}

// Clear destroys every cached framebuffer. Call it on swapchain recreation,
// when the old attachment views become invalid.
func (c *FramebufferCache) Clear() {
	for _, bucket := range c.entries {
		for _, entry := range bucket {
			c.ft.DestroyFramebuffer(c.device, entry.framebuffer, nil)
		}
	}
	c.entries = make(map[uint64][]framebufferEntry)
}
