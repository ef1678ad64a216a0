package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/igloo-gfx/igloo/engine/core"
	"github.com/igloo-gfx/igloo/engine/renderer/metadata"
)

// VulkanRenderPass wraps a native render pass. Clear values are supplied at
// Begin time so one pass can be cached across draws with different clears.
type VulkanRenderPass struct {
	Handle   vk.RenderPass
	HasDepth bool
}

// BuildClearValues derives the native clear values from a pass description,
// colors first and depth last, matching the attachment order.
func BuildClearValues(desc metadata.RenderPassDesc) []vk.ClearValue {
	values := make([]vk.ClearValue, 0, len(desc.ColorAttachments)+1)
	for _, colorDesc := range desc.ColorAttachments {
		var clear vk.ClearValue
		clear.SetColor([]float32{colorDesc.ClearColor.R, colorDesc.ClearColor.G, colorDesc.ClearColor.B, colorDesc.ClearColor.A})
		values = append(values, clear)
	}
	if desc.DepthAttachment != nil {
		var clear vk.ClearValue
		clear.SetDepthStencil(desc.DepthAttachment.ClearDepth, desc.DepthAttachment.ClearStencil)
		values = append(values, clear)
	}
	return values
}

func loadOpFor(action metadata.LoadAction) vk.AttachmentLoadOp {
	switch action {
	case metadata.LoadActionLoad:
		return vk.AttachmentLoadOpLoad
	case metadata.LoadActionClear:
		return vk.AttachmentLoadOpClear
	default:
		return vk.AttachmentLoadOpDontCare
	}
}

func storeOpFor(action metadata.StoreAction) vk.AttachmentStoreOp {
	// a multisampled attachment that only resolves does not need its own
	// contents stored
	if action == metadata.StoreActionStore {
		return vk.AttachmentStoreOpStore
	}
	return vk.AttachmentStoreOpDontCare
}

// RenderPassCreate builds a single-subpass render pass from the pass
// description. colorFormats and depthFormat describe the attachments the
// pass renders into; depthFormat is UNDEFINED when the pass has no depth
// attachment.
func RenderPassCreate(context *VulkanContext, desc metadata.RenderPassDesc, colorFormats []vk.Format, depthFormat vk.Format, finalColorLayout vk.ImageLayout) (*VulkanRenderPass, error) {
	if len(desc.ColorAttachments) != len(colorFormats) {
		return nil, fmt.Errorf("render pass has %d color attachments but %d formats", len(desc.ColorAttachments), len(colorFormats))
	}

	rp := &VulkanRenderPass{}

	attachments := make([]vk.AttachmentDescription, 0, len(colorFormats)+1)
	colorRefs := make([]vk.AttachmentReference, 0, len(colorFormats))

	for i, format := range colorFormats {
		colorDesc := desc.ColorAttachments[i]
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         format,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         loadOpFor(colorDesc.LoadAction),
			StoreOp:        storeOpFor(colorDesc.StoreAction),
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    finalColorLayout,
		})
		colorRefs = append(colorRefs, vk.AttachmentReference{
			Attachment: uint32(i),
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		})
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorRefs)),
		PColorAttachments:    colorRefs,
	}

	if desc.DepthAttachment != nil {
		rp.HasDepth = true
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         depthFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         loadOpFor(desc.DepthAttachment.LoadAction),
			StoreOp:        storeOpFor(desc.DepthAttachment.StoreAction),
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		})
		subpass.PDepthStencilAttachment = &vk.AttachmentReference{
			Attachment: uint32(len(attachments) - 1),
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var handle vk.RenderPass
	if res := vk.CreateRenderPass(context.Device.LogicalDevice, &createInfo, context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create render pass: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	rp.Handle = handle

	return rp, nil
}

// Begin records the begin command over the given render area.
func (rp *VulkanRenderPass) Begin(cmdBuf vk.CommandBuffer, framebuffer vk.Framebuffer, width, height uint32, clearValues []vk.ClearValue) {
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  rp.Handle,
		Framebuffer: framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: width, Height: height},
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(cmdBuf, &beginInfo, vk.SubpassContentsInline)
}

func (rp *VulkanRenderPass) End(cmdBuf vk.CommandBuffer) {
	vk.CmdEndRenderPass(cmdBuf)
}

func (rp *VulkanRenderPass) Destroy(context *VulkanContext) {
	if rp.Handle != nil {
		vk.DestroyRenderPass(context.Device.LogicalDevice, rp.Handle, context.Allocator)
		rp.Handle = nil
	}
}
