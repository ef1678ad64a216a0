package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
)

func stage(bits ...vk.PipelineStageFlagBits) vk.PipelineStageFlags {
	var mask vk.PipelineStageFlags
	for _, bit := range bits {
		mask |= vk.PipelineStageFlags(bit)
	}
	return mask
}

func access(bits ...vk.AccessFlagBits) vk.AccessFlags {
	var mask vk.AccessFlags
	for _, bit := range bits {
		mask |= vk.AccessFlags(bit)
	}
	return mask
}

func TestSrcAccessMaskForStages(t *testing.T) {
	tests := []struct {
		name   string
		stages vk.PipelineStageFlags
		want   vk.AccessFlags
		wantOk bool
	}{
		{"top of pipe", stage(vk.PipelineStageTopOfPipeBit), 0, true},
		{"bottom of pipe", stage(vk.PipelineStageBottomOfPipeBit), 0, true},
		{"all commands", stage(vk.PipelineStageAllCommandsBit), 0, true},
		{"color output", stage(vk.PipelineStageColorAttachmentOutputBit), access(vk.AccessColorAttachmentWriteBit), true},
		{"late fragment tests", stage(vk.PipelineStageLateFragmentTestsBit), access(vk.AccessDepthStencilAttachmentWriteBit), true},
		{"early fragment tests", stage(vk.PipelineStageEarlyFragmentTestsBit), access(vk.AccessDepthStencilAttachmentReadBit, vk.AccessDepthStencilAttachmentWriteBit), true},
		{"transfer", stage(vk.PipelineStageTransferBit), access(vk.AccessTransferWriteBit), true},
		{"compute", stage(vk.PipelineStageComputeShaderBit), access(vk.AccessShaderReadBit, vk.AccessShaderWriteBit), true},
		{"fragment shader", stage(vk.PipelineStageFragmentShaderBit), access(vk.AccessShaderReadBit), true},
		{"combined", stage(vk.PipelineStageColorAttachmentOutputBit, vk.PipelineStageTransferBit), access(vk.AccessColorAttachmentWriteBit, vk.AccessTransferWriteBit), true},
		{"unrecognized", stage(vk.PipelineStageHostBit), 0, false},
		{"recognized plus unrecognized", stage(vk.PipelineStageTransferBit, vk.PipelineStageHostBit), access(vk.AccessTransferWriteBit), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := srcAccessMaskForStages(tt.stages)
			if ok != tt.wantOk {
				t.Fatalf("ok = %t, want %t", ok, tt.wantOk)
			}
			if tt.wantOk && got != tt.want {
				t.Errorf("access = %x, want %x", got, tt.want)
			}
		})
	}
}

func TestDstAccessMaskForStages(t *testing.T) {
	tests := []struct {
		name   string
		stages vk.PipelineStageFlags
		want   vk.AccessFlags
		wantOk bool
	}{
		{"bottom of pipe", stage(vk.PipelineStageBottomOfPipeBit), 0, true},
		{"vertex shader", stage(vk.PipelineStageVertexShaderBit), access(vk.AccessShaderReadBit), true},
		{"vertex input", stage(vk.PipelineStageVertexInputBit), access(vk.AccessIndexReadBit, vk.AccessVertexAttributeReadBit), true},
		{"draw indirect", stage(vk.PipelineStageDrawIndirectBit), access(vk.AccessIndirectCommandReadBit), true},
		{"color output", stage(vk.PipelineStageColorAttachmentOutputBit), access(vk.AccessColorAttachmentReadBit, vk.AccessColorAttachmentWriteBit), true},
		{"transfer", stage(vk.PipelineStageTransferBit), access(vk.AccessTransferReadBit, vk.AccessTransferWriteBit), true},
		{"depth both", stage(vk.PipelineStageEarlyFragmentTestsBit, vk.PipelineStageLateFragmentTestsBit), access(vk.AccessDepthStencilAttachmentReadBit, vk.AccessDepthStencilAttachmentWriteBit), true},
		{"unrecognized", stage(vk.PipelineStageHostBit), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := dstAccessMaskForStages(tt.stages)
			if ok != tt.wantOk {
				t.Fatalf("ok = %t, want %t", ok, tt.wantOk)
			}
			if tt.wantOk && got != tt.want {
				t.Errorf("access = %x, want %x", got, tt.want)
			}
		})
	}
}

func TestTransitionLayoutRecordsOneBarrier(t *testing.T) {
	gpu := newFakeGPU()
	ft := gpu.functionTable()

	image := &VulkanImage{
		Width: 16, Height: 16, Depth: 1,
		NumMips: 1, NumLayers: 1,
		Layout: vk.ImageLayoutUndefined,
	}
	colorRange := image.FullRange(vk.ImageAspectFlags(vk.ImageAspectColorBit))

	image.TransitionLayout(ft, nil, vk.ImageLayoutTransferDstOptimal,
		stage(vk.PipelineStageFragmentShaderBit),
		stage(vk.PipelineStageTransferBit),
		colorRange)

	if len(gpu.barriers) != 1 {
		t.Fatalf("recorded %d barriers, want 1", len(gpu.barriers))
	}
	barrier := gpu.barriers[0]
	if len(barrier.images) != 1 {
		t.Fatalf("recorded %d image barriers, want 1", len(barrier.images))
	}
	// undefined source layout collapses the source stage to top-of-pipe
	if barrier.srcStageMask != stage(vk.PipelineStageTopOfPipeBit) {
		t.Errorf("srcStageMask = %x, want top-of-pipe for an undefined image", barrier.srcStageMask)
	}
	if barrier.images[0].OldLayout != vk.ImageLayoutUndefined {
		t.Errorf("OldLayout = %v, want undefined", barrier.images[0].OldLayout)
	}
	if barrier.images[0].NewLayout != vk.ImageLayoutTransferDstOptimal {
		t.Errorf("NewLayout = %v, want transfer-dst", barrier.images[0].NewLayout)
	}
	if image.Layout != vk.ImageLayoutTransferDstOptimal {
		t.Errorf("tracked layout = %v, want transfer-dst", image.Layout)
	}

	// a second transition starts from the tracked layout and keeps the
	// requested source stage
	image.TransitionLayout(ft, nil, vk.ImageLayoutShaderReadOnlyOptimal,
		stage(vk.PipelineStageTransferBit),
		stage(vk.PipelineStageFragmentShaderBit),
		colorRange)

	if len(gpu.barriers) != 2 {
		t.Fatalf("recorded %d barriers, want 2", len(gpu.barriers))
	}
	second := gpu.barriers[1]
	if second.srcStageMask != stage(vk.PipelineStageTransferBit) {
		t.Errorf("srcStageMask = %x, want transfer", second.srcStageMask)
	}
	if second.images[0].OldLayout != vk.ImageLayoutTransferDstOptimal {
		t.Errorf("OldLayout = %v, want transfer-dst", second.images[0].OldLayout)
	}
	if second.images[0].SrcAccessMask != access(vk.AccessTransferWriteBit) {
		t.Errorf("SrcAccessMask = %x, want transfer-write", second.images[0].SrcAccessMask)
	}
}

func TestTransitionLayoutToSameLayoutStaysConsistent(t *testing.T) {
	gpu := newFakeGPU()
	ft := gpu.functionTable()

	image := &VulkanImage{
		Width: 16, Height: 16, Depth: 1,
		NumMips: 1, NumLayers: 1,
		Layout: vk.ImageLayoutShaderReadOnlyOptimal,
	}
	colorRange := image.FullRange(vk.ImageAspectFlags(vk.ImageAspectColorBit))

	// requesting the layout the image is already in degenerates to a plain
	// memory barrier: same old/new layout, valid access masks
	image.TransitionLayout(ft, nil, vk.ImageLayoutShaderReadOnlyOptimal,
		stage(vk.PipelineStageFragmentShaderBit),
		stage(vk.PipelineStageFragmentShaderBit),
		colorRange)

	if len(gpu.barriers) != 1 {
		t.Fatalf("recorded %d barriers, want 1", len(gpu.barriers))
	}
	same := gpu.barriers[0]
	if same.images[0].OldLayout != vk.ImageLayoutShaderReadOnlyOptimal ||
		same.images[0].NewLayout != vk.ImageLayoutShaderReadOnlyOptimal {
		t.Errorf("barrier layouts = %v -> %v, want shader-read-only on both sides",
			same.images[0].OldLayout, same.images[0].NewLayout)
	}
	if same.images[0].SrcAccessMask != access(vk.AccessShaderReadBit) {
		t.Errorf("SrcAccessMask = %x, want shader-read", same.images[0].SrcAccessMask)
	}
	if image.Layout != vk.ImageLayoutShaderReadOnlyOptimal {
		t.Errorf("tracked layout = %v, want shader-read-only", image.Layout)
	}

	// the tracked state is not corrupted: the next real transition starts
	// from shader-read-only, not undefined
	image.TransitionLayout(ft, nil, vk.ImageLayoutTransferDstOptimal,
		stage(vk.PipelineStageFragmentShaderBit),
		stage(vk.PipelineStageTransferBit),
		colorRange)

	if len(gpu.barriers) != 2 {
		t.Fatalf("recorded %d barriers, want 2", len(gpu.barriers))
	}
	next := gpu.barriers[1]
	if next.images[0].OldLayout != vk.ImageLayoutShaderReadOnlyOptimal {
		t.Errorf("OldLayout = %v, want shader-read-only", next.images[0].OldLayout)
	}
	if next.srcStageMask != stage(vk.PipelineStageFragmentShaderBit) {
		t.Errorf("srcStageMask = %x, want fragment shader", next.srcStageMask)
	}
	if image.Layout != vk.ImageLayoutTransferDstOptimal {
		t.Errorf("tracked layout = %v, want transfer-dst", image.Layout)
	}
}

func TestTransitionLayoutRejectsUnknownStages(t *testing.T) {
	gpu := newFakeGPU()
	ft := gpu.functionTable()

	image := &VulkanImage{
		Width: 4, Height: 4, Depth: 1,
		NumMips: 1, NumLayers: 1,
		Layout: vk.ImageLayoutColorAttachmentOptimal,
	}

	image.TransitionLayout(ft, nil, vk.ImageLayoutPresentSrc,
		stage(vk.PipelineStageHostBit),
		stage(vk.PipelineStageBottomOfPipeBit),
		image.FullRange(vk.ImageAspectFlags(vk.ImageAspectColorBit)))

	if len(gpu.barriers) != 0 {
		t.Error("a barrier was recorded despite the unknown source stage")
	}
	if image.Layout != vk.ImageLayoutColorAttachmentOptimal {
		t.Error("tracked layout changed despite the skipped barrier")
	}
}

func TestFullRangeCoversAllMipsAndLayers(t *testing.T) {
	image := &VulkanImage{NumMips: 5, NumLayers: 3}
	r := image.FullRange(vk.ImageAspectFlags(vk.ImageAspectDepthBit))
	if r.BaseMipLevel != 0 || r.LevelCount != 5 || r.BaseArrayLayer != 0 || r.LayerCount != 3 {
		t.Errorf("range = %+v, want full coverage of 5 mips and 3 layers", r)
	}
	if r.AspectMask != vk.ImageAspectFlags(vk.ImageAspectDepthBit) {
		t.Errorf("aspect = %x, want depth", r.AspectMask)
	}
}
