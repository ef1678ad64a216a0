package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/igloo-gfx/igloo/engine/core"
	"github.com/igloo-gfx/igloo/engine/renderer/metadata"
)

func textureFormat(format metadata.TextureFormat) vk.Format {
	switch format {
	case metadata.TextureFormatRGBA8UNorm:
		return vk.FormatR8g8b8a8Unorm
	case metadata.TextureFormatBGRA8UNorm:
		return vk.FormatB8g8r8a8Unorm
	case metadata.TextureFormatRGBA16Float:
		return vk.FormatR16g16b16a16Sfloat
	case metadata.TextureFormatRGBA32Float:
		return vk.FormatR32g32b32a32Sfloat
	case metadata.TextureFormatR8UNorm:
		return vk.FormatR8Unorm
	case metadata.TextureFormatRG8UNorm:
		return vk.FormatR8g8Unorm
	case metadata.TextureFormatZ24UNormS8UInt:
		return vk.FormatD24UnormS8Uint
	case metadata.TextureFormatZ32Float:
		return vk.FormatD32Sfloat
	default:
		return vk.FormatUndefined
	}
}

func textureUsageFlags(usage metadata.TextureUsage, depth bool) vk.ImageUsageFlags {
	var flags vk.ImageUsageFlags
	if usage&metadata.TextureUsageSampled != 0 {
		flags |= vk.ImageUsageFlags(vk.ImageUsageSampledBit)
	}
	if usage&metadata.TextureUsageStorage != 0 {
		flags |= vk.ImageUsageFlags(vk.ImageUsageStorageBit)
	}
	if usage&metadata.TextureUsageAttachment != 0 {
		if depth {
			flags |= vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)
		} else {
			flags |= vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
		}
	}
	if usage&metadata.TextureUsageTransferSrc != 0 {
		flags |= vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit)
	}
	// uploads always need a transfer destination
	return flags | vk.ImageUsageFlags(vk.ImageUsageTransferDstBit)
}

// VulkanTexture implements renderer.Texture on top of a VulkanImage.
type VulkanTexture struct {
	desc    metadata.TextureDesc
	image   *VulkanImage
	staging *VulkanStagingDevice
}

func (t *VulkanTexture) Desc() *metadata.TextureDesc {
	return &t.desc
}

func (t *VulkanTexture) Image() *VulkanImage {
	return t.image
}

// Upload copies pixel data into the sub-region described by r. The range is
// validated first; an invalid range is rejected before any native call.
func (t *VulkanTexture) Upload(data []byte, r metadata.TextureRangeDesc) core.Result {
	if result := t.desc.ValidateRange(r); !result.IsOk() {
		return result
	}

	fullBaseLevel := r.MipLevel == 0 && r.X == 0 && r.Y == 0 &&
		r.Width == t.desc.Width && r.Height == t.desc.Height

	var err error
	if t.desc.GenerateMipmaps && fullBaseLevel && t.desc.NumMips > 1 {
		_, err = t.staging.UploadImageWithMips(t.image, data)
	} else {
		_, err = t.staging.UploadImage(t.image, r.MipLevel, r.X, r.Y, r.Width, r.Height, data)
	}
	if err != nil {
		return core.NewResult(core.RuntimeError, "texture upload failed: %v", err)
	}
	return core.ResultOk()
}

// VulkanSamplerState implements renderer.SamplerState.
type VulkanSamplerState struct {
	Handle vk.Sampler
	desc   metadata.SamplerStateDesc
}

func samplerFilter(filter metadata.SamplerFilter) vk.Filter {
	if filter == metadata.SamplerFilterLinear {
		return vk.FilterLinear
	}
	return vk.FilterNearest
}

func samplerMipmapMode(filter metadata.SamplerFilter) vk.SamplerMipmapMode {
	if filter == metadata.SamplerFilterLinear {
		return vk.SamplerMipmapModeLinear
	}
	return vk.SamplerMipmapModeNearest
}

func samplerAddressMode(mode metadata.SamplerAddressMode) vk.SamplerAddressMode {
	switch mode {
	case metadata.SamplerAddressModeClamp:
		return vk.SamplerAddressModeClampToEdge
	case metadata.SamplerAddressModeMirror:
		return vk.SamplerAddressModeMirroredRepeat
	default:
		return vk.SamplerAddressModeRepeat
	}
}

func samplerStateCreate(context *VulkanContext, desc metadata.SamplerStateDesc) (*VulkanSamplerState, error) {
	createInfo := vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MinFilter:    samplerFilter(desc.MinFilter),
		MagFilter:    samplerFilter(desc.MagFilter),
		MipmapMode:   samplerMipmapMode(desc.MipFilter),
		AddressModeU: samplerAddressMode(desc.AddressModeU),
		AddressModeV: samplerAddressMode(desc.AddressModeV),
		AddressModeW: samplerAddressMode(desc.AddressModeW),
		MaxLod:       vk.LodClampNone,
		BorderColor:  vk.BorderColorIntOpaqueBlack,
	}
	if desc.MaxAnisotropy > 1 {
		createInfo.AnisotropyEnable = vk.True
		createInfo.MaxAnisotropy = float32(desc.MaxAnisotropy)
	}

	var handle vk.Sampler
	if res := vk.CreateSampler(context.Device.LogicalDevice, &createInfo, context.Allocator, &handle); res != vk.Success {
		return nil, core.NewResult(core.RuntimeError, "failed to create sampler `%s`: %s", desc.DebugName, VulkanResultString(res))
	}

	return &VulkanSamplerState{Handle: handle, desc: desc}, nil
}
