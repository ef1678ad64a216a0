package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/igloo-gfx/igloo/engine/core"
)

// Descriptor set indices used by every pipeline layout. Each set holds one
// binding per slot, so shader binding numbers map directly to the slot
// indices used by the encoders.
const (
	descriptorSetUniformBuffers = 0
	descriptorSetTextures       = 1
	descriptorSetStorageBuffers = 2
)

// VulkanDescriptorLayouts holds the shared set layouts and the pipeline
// layout every pipeline is created with.
type VulkanDescriptorLayouts struct {
	UniformBuffers vk.DescriptorSetLayout
	Textures       vk.DescriptorSetLayout
	StorageBuffers vk.DescriptorSetLayout

	PipelineLayout vk.PipelineLayout
}

func descriptorSetLayoutCreate(context *VulkanContext, descriptorType vk.DescriptorType, bindingCount uint32) (vk.DescriptorSetLayout, error) {
	bindings := make([]vk.DescriptorSetLayoutBinding, bindingCount)
	for i := range bindings {
		bindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         uint32(i),
			DescriptorType:  descriptorType,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageAllGraphics) | vk.ShaderStageFlags(vk.ShaderStageComputeBit),
		}
	}

	createInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: bindingCount,
		PBindings:    bindings,
	}

	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &createInfo, context.Allocator, &layout); res != vk.Success {
		err := fmt.Errorf("failed to create descriptor set layout: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	return layout, nil
}

// DescriptorLayoutsCreate builds the shared set layouts and one pipeline
// layout referencing them in set-index order.
func DescriptorLayoutsCreate(context *VulkanContext) (*VulkanDescriptorLayouts, error) {
	layouts := &VulkanDescriptorLayouts{}

	var err error
	if layouts.UniformBuffers, err = descriptorSetLayoutCreate(context, vk.DescriptorTypeUniformBuffer, VULKAN_MAX_BUFFER_BINDINGS); err != nil {
		return nil, err
	}
	if layouts.Textures, err = descriptorSetLayoutCreate(context, vk.DescriptorTypeCombinedImageSampler, VULKAN_MAX_TEXTURE_BINDINGS); err != nil {
		return nil, err
	}
	if layouts.StorageBuffers, err = descriptorSetLayoutCreate(context, vk.DescriptorTypeStorageBuffer, VULKAN_MAX_BUFFER_BINDINGS); err != nil {
		return nil, err
	}

	setLayouts := []vk.DescriptorSetLayout{
		layouts.UniformBuffers,
		layouts.Textures,
		layouts.StorageBuffers,
	}
	createInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(setLayouts)),
		PSetLayouts:    setLayouts,
	}

	var pipelineLayout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(context.Device.LogicalDevice, &createInfo, context.Allocator, &pipelineLayout); res != vk.Success {
		err := fmt.Errorf("failed to create pipeline layout: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	layouts.PipelineLayout = pipelineLayout

	return layouts, nil
}

func (dl *VulkanDescriptorLayouts) Destroy(context *VulkanContext) {
	if dl.PipelineLayout != nil {
		vk.DestroyPipelineLayout(context.Device.LogicalDevice, dl.PipelineLayout, context.Allocator)
		dl.PipelineLayout = nil
	}
	for _, layout := range []vk.DescriptorSetLayout{dl.UniformBuffers, dl.Textures, dl.StorageBuffers} {
		if layout != nil {
			vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, layout, context.Allocator)
		}
	}
	dl.UniformBuffers = nil
	dl.Textures = nil
	dl.StorageBuffers = nil
}

// VulkanDescriptorAllocator hands out descriptor sets from a pool that is
// reset wholesale once the submissions using its sets have completed.
type VulkanDescriptorAllocator struct {
	context *VulkanContext
	pool    vk.DescriptorPool
}

func NewVulkanDescriptorAllocator(context *VulkanContext, maxSets uint32) (*VulkanDescriptorAllocator, error) {
	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: maxSets * VULKAN_MAX_BUFFER_BINDINGS},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: maxSets * VULKAN_MAX_TEXTURE_BINDINGS},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: maxSets * VULKAN_MAX_BUFFER_BINDINGS},
	}

	createInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets * 3,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}

	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &createInfo, context.Allocator, &pool); res != vk.Success {
		err := fmt.Errorf("failed to create descriptor pool: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	return &VulkanDescriptorAllocator{context: context, pool: pool}, nil
}

func (da *VulkanDescriptorAllocator) Allocate(layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     da.pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}

	sets := make([]vk.DescriptorSet, 1)
	if res := vk.AllocateDescriptorSets(da.context.Device.LogicalDevice, &allocateInfo, &sets[0]); res != vk.Success {
		err := fmt.Errorf("failed to allocate descriptor set: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	return sets[0], nil
}

// Reset recycles every set allocated from the pool. The caller must ensure
// the GPU is done with them.
func (da *VulkanDescriptorAllocator) Reset() {
	vk.ResetDescriptorPool(da.context.Device.LogicalDevice, da.pool, 0)
}

func (da *VulkanDescriptorAllocator) Destroy() {
	if da.pool != nil {
		vk.DestroyDescriptorPool(da.context.Device.LogicalDevice, da.pool, da.context.Allocator)
		da.pool = nil
	}
}
