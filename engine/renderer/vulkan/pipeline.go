package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/igloo-gfx/igloo/engine/core"
	"github.com/igloo-gfx/igloo/engine/renderer/metadata"
)

// VulkanPipeline couples a pipeline with its layout.
type VulkanPipeline struct {
	Handle    vk.Pipeline
	Layout    vk.PipelineLayout
	DebugName string
}

func shaderModuleCreate(context *VulkanContext, desc metadata.ShaderModuleDesc) (vk.ShaderModule, error) {
	if len(desc.Code) == 0 || len(desc.Code)%4 != 0 {
		return nil, fmt.Errorf("shader `%s` code size %d is not a multiple of 4", desc.DebugName, len(desc.Code))
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(desc.Code)),
		PCode:    sliceUint32(desc.Code),
	}

	var module vk.ShaderModule
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &module); res != vk.Success {
		err := fmt.Errorf("failed to create shader module `%s`: %s", desc.DebugName, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	return module, nil
}

func sliceUint32(data []byte) []uint32 {
	return unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
}

func vertexAttributeFormat(format metadata.VertexAttributeFormat) vk.Format {
	switch format {
	case metadata.VertexAttributeFloat1:
		return vk.FormatR32Sfloat
	case metadata.VertexAttributeFloat2:
		return vk.FormatR32g32Sfloat
	case metadata.VertexAttributeFloat3:
		return vk.FormatR32g32b32Sfloat
	default:
		return vk.FormatR32g32b32a32Sfloat
	}
}

func primitiveTopology(primitive metadata.PrimitiveType) vk.PrimitiveTopology {
	switch primitive {
	case metadata.PrimitiveTypePoint:
		return vk.PrimitiveTopologyPointList
	case metadata.PrimitiveTypeLine:
		return vk.PrimitiveTopologyLineList
	case metadata.PrimitiveTypeLineStrip:
		return vk.PrimitiveTopologyLineStrip
	case metadata.PrimitiveTypeTriangleStrip:
		return vk.PrimitiveTopologyTriangleStrip
	default:
		return vk.PrimitiveTopologyTriangleList
	}
}

func cullModeFlags(mode metadata.CullMode) vk.CullModeFlags {
	switch mode {
	case metadata.CullModeFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	case metadata.CullModeBack:
		return vk.CullModeFlags(vk.CullModeBackBit)
	default:
		return vk.CullModeFlags(vk.CullModeNone)
	}
}

// GraphicsPipelineCreate builds a graphics pipeline compatible with the
// given render pass. Viewport and scissor are dynamic state; the encoder
// sets them per pass.
func GraphicsPipelineCreate(context *VulkanContext, desc metadata.RenderPipelineDesc, renderPass vk.RenderPass, layout vk.PipelineLayout, hasDepth bool) (*VulkanPipeline, error) {
	vertexModule, err := shaderModuleCreate(context, desc.VertexShader)
	if err != nil {
		return nil, err
	}
	defer vk.DestroyShaderModule(context.Device.LogicalDevice, vertexModule, context.Allocator)

	fragmentModule, err := shaderModuleCreate(context, desc.FragmentShader)
	if err != nil {
		return nil, err
	}
	defer vk.DestroyShaderModule(context.Device.LogicalDevice, fragmentModule, context.Allocator)

	vertexEntry := desc.VertexShader.EntryPoint
	if vertexEntry == "" {
		vertexEntry = "main"
	}
	fragmentEntry := desc.FragmentShader.EntryPoint
	if fragmentEntry == "" {
		fragmentEntry = "main"
	}

	stages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: vertexModule,
			PName:  VulkanSafeString(vertexEntry),
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: fragmentModule,
			PName:  VulkanSafeString(fragmentEntry),
		},
	}

	attributes := make([]vk.VertexInputAttributeDescription, len(desc.VertexInput.Attributes))
	for i, attribute := range desc.VertexInput.Attributes {
		attributes[i] = vk.VertexInputAttributeDescription{
			Location: attribute.Location,
			Binding:  0,
			Format:   vertexAttributeFormat(attribute.Format),
			Offset:   attribute.Offset,
		}
	}

	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}
	if len(attributes) > 0 {
		vertexInput.VertexBindingDescriptionCount = 1
		vertexInput.PVertexBindingDescriptions = []vk.VertexInputBindingDescription{{
			Binding:   0,
			Stride:    desc.VertexInput.Stride,
			InputRate: vk.VertexInputRateVertex,
		}}
		vertexInput.VertexAttributeDescriptionCount = uint32(len(attributes))
		vertexInput.PVertexAttributeDescriptions = attributes
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: primitiveTopology(desc.Primitive),
	}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterization := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		LineWidth:   1.0,
		CullMode:    cullModeFlags(desc.CullMode),
		FrontFace:   vk.FrontFaceCounterClockwise,
	}

	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType: vk.StructureTypePipelineDepthStencilStateCreateInfo,
	}
	if hasDepth {
		depthStencil.DepthTestEnable = vk.True
		depthStencil.DepthWriteEnable = vk.True
		depthStencil.DepthCompareOp = vk.CompareOpLess
	}

	colorBlendAttachments := make([]vk.PipelineColorBlendAttachmentState, len(desc.ColorFormats))
	for i := range colorBlendAttachments {
		colorBlendAttachments[i] = vk.PipelineColorBlendAttachmentState{
			ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) |
				vk.ColorComponentFlags(vk.ColorComponentGBit) |
				vk.ColorComponentFlags(vk.ColorComponentBBit) |
				vk.ColorComponentFlags(vk.ColorComponentABit),
		}
	}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: uint32(len(colorBlendAttachments)),
		PAttachments:    colorBlendAttachments,
	}

	dynamicStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	dynamic := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	createInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterization,
		PMultisampleState:   &multisample,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlend,
		PDynamicState:       &dynamic,
		Layout:              layout,
		RenderPass:          renderPass,
		Subpass:             0,
	}

	pipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateGraphicsPipelines(context.Device.LogicalDevice, nil, 1, []vk.GraphicsPipelineCreateInfo{createInfo}, context.Allocator, pipelines); res != vk.Success {
		err := fmt.Errorf("failed to create graphics pipeline `%s`: %s", desc.DebugName, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	return &VulkanPipeline{
		Handle:    pipelines[0],
		Layout:    layout,
		DebugName: core.DebugName("render-pipeline", desc.DebugName),
	}, nil
}

// ComputePipelineCreate builds a compute pipeline from a single shader.
func ComputePipelineCreate(context *VulkanContext, desc metadata.ComputePipelineDesc, layout vk.PipelineLayout) (*VulkanPipeline, error) {
	module, err := shaderModuleCreate(context, desc.ComputeShader)
	if err != nil {
		return nil, err
	}
	defer vk.DestroyShaderModule(context.Device.LogicalDevice, module, context.Allocator)

	entry := desc.ComputeShader.EntryPoint
	if entry == "" {
		entry = "main"
	}

	createInfo := vk.ComputePipelineCreateInfo{
		SType: vk.StructureTypeComputePipelineCreateInfo,
		Stage: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageComputeBit,
			Module: module,
			PName:  VulkanSafeString(entry),
		},
		Layout: layout,
	}

	pipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateComputePipelines(context.Device.LogicalDevice, nil, 1, []vk.ComputePipelineCreateInfo{createInfo}, context.Allocator, pipelines); res != vk.Success {
		err := fmt.Errorf("failed to create compute pipeline `%s`: %s", desc.DebugName, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	return &VulkanPipeline{
		Handle:    pipelines[0],
		Layout:    layout,
		DebugName: core.DebugName("compute-pipeline", desc.DebugName),
	}, nil
}

func (vp *VulkanPipeline) Destroy(context *VulkanContext) {
	if vp.Handle != nil {
		vk.DestroyPipeline(context.Device.LogicalDevice, vp.Handle, context.Allocator)
		vp.Handle = nil
	}
}
